// Package geojsonout exports snowline results as a GeoJSON FeatureCollection
// alongside a JSON manifest describing every processed date.
package geojsonout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/observability"
)

const sinkName = "geojson"

// ManifestEntry describes the outcome for one date.
type ManifestEntry struct {
	Date             string        `json:"date"`
	Status           domain.Status `json:"status"`
	ObservationCount int           `json:"observation_count"`
	Detail           string        `json:"detail,omitempty"`
	WKT              string        `json:"wkt,omitempty"`
}

// Manifest lists every date of a run in date order.
type Manifest struct {
	Count    int                   `json:"count"`
	Statuses map[domain.Status]int `json:"statuses"`
	Dates    []ManifestEntry       `json:"dates"`
}

// Writer implements pipeline.ResultSink.
type Writer struct {
	dir     string
	prefix  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewWriter(dir, prefix string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	return &Writer{dir: dir, prefix: prefix, logger: logger, metrics: metrics}
}

// CollectionPath returns the path of the FeatureCollection file.
func (w *Writer) CollectionPath() string {
	return filepath.Join(w.dir, w.prefix+"snowlines.geojson")
}

// ManifestPath returns the path of the manifest file.
func (w *Writer) ManifestPath() string {
	return ManifestFile(w.dir, w.prefix)
}

// ManifestFile is where a Writer for dir and prefix puts its manifest.
func ManifestFile(dir, prefix string) string {
	return filepath.Join(dir, prefix+"manifest.json")
}

func (w *Writer) Write(ctx context.Context, results domain.Results) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fc := FeatureCollection(results)
	if err := writeJSON(w.CollectionPath(), fc); err != nil {
		return fmt.Errorf("write feature collection: %w", err)
	}
	w.metrics.OutputsWritten.WithLabelValues(sinkName).Inc()

	if err := writeJSON(w.ManifestPath(), BuildManifest(results)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	w.metrics.OutputsWritten.WithLabelValues(sinkName).Inc()

	w.logger.Info("geojson written",
		"path", w.CollectionPath(),
		"features", len(fc.Features),
		"manifest", w.ManifestPath(),
	)
	return nil
}

// FeatureCollection holds one feature per date that has a snowline.
func FeatureCollection(results domain.Results) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		if !r.HasGeometry() {
			continue
		}
		f := geojson.NewFeature(r.Geometry)
		day := r.Date.Format(domain.DateLayout)
		f.ID = day
		f.Properties["date"] = day
		f.Properties["status"] = string(r.Status)
		f.Properties["observation_count"] = r.ObservationCount
		f.Properties["line_count"] = len(r.Geometry)
		fc.Append(f)
	}
	return fc
}

// BuildManifest summarises every result, with the geometry as WKT.
func BuildManifest(results domain.Results) Manifest {
	m := Manifest{
		Count:    len(results),
		Statuses: results.CountByStatus(),
		Dates:    make([]ManifestEntry, 0, len(results)),
	}
	for _, r := range results {
		e := ManifestEntry{
			Date:             r.Date.Format(domain.DateLayout),
			Status:           r.Status,
			ObservationCount: r.ObservationCount,
			Detail:           r.Detail,
		}
		if r.HasGeometry() {
			e.WKT = wkt.MarshalString(r.Geometry)
		}
		m.Dates = append(m.Dates, e)
	}
	return m
}

// ReadManifest loads a manifest written by Writer.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Geometry decodes the entry's WKT. It returns nil for dates without a line.
func (e ManifestEntry) Geometry() (orb.MultiLineString, error) {
	if e.WKT == "" {
		return nil, nil
	}
	return wkt.UnmarshalMultiLineString(e.WKT)
}

// writeJSON writes v to a temporary file and renames it into place so
// readers never see a partial file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
