package svgmap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/observability"
)

const sinkName = "svg"

// MapGenerator implements pipeline.ResultSink by rendering one file per
// date named <prefix><YYYY-MM-DD>.svg.
type MapGenerator struct {
	dir      string
	prefix   string
	renderer Renderer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

func NewMapGenerator(dir, prefix string, renderer Renderer, logger *slog.Logger, metrics *observability.Metrics) *MapGenerator {
	return &MapGenerator{dir: dir, prefix: prefix, renderer: renderer, logger: logger, metrics: metrics}
}

// Path returns the output file for day.
func (g *MapGenerator) Path(day string) string {
	return filepath.Join(g.dir, g.prefix+day+".svg")
}

func (g *MapGenerator) Write(ctx context.Context, results domain.Results) error {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		day := r.Date.Format(domain.DateLayout)

		buf.Reset()
		if err := g.renderer.Render(&buf, r); err != nil {
			return fmt.Errorf("render %s: %w", day, err)
		}
		if err := os.WriteFile(g.Path(day), buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write map %s: %w", day, err)
		}
		g.metrics.OutputsWritten.WithLabelValues(sinkName).Inc()
		g.logger.Debug("map written", "date", day, "path", g.Path(day))
	}
	g.logger.Info("maps written", "count", len(results), "directory", g.dir)
	return nil
}

// LoadBasemap reads the geometries of a GeoJSON FeatureCollection.
func LoadBasemap(path string) ([]orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read basemap: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode basemap %s: %w", path, err)
	}
	out := make([]orb.Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			out = append(out, f.Geometry)
		}
	}
	return out, nil
}
