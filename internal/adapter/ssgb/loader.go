// Package ssgb reads Snow Survey of Great Britain observation files.
//
// The CSV header must contain date, site_id, latitude and longitude, plus
// either snow_present or snow_depth. Optional columns are snow_depth (cm)
// and elevation (m). Column names are matched case-insensitively.
package ssgb

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bmordue/snowline/internal/domain"
)

var requiredColumns = []string{"date", "site_id", "latitude", "longitude"}

// dateLayouts are tried in order for the date column.
var dateLayouts = []string{domain.DateLayout, "2006-01-02 15:04:05", time.RFC3339, "02/01/2006"}

// Loader implements pipeline.ObservationSource for a CSV file on disk.
type Loader struct {
	path   string
	logger *slog.Logger
}

// NewLoader creates a Loader for the file at path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Load reads and validates every observation in the file.
func (l *Loader) Load(ctx context.Context) ([]domain.Observation, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open observations: %w", err)
	}
	defer f.Close()

	obs, err := Read(ctx, f, l.path, l.logger)
	if err != nil {
		return nil, err
	}
	l.logger.Info("observations read", "path", l.path, "count", len(obs))
	return obs, nil
}

type columns struct {
	date, site, lat, lon, present, depth, elevation int
}

func indexHeader(header []string, name string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[h] = i
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return columns{}, &domain.DataValidationError{Path: name, Line: 1, Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	col := func(n string) int {
		if i, ok := idx[n]; ok {
			return i
		}
		return -1
	}
	c := columns{
		date: col("date"), site: col("site_id"), lat: col("latitude"), lon: col("longitude"),
		present: col("snow_present"), depth: col("snow_depth"), elevation: col("elevation"),
	}
	if c.present < 0 && c.depth < 0 {
		return columns{}, &domain.DataValidationError{Path: name, Line: 1, Reason: "need a snow_present or snow_depth column"}
	}
	return c, nil
}

// Read parses observations from r. Rows with coordinates outside the valid
// latitude/longitude ranges or a malformed layout fail the whole read with a
// *domain.DataValidationError. Rows whose date, coordinates or snow flag
// cannot be parsed are skipped with a warning.
func Read(ctx context.Context, r io.Reader, name string, logger *slog.Logger) ([]domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.DataValidationError{Path: name, Reason: "file is empty"}
	}
	if err != nil {
		return nil, csvError(name, err)
	}
	cols, err := indexHeader(header, name)
	if err != nil {
		return nil, err
	}

	var obs []domain.Observation
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		line, _ := reader.FieldPos(0)
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		o, err := parseRow(record, cols)
		if err != nil {
			var dv *domain.DataValidationError
			if errors.As(err, &dv) {
				dv.Path, dv.Line = name, line
				return nil, dv
			}
			logger.Warn("skipping malformed observation", "path", name, "line", line, "error", err)
			skipped++
			continue
		}
		obs = append(obs, o)
	}

	if skipped > 0 {
		logger.Warn("malformed observations skipped", "path", name, "count", skipped)
	}
	return obs, nil
}

func csvError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &domain.DataValidationError{Path: name, Line: pe.Line, Reason: pe.Err.Error()}
	}
	return fmt.Errorf("read %s: %w", name, err)
}

func parseRow(record []string, c columns) (domain.Observation, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := parseDate(field(c.date))
	if err != nil {
		return domain.Observation{}, err
	}
	lat, err := strconv.ParseFloat(field(c.lat), 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(field(c.lon), 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("longitude: %w", err)
	}
	if math.IsNaN(lat) || math.Abs(lat) > 90 {
		return domain.Observation{}, &domain.DataValidationError{Reason: fmt.Sprintf("latitude %g outside [-90, 90]", lat)}
	}
	if math.IsNaN(lon) || math.Abs(lon) > 180 {
		return domain.Observation{}, &domain.DataValidationError{Reason: fmt.Sprintf("longitude %g outside [-180, 180]", lon)}
	}

	o := domain.Observation{Date: date, SiteID: field(c.site), Longitude: lon, Latitude: lat}

	if s := field(c.depth); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Observation{}, fmt.Errorf("snow_depth: %w", err)
		}
		o.SnowDepth = &d
	}
	if s := field(c.elevation); s != "" {
		e, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Observation{}, fmt.Errorf("elevation: %w", err)
		}
		o.Elevation = &e
	}

	switch s := field(c.present); {
	case s != "":
		present, err := ParseBool(s)
		if err != nil {
			return domain.Observation{}, err
		}
		o.SnowPresent = present
	case o.SnowDepth != nil:
		o.SnowPresent = *o.SnowDepth > 0
	default:
		return domain.Observation{}, errors.New("neither snow_present nor snow_depth given")
	}
	return o, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: expected YYYY-MM-DD", s)
}

// ParseBool accepts the spellings found in survey exports.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y", "1.0":
		return true, nil
	case "false", "f", "0", "no", "n", "0.0":
		return false, nil
	}
	return false, fmt.Errorf("snow_present %q: expected true/false, yes/no or 1/0", s)
}
