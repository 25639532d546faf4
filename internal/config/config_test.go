package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/isoline"
)

const minimalYAML = `
input:
  snow_cover_data: data/ssgb.csv
time:
  start_date: "2023-01-01"
  end_date: "2023-01-31"
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "data/ssgb.csv", cfg.Input.SnowCoverData)
	assert.Equal(t, domain.BoundingBox{MinLon: -8.0, MaxLon: -1.5, MinLat: 54.5, MaxLat: 59.0}, cfg.Region.BoundingBox)
	assert.Equal(t, 0.01, cfg.Processing.GridResolution)
	assert.Equal(t, isoline.MethodLinear, cfg.Processing.Method())
	assert.Equal(t, 1.0, cfg.Processing.SmoothingSigma)
	assert.Equal(t, 0.5, cfg.Processing.ContourLevel)
	assert.Equal(t, 0.001, cfg.Processing.SimplifyTolerance)
	assert.Equal(t, 0.005, cfg.Processing.SmoothBuffer)
	assert.Equal(t, 1, cfg.Processing.Workers)
	assert.Zero(t, cfg.Processing.DateTimeout)
	assert.Equal(t, "output", cfg.Output.Directory)
	assert.Equal(t, "snowline_", cfg.Output.FilenamePrefix)
	assert.True(t, cfg.Output.GeoJSON)
	assert.True(t, cfg.Output.SVG)
	assert.Equal(t, "#0000FF", cfg.Output.Style.SnowlineColor)
	assert.Equal(t, "6,4", cfg.Output.Style.GridlineDashArray())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	start, end, err := cfg.Time.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestParse_FullFile(t *testing.T) {
	data := `
input:
  snow_cover_data: obs.csv
  basemap_data: coast.geojson
region:
  bounding_box: {min_lon: -5, max_lon: -3, min_lat: 56, max_lat: 58}
time: {start_date: "2023-02-01", end_date: "2023-02-01"}
processing:
  grid_resolution: 0.05
  interpolation_method: cubic
  smoothing_sigma: 0
  contour_level: 0.4
  simplify_tolerance: 0
  smooth_buffer: 0
  workers: 4
  date_timeout: 30s
output:
  directory: out
  filename_prefix: run1_
  geojson: false
  metrics_file: out/snowline.prom
  style:
    snowline_color: navy
    snowline_width: 2
    gridline_color: "#ccc"
    gridline_style: ":"
logging: {level: debug, format: text}
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "coast.geojson", cfg.Input.BasemapData)
	assert.Equal(t, -5.0, cfg.Region.BoundingBox.MinLon)
	assert.Equal(t, isoline.MethodCubic, cfg.Processing.Method())
	assert.Equal(t, 4, cfg.Processing.Workers)
	assert.Equal(t, 30*time.Second, cfg.Processing.DateTimeout)
	assert.False(t, cfg.Output.GeoJSON)
	assert.True(t, cfg.Output.SVG, "unset keys keep defaults")
	assert.Equal(t, "1,3", cfg.Output.Style.GridlineDashArray())
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Zero(t, cfg.Processing.PostProcess().SmoothDistance)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("SNOWLINE_LOG_LEVEL", "warn")
	t.Setenv("SNOWLINE_LOG_FORMAT", "text")
	t.Setenv("SNOWLINE_WORKERS", "8")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Processing.Workers)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestParse_InvalidWorkersEnv(t *testing.T) {
	t.Setenv("SNOWLINE_WORKERS", "many")
	_, err := Parse([]byte(minimalYAML))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		param string
	}{
		{"inverted bbox", "region: {bounding_box: {min_lon: 1, max_lon: 0, min_lat: 0, max_lat: 1}}", "region.bounding_box"},
		{"latitude out of range", "region: {bounding_box: {min_lon: 0, max_lon: 1, min_lat: -91, max_lat: 1}}", "region.bounding_box"},
		{"zero resolution", "processing: {grid_resolution: 0}", "processing.grid_resolution"},
		{"unknown method", "processing: {interpolation_method: spline}", "processing.interpolation_method"},
		{"negative sigma", "processing: {smoothing_sigma: -1}", "processing.smoothing_sigma"},
		{"level at bound", "processing: {contour_level: 1}", "processing.contour_level"},
		{"negative tolerance", "processing: {simplify_tolerance: -0.1}", "processing.simplify_tolerance"},
		{"negative buffer", "processing: {smooth_buffer: -0.1}", "processing.smooth_buffer"},
		{"zero workers", "processing: {workers: 0}", "processing.workers"},
		{"negative timeout", "processing: {date_timeout: -1s}", "processing.date_timeout"},
		{"bad colour", "output: {style: {snowline_color: '#12345'}}", "output.style.snowline_color"},
		{"zero width", "output: {style: {snowline_width: 0}}", "output.style.snowline_width"},
		{"bad gridline style", "output: {style: {gridline_style: '=='}}", "output.style.gridline_style"},
		{"prefix with separator", "output: {filename_prefix: a/b}", "output.filename_prefix"},
		{"bad log format", "logging: {format: xml}", "logging.format"},
		{"unknown key", "processing: {grid_res: 0.1}", "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(minimalYAML + tt.extra + "\n"))
			require.Error(t, err)

			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.param, cfgErr.Param)
		})
	}
}

func TestParse_DateOrder(t *testing.T) {
	data := `
input: {snow_cover_data: x.csv}
time: {start_date: "2023-02-02", end_date: "2023-02-01"}
`
	_, err := Parse([]byte(data))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	data = `
input: {snow_cover_data: x.csv}
time: {start_date: "02/01/2023", end_date: "2023-02-01"}
`
	_, err = Parse([]byte(data))
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "time.start_date", cfgErr.Param)
}

func TestParse_MissingInput(t *testing.T) {
	_, err := Parse([]byte(`time: {start_date: "2023-01-01", end_date: "2023-01-02"}`))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/ssgb.csv", cfg.Input.SnowCoverData)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWarnings_MissingPaths(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "obs.csv")
	require.NoError(t, os.WriteFile(present, nil, 0o600))

	cfg := Default()
	cfg.Input.SnowCoverData = present
	cfg.Input.BasemapData = filepath.Join(dir, "coast.geojson")

	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "input.basemap_data")
}

func TestValidColor(t *testing.T) {
	for _, c := range []string{"#fff", "#0000FF", "navy", "Red"} {
		assert.True(t, ValidColor(c), c)
	}
	for _, c := range []string{"", "#ff", "#GGGGGG", "blu", "0000FF"} {
		assert.False(t, ValidColor(c), c)
	}
}

func TestSummary(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	s := cfg.Summary()
	assert.Contains(t, s, "data/ssgb.csv")
	assert.Contains(t, s, "2023-01-01 to 2023-01-31")
	assert.Contains(t, s, "linear")
}
