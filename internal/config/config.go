package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"

	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/geometry"
	"github.com/bmordue/snowline/internal/isoline"
)

// Config holds all run settings, read from a YAML file and overridden by a
// few environment variables.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Region     RegionConfig     `yaml:"region"`
	Time       TimeConfig       `yaml:"time"`
	Processing ProcessingConfig `yaml:"processing"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`

	// ShutdownTimeout bounds how long outputs may take to flush after an
	// interrupt. Read from SHUTDOWN_TIMEOUT.
	ShutdownTimeout time.Duration `yaml:"-"`
}

type InputConfig struct {
	SnowCoverData string `yaml:"snow_cover_data"`
	BasemapData   string `yaml:"basemap_data"`
}

type RegionConfig struct {
	BoundingBox domain.BoundingBox `yaml:"bounding_box"`
}

// TimeConfig is the inclusive processing window as YYYY-MM-DD strings.
type TimeConfig struct {
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

// Range parses the window.
func (t TimeConfig) Range() (start, end time.Time, err error) {
	if start, err = domain.ParseDay(t.StartDate); err != nil {
		return start, end, &domain.ConfigurationError{Param: "time.start_date", Value: t.StartDate, Reason: "expected YYYY-MM-DD"}
	}
	if end, err = domain.ParseDay(t.EndDate); err != nil {
		return start, end, &domain.ConfigurationError{Param: "time.end_date", Value: t.EndDate, Reason: "expected YYYY-MM-DD"}
	}
	return start, end, nil
}

type ProcessingConfig struct {
	GridResolution      float64       `yaml:"grid_resolution"`
	InterpolationMethod string        `yaml:"interpolation_method"`
	SmoothingSigma      float64       `yaml:"smoothing_sigma"`
	ContourLevel        float64       `yaml:"contour_level"`
	SimplifyTolerance   float64       `yaml:"simplify_tolerance"`
	SmoothBuffer        float64       `yaml:"smooth_buffer"`
	Workers             int           `yaml:"workers"`
	DateTimeout         time.Duration `yaml:"date_timeout"`
}

// Method returns the interpolation method. Call after Validate.
func (p ProcessingConfig) Method() isoline.Method {
	return isoline.Method(p.InterpolationMethod)
}

// PostProcess returns the geometry cleanup options.
func (p ProcessingConfig) PostProcess() geometry.Options {
	return geometry.Options{SmoothDistance: p.SmoothBuffer, SimplifyTolerance: p.SimplifyTolerance}
}

type OutputConfig struct {
	Directory      string      `yaml:"directory"`
	FilenamePrefix string      `yaml:"filename_prefix"`
	GeoJSON        bool        `yaml:"geojson"`
	SVG            bool        `yaml:"svg"`
	MetricsFile    string      `yaml:"metrics_file"`
	Style          StyleConfig `yaml:"style"`
}

type StyleConfig struct {
	SnowlineColor string  `yaml:"snowline_color"`
	SnowlineWidth float64 `yaml:"snowline_width"`
	GridlineColor string  `yaml:"gridline_color"`
	GridlineStyle string  `yaml:"gridline_style"`
}

// gridlineDashes maps line-style shorthands to SVG stroke-dasharray values.
var gridlineDashes = map[string]string{
	"-":  "",
	"--": "6,4",
	":":  "1,3",
	"-.": "6,3,1,3",
}

// GridlineDashArray returns the SVG dash pattern for the gridline style.
func (s StyleConfig) GridlineDashArray() string {
	return gridlineDashes[s.GridlineStyle]
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used for anything the file leaves out.
func Default() *Config {
	return &Config{
		Region: RegionConfig{BoundingBox: domain.BoundingBox{MinLon: -8.0, MaxLon: -1.5, MinLat: 54.5, MaxLat: 59.0}},
		Processing: ProcessingConfig{
			GridResolution:      0.01,
			InterpolationMethod: string(isoline.MethodLinear),
			SmoothingSigma:      1.0,
			ContourLevel:        0.5,
			SimplifyTolerance:   0.001,
			SmoothBuffer:        0.005,
			Workers:             1,
		},
		Output: OutputConfig{
			Directory:      "output",
			FilenamePrefix: "snowline_",
			GeoJSON:        true,
			SVG:            true,
			Style: StyleConfig{
				SnowlineColor: "#0000FF",
				SnowlineWidth: 1.5,
				GridlineColor: "#CCCCCC",
				GridlineStyle: "--",
			},
		},
		Logging:         LoggingConfig{Level: "info", Format: "json"},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, applies environment overrides and
// validates the result. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &domain.ConfigurationError{Param: "config", Reason: err.Error()}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Logging.Level = sharedcfg.EnvOrDefault("SNOWLINE_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = sharedcfg.EnvOrDefault("SNOWLINE_LOG_FORMAT", c.Logging.Format)

	workers := sharedcfg.EnvOrDefault("SNOWLINE_WORKERS", strconv.Itoa(c.Processing.Workers))
	n, err := strconv.Atoi(workers)
	if err != nil {
		return &domain.ConfigurationError{Param: "SNOWLINE_WORKERS", Value: workers, Reason: "must be an integer"}
	}
	c.Processing.Workers = n

	shutdown, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return &domain.ConfigurationError{Param: "SHUTDOWN_TIMEOUT", Reason: err.Error()}
	}
	c.ShutdownTimeout = shutdown
	return nil
}

// Validate checks every parameter and returns the first problem as a
// *domain.ConfigurationError.
func (c *Config) Validate() error {
	if c.Input.SnowCoverData == "" {
		return &domain.ConfigurationError{Param: "input.snow_cover_data", Reason: "is required"}
	}
	if err := validateBoundingBox(c.Region.BoundingBox); err != nil {
		return err
	}

	start, end, err := c.Time.Range()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return &domain.ConfigurationError{
			Param: "time", Value: c.Time.StartDate + ".." + c.Time.EndDate,
			Reason: "start_date must not be after end_date",
		}
	}

	if err := c.Processing.validate(c.Region.BoundingBox); err != nil {
		return err
	}
	if err := c.Output.validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return &domain.ConfigurationError{Param: "logging.format", Value: c.Logging.Format, Reason: "expected json or text"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &domain.ConfigurationError{Param: "logging.level", Value: c.Logging.Level, Reason: "expected debug, info, warn or error"}
	}
	return nil
}

func validateBoundingBox(b domain.BoundingBox) error {
	param := "region.bounding_box"
	for _, v := range []float64{b.MinLon, b.MaxLon, b.MinLat, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &domain.ConfigurationError{Param: param, Value: b.String(), Reason: "coordinates must be finite"}
		}
	}
	if b.MinLon < -180 || b.MaxLon > 180 {
		return &domain.ConfigurationError{Param: param, Value: b.String(), Reason: "longitude must be within [-180, 180]"}
	}
	if b.MinLat < -90 || b.MaxLat > 90 {
		return &domain.ConfigurationError{Param: param, Value: b.String(), Reason: "latitude must be within [-90, 90]"}
	}
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return &domain.ConfigurationError{Param: param, Value: b.String(), Reason: "min must be less than max on both axes"}
	}
	return nil
}

func (p ProcessingConfig) validate(bbox domain.BoundingBox) error {
	if _, err := isoline.NewGrid(bbox, p.GridResolution); err != nil {
		return err
	}
	if _, err := isoline.ParseMethod(p.InterpolationMethod); err != nil {
		return err
	}
	checks := []struct {
		param  string
		value  float64
		ok     bool
		reason string
	}{
		{"processing.smoothing_sigma", p.SmoothingSigma, p.SmoothingSigma >= 0, "must be >= 0"},
		{"processing.contour_level", p.ContourLevel, p.ContourLevel > 0 && p.ContourLevel < 1, "must be strictly between 0 and 1"},
		{"processing.simplify_tolerance", p.SimplifyTolerance, p.SimplifyTolerance >= 0, "must be >= 0"},
		{"processing.smooth_buffer", p.SmoothBuffer, p.SmoothBuffer >= 0, "must be >= 0"},
	}
	for _, c := range checks {
		if !c.ok || math.IsInf(c.value, 0) {
			return &domain.ConfigurationError{Param: c.param, Value: c.value, Reason: c.reason}
		}
	}
	if p.Workers < 1 {
		return &domain.ConfigurationError{Param: "processing.workers", Value: p.Workers, Reason: "must be at least 1"}
	}
	if p.DateTimeout < 0 {
		return &domain.ConfigurationError{Param: "processing.date_timeout", Value: p.DateTimeout, Reason: "must not be negative"}
	}
	return nil
}

func (o OutputConfig) validate() error {
	if o.Directory == "" {
		return &domain.ConfigurationError{Param: "output.directory", Reason: "is required"}
	}
	if strings.ContainsAny(o.FilenamePrefix, `/\`) {
		return &domain.ConfigurationError{Param: "output.filename_prefix", Value: o.FilenamePrefix, Reason: "must not contain path separators"}
	}
	s := o.Style
	if !ValidColor(s.SnowlineColor) {
		return &domain.ConfigurationError{Param: "output.style.snowline_color", Value: s.SnowlineColor, Reason: "expected #RGB, #RRGGBB or a named colour"}
	}
	if !ValidColor(s.GridlineColor) {
		return &domain.ConfigurationError{Param: "output.style.gridline_color", Value: s.GridlineColor, Reason: "expected #RGB, #RRGGBB or a named colour"}
	}
	if !(s.SnowlineWidth > 0) || math.IsInf(s.SnowlineWidth, 0) {
		return &domain.ConfigurationError{Param: "output.style.snowline_width", Value: s.SnowlineWidth, Reason: "must be positive"}
	}
	if _, ok := gridlineDashes[s.GridlineStyle]; !ok {
		return &domain.ConfigurationError{Param: "output.style.gridline_style", Value: s.GridlineStyle, Reason: `expected one of "-", "--", ":", "-."`}
	}
	return nil
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var namedColors = map[string]bool{
	"black": true, "white": true, "red": true, "green": true, "blue": true,
	"cyan": true, "magenta": true, "yellow": true, "gray": true, "grey": true,
	"orange": true, "purple": true, "brown": true, "pink": true, "navy": true,
	"teal": true, "olive": true, "maroon": true, "lime": true, "aqua": true,
	"silver": true, "fuchsia": true, "lightgray": true, "lightgrey": true,
	"darkgray": true, "darkgrey": true, "darkblue": true, "lightblue": true,
	"steelblue": true, "skyblue": true, "royalblue": true, "darkgreen": true,
	"forestgreen": true, "crimson": true, "gold": true, "indigo": true,
}

// ValidColor reports whether s is a hex colour or a known colour name.
func ValidColor(s string) bool {
	return hexColor.MatchString(s) || namedColors[strings.ToLower(s)]
}

// Warnings lists non-fatal problems, such as input paths that do not exist
// yet. The caller decides how to report them.
func (c *Config) Warnings() []string {
	var out []string
	for _, p := range []struct{ param, path string }{
		{"input.snow_cover_data", c.Input.SnowCoverData},
		{"input.basemap_data", c.Input.BasemapData},
	} {
		if p.path == "" {
			continue
		}
		if _, err := os.Stat(p.path); err != nil {
			out = append(out, fmt.Sprintf("%s: %s not found", p.param, p.path))
		}
	}
	return out
}

// Summary renders the effective configuration for humans.
func (c *Config) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Input data:        %s\n", c.Input.SnowCoverData)
	if c.Input.BasemapData != "" {
		fmt.Fprintf(&b, "Basemap:           %s\n", c.Input.BasemapData)
	}
	fmt.Fprintf(&b, "Region:            %s\n", c.Region.BoundingBox)
	fmt.Fprintf(&b, "Time range:        %s to %s\n", c.Time.StartDate, c.Time.EndDate)
	fmt.Fprintf(&b, "Grid resolution:   %g°\n", c.Processing.GridResolution)
	fmt.Fprintf(&b, "Interpolation:     %s\n", c.Processing.InterpolationMethod)
	fmt.Fprintf(&b, "Smoothing sigma:   %g\n", c.Processing.SmoothingSigma)
	fmt.Fprintf(&b, "Contour level:     %g\n", c.Processing.ContourLevel)
	fmt.Fprintf(&b, "Smooth buffer:     %g°\n", c.Processing.SmoothBuffer)
	fmt.Fprintf(&b, "Simplify tol.:     %g°\n", c.Processing.SimplifyTolerance)
	fmt.Fprintf(&b, "Workers:           %d\n", c.Processing.Workers)
	fmt.Fprintf(&b, "Output directory:  %s (prefix %q)\n", c.Output.Directory, c.Output.FilenamePrefix)
	fmt.Fprintf(&b, "Outputs:           geojson=%t svg=%t\n", c.Output.GeoJSON, c.Output.SVG)
	return b.String()
}
