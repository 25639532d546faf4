package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day layout used by SSGB files, configuration and
// output file names.
const DateLayout = "2006-01-02"

// Observation is a single SSGB site report for one day.
type Observation struct {
	Date        time.Time
	SiteID      string
	Longitude   float64
	Latitude    float64
	SnowPresent bool
	SnowDepth   *float64 // centimetres, nil when not measured
	Elevation   *float64 // metres, nil when unknown
}

// BoundingBox is a geographic extent in decimal degrees.
type BoundingBox struct {
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Width returns the longitude extent.
func (b BoundingBox) Width() float64 { return b.MaxLon - b.MinLon }

// Height returns the latitude extent.
func (b BoundingBox) Height() float64 { return b.MaxLat - b.MinLat }

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%g, %g) to (%g, %g)", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// DateRange returns every calendar day from start to end inclusive.
// It returns nil when end is before start.
func DateRange(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// FilterObservations keeps the observations inside the inclusive date range
// and the bounding box. The input slice is not modified.
func FilterObservations(obs []Observation, start, end time.Time, bbox BoundingBox) []Observation {
	start, end = Day(start), Day(end)
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		d := Day(o.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		if !bbox.Contains(o.Longitude, o.Latitude) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// GroupByDay buckets observations by calendar day, preserving input order
// within each day.
func GroupByDay(obs []Observation) map[time.Time][]Observation {
	groups := make(map[time.Time][]Observation)
	for _, o := range obs {
		d := Day(o.Date)
		groups[d] = append(groups[d], o)
	}
	return groups
}
