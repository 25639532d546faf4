package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Status classifies the outcome of snowline extraction for one day.
type Status string

const (
	StatusOK               Status = "ok"
	StatusNoSnow           Status = "no_snow"
	StatusCompleteSnow     Status = "complete_snow"
	StatusInsufficientData Status = "insufficient_data"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusOK, StatusNoSnow, StatusCompleteSnow, StatusInsufficientData}

// MinObservations is the smallest number of reports a mixed day needs
// before it is interpolated.
const MinObservations = 3

// SnowlineResult is the outcome for a single day. Geometry is nil for every
// status other than ok, and for ok days whose boundary degenerated.
type SnowlineResult struct {
	Date             time.Time
	Geometry         orb.MultiLineString
	ObservationCount int
	Status           Status
	Detail           string // reason for a nil geometry, empty when not applicable
}

// HasGeometry reports whether the result carries at least one line.
func (r SnowlineResult) HasGeometry() bool {
	return len(r.Geometry) > 0
}

// Classify inspects the snow flags of a day's reports. All-true days are
// complete_snow and all-false days are no_snow, whatever their count.
// Mixed days need MinObservations reports to be ok; fewer, or none at all,
// is insufficient_data.
func Classify(obs []Observation) Status {
	if len(obs) == 0 {
		return StatusInsufficientData
	}
	var snow int
	for _, o := range obs {
		if o.SnowPresent {
			snow++
		}
	}
	switch snow {
	case len(obs):
		return StatusCompleteSnow
	case 0:
		return StatusNoSnow
	}
	if len(obs) < MinObservations {
		return StatusInsufficientData
	}
	return StatusOK
}

// Results is the date-ordered output of a pipeline run.
type Results []SnowlineResult

// CountByStatus tallies results per status.
func (rs Results) CountByStatus() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, r := range rs {
		counts[r.Status]++
	}
	return counts
}
