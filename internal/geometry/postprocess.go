package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/bmordue/snowline/internal/domain"
)

// Options controls PostProcess.
type Options struct {
	// SmoothDistance is the closing radius in degrees. Zero disables it.
	SmoothDistance float64
	// SimplifyTolerance is the Douglas-Peucker tolerance in degrees. Zero
	// disables it.
	SimplifyTolerance float64
}

// PostProcess runs Merge, Smooth and Simplify in that order and validates the
// result. A nil input yields nil with no error.
func PostProcess(mls orb.MultiLineString, opts Options) (orb.MultiLineString, error) {
	if len(mls) == 0 {
		return nil, nil
	}
	out := Simplify(Smooth(Merge(mls), opts.SmoothDistance), opts.SimplifyTolerance)
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that every line has at least two finite, non-coincident
// vertices. Failures are reported as *domain.GeometryError.
func Validate(mls orb.MultiLineString) error {
	if len(mls) == 0 {
		return &domain.GeometryError{Op: "validate", Reason: "no lines"}
	}
	for i, ls := range mls {
		if len(ls) < 2 {
			return &domain.GeometryError{Op: "validate", Reason: fmt.Sprintf("line %d has %d points", i, len(ls))}
		}
		for _, p := range ls {
			if !finite(p[0]) || !finite(p[1]) {
				return &domain.GeometryError{Op: "validate", Reason: fmt.Sprintf("line %d has non-finite coordinate %v", i, p)}
			}
		}
		if planar.Length(ls) == 0 {
			return &domain.GeometryError{Op: "validate", Reason: fmt.Sprintf("line %d has zero length", i)}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
