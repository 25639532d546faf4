package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify removes vertices with Douglas-Peucker at tolerance degrees. Line
// endpoints are kept. A closed ring that would collapse below four points is
// returned unchanged.
func Simplify(mls orb.MultiLineString, tolerance float64) orb.MultiLineString {
	if len(mls) == 0 {
		return nil
	}
	out := mls.Clone()
	if tolerance <= 0 {
		return out
	}
	dp := simplify.DouglasPeucker(tolerance)
	for i, ls := range out {
		closed := isClosed(ls)
		simplified := dp.LineString(ls.Clone())
		if (closed && len(simplified) < 4) || len(simplified) < 2 {
			continue
		}
		out[i] = simplified
	}
	return out
}

func isClosed(ls orb.LineString) bool {
	return len(ls) > 2 && ls[0] == ls[len(ls)-1]
}
