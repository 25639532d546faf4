package isoline

import (
	"math"

	"github.com/paulmach/orb"
)

// Assemble maps index-space lines onto geographic coordinates. Each vertex
// is rounded to the nearest lattice node (ties to even); vertices that fall
// outside the lattice are dropped, as are repeated points and immediate
// back-tracks. Lines left with fewer than two points are discarded. The
// result is nil when nothing survives.
func Assemble(g *Grid, lines []IndexLine) orb.MultiLineString {
	var out orb.MultiLineString
	for _, line := range lines {
		ls := make(orb.LineString, 0, len(line))
		for _, p := range line {
			r := int(math.RoundToEven(p.Row))
			c := int(math.RoundToEven(p.Col))
			if r < 0 || r >= g.Rows() || c < 0 || c >= g.Cols() {
				continue
			}
			pt := orb.Point{g.X(c), g.Y(r)}
			n := len(ls)
			switch {
			case n > 0 && ls[n-1] == pt:
				continue
			case n > 1 && ls[n-2] == pt:
				ls = ls[:n-1]
				continue
			}
			ls = append(ls, pt)
		}
		if len(ls) < 2 {
			continue
		}
		out = append(out, ls)
	}
	return out
}
