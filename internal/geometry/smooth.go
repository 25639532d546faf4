package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// quadrantSegments is the number of chords used to approximate a quarter
// circle when rounding corners.
const quadrantSegments = 8

// Smooth removes features narrower than 2*d. Excursions whose mouth is at
// most 2*d wide and whose path is short enough for a disk of radius d to
// roll over are bridged, then the remaining corners are rounded with
// fillets of radius d. Endpoints of open lines stay fixed. A closed ring
// that would collapse is returned unchanged.
func Smooth(mls orb.MultiLineString, d float64) orb.MultiLineString {
	if len(mls) == 0 {
		return nil
	}
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return mls.Clone()
	}
	out := make(orb.MultiLineString, 0, len(mls))
	for _, ls := range mls {
		out = append(out, roundCorners(bridge(ls, d), d))
	}
	return out
}

func bridge(ls orb.LineString, d float64) orb.LineString {
	n := len(ls)
	if n < 3 {
		return ls.Clone()
	}
	closed := isClosed(ls)
	reach := 2 * d
	maxArc := math.Pi * reach

	out := orb.LineString{ls[0]}
	for i := 0; i < n-1; {
		last := n - 1
		if closed && i == 0 {
			last = n - 2
		}
		j := i + 1
		arc := planar.Distance(ls[i], ls[i+1])
		for k := i + 2; k <= last; k++ {
			arc += planar.Distance(ls[k-1], ls[k])
			if arc > maxArc {
				break
			}
			if planar.Distance(ls[i], ls[k]) <= reach {
				j = k
			}
		}
		out = append(out, ls[j])
		i = j
	}
	if closed && len(out) < 4 {
		return ls.Clone()
	}
	return out
}

func roundCorners(ls orb.LineString, d float64) orb.LineString {
	n := len(ls)
	if n < 3 {
		return ls.Clone()
	}

	if !isClosed(ls) {
		out := orb.LineString{ls[0]}
		for k := 1; k < n-1; k++ {
			out = append(out, fillet(ls[k-1], ls[k], ls[k+1], d)...)
		}
		out = append(out, ls[n-1])
		return dedupe(out)
	}

	m := n - 1
	if m < 3 {
		return ls.Clone()
	}
	var out orb.LineString
	for k := 0; k < m; k++ {
		out = append(out, fillet(ls[(k-1+m)%m], ls[k], ls[(k+1)%m], d)...)
	}
	out = dedupe(append(out, out[0]))
	if len(out) < 4 {
		return ls.Clone()
	}
	return out
}

// fillet replaces the corner at b with a circular arc of radius at most d
// tangent to both legs. The tangent points never pass the midpoint of a
// leg, so neighbouring fillets cannot overlap.
func fillet(a, b, c orb.Point, d float64) []orb.Point {
	la, lc := planar.Distance(a, b), planar.Distance(b, c)
	if la == 0 || lc == 0 {
		return []orb.Point{b}
	}
	ux, uy := (a[0]-b[0])/la, (a[1]-b[1])/la
	vx, vy := (c[0]-b[0])/lc, (c[1]-b[1])/lc

	cos := math.Max(-1, math.Min(1, ux*vx+uy*vy))
	phi := math.Acos(cos)
	if phi < 1e-6 || phi > math.Pi-1e-6 {
		return []orb.Point{b}
	}

	half := phi / 2
	t := math.Min(d/math.Tan(half), math.Min(la, lc)/2)
	r := t * math.Tan(half)

	wx, wy := ux+vx, uy+vy
	wl := math.Hypot(wx, wy)
	dist := r / math.Sin(half)
	o := orb.Point{b[0] + wx/wl*dist, b[1] + wy/wl*dist}

	t1 := orb.Point{b[0] + ux*t, b[1] + uy*t}
	t2 := orb.Point{b[0] + vx*t, b[1] + vy*t}

	a1 := math.Atan2(t1[1]-o[1], t1[0]-o[0])
	a2 := math.Atan2(t2[1]-o[1], t2[0]-o[0])
	sweep := a2 - a1
	for sweep > math.Pi {
		sweep -= 2 * math.Pi
	}
	for sweep <= -math.Pi {
		sweep += 2 * math.Pi
	}

	segs := int(math.Ceil(math.Abs(sweep) / (math.Pi / 2) * quadrantSegments))
	if segs < 1 {
		segs = 1
	}
	pts := make([]orb.Point, 0, segs+1)
	pts = append(pts, t1)
	for s := 1; s < segs; s++ {
		angle := a1 + sweep*float64(s)/float64(segs)
		pts = append(pts, orb.Point{o[0] + r*math.Cos(angle), o[1] + r*math.Sin(angle)})
	}
	return append(pts, t2)
}

func dedupe(ls orb.LineString) orb.LineString {
	if len(ls) == 0 {
		return ls
	}
	out := ls[:1]
	for _, p := range ls[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
