package isoline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fogleman/delaunay"
	"gonum.org/v1/gonum/mat"

	"github.com/bmordue/snowline/internal/domain"
)

// Method selects an interpolation strategy.
type Method string

const (
	MethodNearest Method = "nearest"
	MethodLinear  Method = "linear"
	MethodCubic   Method = "cubic"
)

// Methods lists the supported strategies.
var Methods = []Method{MethodNearest, MethodLinear, MethodCubic}

// ParseMethod validates a configuration value.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if _, ok := interpolators[m]; !ok {
		return "", &domain.ConfigurationError{
			Param: "processing.interpolation_method", Value: s,
			Reason: "expected one of nearest, linear, cubic",
		}
	}
	return m, nil
}

// FillValue is assigned to lattice nodes outside the convex hull of the
// samples. It encodes "no snow".
const FillValue = 0.0

// Sample is a scattered value at a geographic position.
type Sample struct {
	X     float64 // longitude
	Y     float64 // latitude
	Value float64
}

// SamplesFromObservations converts presence flags to 1 (snow) and 0 (none).
func SamplesFromObservations(obs []domain.Observation) []Sample {
	out := make([]Sample, len(obs))
	for i, o := range obs {
		v := 0.0
		if o.SnowPresent {
			v = 1.0
		}
		out[i] = Sample{X: o.Longitude, Y: o.Latitude, Value: v}
	}
	return out
}

// interpolator fills every lattice node covered by the triangulation. Nodes
// it does not touch keep FillValue.
type interpolator func(tri *triangulation, g *Grid, f *Field) error

var interpolators = map[Method]interpolator{
	MethodNearest: interpolateNearest,
	MethodLinear:  interpolateLinear,
	MethodCubic:   interpolateCubic,
}

// Interpolate projects samples onto the lattice with the chosen method.
// Samples sharing a coordinate are averaged first. Fewer than three distinct
// sites, or sites on a single line, yield an *domain.InsufficientDataError.
func Interpolate(method Method, samples []Sample, g *Grid) (*Field, error) {
	fn, ok := interpolators[method]
	if !ok {
		return nil, &domain.ConfigurationError{
			Param: "processing.interpolation_method", Value: string(method),
			Reason: "expected one of nearest, linear, cubic",
		}
	}

	pts := MergeCoincident(samples)
	if len(pts) < domain.MinObservations {
		return nil, &domain.InsufficientDataError{
			Count:  len(pts),
			Reason: fmt.Sprintf("need at least %d distinct sites", domain.MinObservations),
		}
	}
	if collinear(pts) {
		return nil, &domain.InsufficientDataError{Count: len(pts), Reason: "sites are collinear"}
	}

	tri, err := triangulate(pts)
	if err != nil {
		return nil, &domain.InsufficientDataError{Count: len(pts), Reason: err.Error()}
	}

	f := NewField(g.Rows(), g.Cols())
	if FillValue != 0 {
		for i := range f.Values {
			f.Values[i] = FillValue
		}
	}
	if err := fn(tri, g, f); err != nil {
		return nil, err
	}
	return f, nil
}

// MergeCoincident averages the values of samples at identical coordinates
// and returns the distinct sites sorted by (X, Y), independent of input order.
func MergeCoincident(samples []Sample) []Sample {
	type acc struct {
		sum   float64
		count int
	}
	index := make(map[[2]float64]int, len(samples))
	pts := make([]Sample, 0, len(samples))
	accs := make([]acc, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsNaN(s.Value) {
			continue
		}
		key := [2]float64{s.X, s.Y}
		i, ok := index[key]
		if !ok {
			i = len(pts)
			index[key] = i
			pts = append(pts, Sample{X: s.X, Y: s.Y})
			accs = append(accs, acc{})
		}
		accs[i].sum += s.Value
		accs[i].count++
	}
	for i := range pts {
		pts[i].Value = accs[i].sum / float64(accs[i].count)
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	return pts
}

func collinear(pts []Sample) bool {
	a := pts[0]
	// Pick the farthest point from a as the reference direction so the
	// cross-product tolerance scales with the spread of the sites.
	var b Sample
	var best float64
	for _, p := range pts[1:] {
		if d := math.Hypot(p.X-a.X, p.Y-a.Y); d > best {
			best, b = d, p
		}
	}
	if best == 0 {
		return true
	}
	for _, p := range pts[1:] {
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if math.Abs(cross) > 1e-12*best*best {
			return false
		}
	}
	return true
}

type triangulation struct {
	pts  []Sample
	tris [][3]int
}

func triangulate(pts []Sample) (*triangulation, error) {
	dp := make([]delaunay.Point, len(pts))
	for i, p := range pts {
		dp[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	t, err := delaunay.Triangulate(dp)
	if err != nil {
		return nil, fmt.Errorf("triangulate %d sites: %w", len(pts), err)
	}
	if len(t.Triangles) < 3 {
		return nil, errors.New("triangulation is empty")
	}
	tris := make([][3]int, 0, len(t.Triangles)/3)
	for i := 0; i+2 < len(t.Triangles); i += 3 {
		tris = append(tris, [3]int{t.Triangles[i], t.Triangles[i+1], t.Triangles[i+2]})
	}
	return &triangulation{pts: pts, tris: tris}, nil
}

// baryEpsilon lets nodes lying exactly on a hull edge count as covered.
const baryEpsilon = 1e-9

// cover calls visit once for every lattice node inside the triangulation,
// passing the containing triangle and the node's barycentric weights. When a
// node sits on a shared edge the first triangle in triangulation order wins.
func (t *triangulation) cover(g *Grid, visit func(r, c int, tri [3]int, w [3]float64)) {
	seen := make([]bool, g.Rows()*g.Cols())
	x0, y0, res := g.X(0), g.Y(0), g.Resolution()

	for _, tri := range t.tris {
		a, b, c := t.pts[tri[0]], t.pts[tri[1]], t.pts[tri[2]]
		det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
		if det == 0 {
			continue
		}

		minX, maxX := math.Min(a.X, math.Min(b.X, c.X)), math.Max(a.X, math.Max(b.X, c.X))
		minY, maxY := math.Min(a.Y, math.Min(b.Y, c.Y)), math.Max(a.Y, math.Max(b.Y, c.Y))
		c0 := clampIndex(int(math.Ceil((minX-x0)/res-baryEpsilon)), g.Cols())
		c1 := clampIndex(int(math.Floor((maxX-x0)/res+baryEpsilon)), g.Cols())
		r0 := clampIndex(int(math.Ceil((minY-y0)/res-baryEpsilon)), g.Rows())
		r1 := clampIndex(int(math.Floor((maxY-y0)/res+baryEpsilon)), g.Rows())

		for r := r0; r <= r1; r++ {
			y := g.Y(r)
			for col := c0; col <= c1; col++ {
				idx := r*g.Cols() + col
				if seen[idx] {
					continue
				}
				x := g.X(col)
				w0 := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / det
				w1 := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / det
				w2 := 1 - w0 - w1
				if w0 < -baryEpsilon || w1 < -baryEpsilon || w2 < -baryEpsilon {
					continue
				}
				seen[idx] = true
				visit(r, col, tri, [3]float64{w0, w1, w2})
			}
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

func interpolateLinear(t *triangulation, g *Grid, f *Field) error {
	t.cover(g, func(r, c int, tri [3]int, w [3]float64) {
		v := w[0]*t.pts[tri[0]].Value + w[1]*t.pts[tri[1]].Value + w[2]*t.pts[tri[2]].Value
		f.Set(r, c, clamp01(v))
	})
	return nil
}

func interpolateNearest(t *triangulation, g *Grid, f *Field) error {
	t.cover(g, func(r, c int, _ [3]int, _ [3]float64) {
		x, y := g.X(c), g.Y(r)
		best, bestD := 0, math.Inf(1)
		for i, p := range t.pts {
			dx, dy := p.X-x, p.Y-y
			if d := dx*dx + dy*dy; d < bestD {
				best, bestD = i, d
			}
		}
		f.Set(r, c, t.pts[best].Value)
	})
	return nil
}

// interpolateCubic fits a polyharmonic spline with kernel r³ and a linear
// polynomial tail, then evaluates it inside the hull. Coordinates are
// centred and scaled before the solve to keep the system well conditioned.
func interpolateCubic(t *triangulation, g *Grid, f *Field) error {
	n := len(t.pts)
	var cx, cy float64
	for _, p := range t.pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(n)
	cy /= float64(n)
	scale := 0.0
	for _, p := range t.pts {
		scale = math.Max(scale, math.Max(math.Abs(p.X-cx), math.Abs(p.Y-cy)))
	}
	if scale == 0 {
		scale = 1
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range t.pts {
		xs[i] = (p.X - cx) / scale
		ys[i] = (p.Y - cy) / scale
	}

	m := n + 3
	a := mat.NewDense(m, m, nil)
	b := mat.NewVecDense(m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, cubicKernel(xs[i]-xs[j], ys[i]-ys[j]))
		}
		a.Set(i, n, 1)
		a.Set(i, n+1, xs[i])
		a.Set(i, n+2, ys[i])
		a.Set(n, i, 1)
		a.Set(n+1, i, xs[i])
		a.Set(n+2, i, ys[i])
		b.SetVec(i, t.pts[i].Value)
	}

	var w mat.VecDense
	if err := w.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return &domain.InsufficientDataError{Count: n, Reason: fmt.Sprintf("cubic fit: %v", err)}
		}
	}

	t.cover(g, func(r, c int, _ [3]int, _ [3]float64) {
		x := (g.X(c) - cx) / scale
		y := (g.Y(r) - cy) / scale
		v := w.AtVec(n) + w.AtVec(n+1)*x + w.AtVec(n+2)*y
		for i := 0; i < n; i++ {
			v += w.AtVec(i) * cubicKernel(x-xs[i], y-ys[i])
		}
		f.Set(r, c, clamp01(v))
	})
	return nil
}

func cubicKernel(dx, dy float64) float64 {
	r := math.Hypot(dx, dy)
	return r * r * r
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
