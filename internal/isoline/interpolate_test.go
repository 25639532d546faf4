package isoline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmordue/snowline/internal/domain"
)

var unitBox = domain.BoundingBox{MinLon: 0, MaxLon: 1, MinLat: 0, MaxLat: 1}

func unitGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(unitBox, 0.25)
	require.NoError(t, err)
	return g
}

// corners carries a value equal to the longitude.
var corners = []Sample{
	{X: 0, Y: 0, Value: 0},
	{X: 1, Y: 0, Value: 1},
	{X: 0, Y: 1, Value: 0},
	{X: 1, Y: 1, Value: 1},
}

func TestInterpolate_LinearReproducesPlane(t *testing.T) {
	g := unitGrid(t)
	f, err := Interpolate(MethodLinear, corners, g)
	require.NoError(t, err)

	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			assert.InDelta(t, g.X(c), f.At(r, c), 1e-9, "node (%d,%d)", r, c)
		}
	}
}

func TestInterpolate_Nearest(t *testing.T) {
	g := unitGrid(t)
	f, err := Interpolate(MethodNearest, corners, g)
	require.NoError(t, err)

	for r := 0; r < g.Rows(); r++ {
		assert.Equal(t, 0.0, f.At(r, 0))
		assert.Equal(t, 0.0, f.At(r, 1))
		assert.Equal(t, 1.0, f.At(r, 3))
	}
}

func TestInterpolate_CubicHonoursSamples(t *testing.T) {
	g := unitGrid(t)
	var samples []Sample
	for i := 0; i <= 4; i++ {
		for j := 0; j <= 4; j++ {
			y := float64(j) * 0.25
			v := 0.0
			if y > 0.5 {
				v = 1
			}
			samples = append(samples, Sample{X: float64(i) * 0.25, Y: y, Value: v})
		}
	}

	f, err := Interpolate(MethodCubic, samples, g)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, f.At(3, 1), 1e-6)
	assert.InDelta(t, 0.0, f.At(1, 1), 1e-6)
	assert.InDelta(t, 0.0, f.At(2, 2), 1e-6)
}

func TestInterpolate_OutsideHullIsFill(t *testing.T) {
	g := unitGrid(t)
	tri := []Sample{{X: 0, Y: 0, Value: 1}, {X: 0.5, Y: 0, Value: 1}, {X: 0, Y: 0.5, Value: 1}}

	for _, m := range Methods {
		t.Run(string(m), func(t *testing.T) {
			f, err := Interpolate(m, tri, g)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, f.At(0, 0), 1e-9)
			assert.InDelta(t, 1.0, f.At(1, 1), 1e-9, "hull edge counts as inside")
			assert.Equal(t, FillValue, f.At(3, 3))
			assert.Equal(t, FillValue, f.At(0, 3))
		})
	}
}

func TestInterpolate_ValuesWithinUnitInterval(t *testing.T) {
	g := unitGrid(t)
	samples := []Sample{
		{X: 0, Y: 0, Value: 1}, {X: 1, Y: 0, Value: 0}, {X: 0, Y: 1, Value: 0},
		{X: 1, Y: 1, Value: 1}, {X: 0.5, Y: 0.5, Value: 0}, {X: 0.2, Y: 0.7, Value: 1},
	}
	for _, m := range Methods {
		t.Run(string(m), func(t *testing.T) {
			f, err := Interpolate(m, samples, g)
			require.NoError(t, err)
			for _, v := range f.Values {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		})
	}
}

func TestInterpolate_InsufficientData(t *testing.T) {
	g := unitGrid(t)
	tests := []struct {
		name    string
		samples []Sample
	}{
		{"none", nil},
		{"two sites", []Sample{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		{"duplicates collapse", []Sample{{X: 0, Y: 0}, {X: 0, Y: 0, Value: 1}, {X: 1, Y: 1}}},
		{"collinear", []Sample{{X: 0, Y: 0}, {X: 0.5, Y: 0.5}, {X: 1, Y: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpolate(MethodLinear, tt.samples, g)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInsufficientData)
		})
	}
}

func TestInterpolate_UnknownMethod(t *testing.T) {
	_, err := Interpolate(Method("bicubic"), corners, unitGrid(t))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("cubic")
	require.NoError(t, err)
	assert.Equal(t, MethodCubic, m)

	_, err = ParseMethod("spline")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestMergeCoincident(t *testing.T) {
	in := []Sample{
		{X: 1, Y: 0, Value: 1},
		{X: 0, Y: 0, Value: 1},
		{X: 0, Y: 0, Value: 0},
		{X: 0, Y: 1, Value: 1},
	}
	want := []Sample{
		{X: 0, Y: 0, Value: 0.5},
		{X: 0, Y: 1, Value: 1},
		{X: 1, Y: 0, Value: 1},
	}
	if diff := cmp.Diff(want, MergeCoincident(in)); diff != "" {
		t.Errorf("MergeCoincident mismatch (-want +got):\n%s", diff)
	}

	reversed := []Sample{in[3], in[2], in[1], in[0]}
	if diff := cmp.Diff(want, MergeCoincident(reversed)); diff != "" {
		t.Errorf("order dependence (-want +got):\n%s", diff)
	}
}

func TestSamplesFromObservations(t *testing.T) {
	obs := []domain.Observation{
		{Longitude: -4, Latitude: 57, SnowPresent: true},
		{Longitude: -3, Latitude: 56},
	}
	got := SamplesFromObservations(obs)
	assert.Equal(t, []Sample{{X: -4, Y: 57, Value: 1}, {X: -3, Y: 56, Value: 0}}, got)
}
