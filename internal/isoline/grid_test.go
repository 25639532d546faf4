package isoline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmordue/snowline/internal/domain"
)

var scotland = domain.BoundingBox{MinLon: -5, MaxLon: -3, MinLat: 56, MaxLat: 58}

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(scotland, 0.1)
	require.NoError(t, err)

	assert.Equal(t, 20, g.Cols())
	assert.Equal(t, 20, g.Rows())
	assert.Equal(t, -5.0, g.X(0))
	assert.Equal(t, 56.0, g.Y(0))
	assert.InDelta(t, -3.1, g.X(g.Cols()-1), 1e-9)
	assert.InDelta(t, 57.9, g.Y(g.Rows()-1), 1e-9)
	assert.Less(t, g.X(g.Cols()-1), scotland.MaxLon)
	assert.Equal(t, 0.1, g.Resolution())
}

func TestNewGrid_Deterministic(t *testing.T) {
	a, err := NewGrid(scotland, 0.03)
	require.NoError(t, err)
	b, err := NewGrid(scotland, 0.03)
	require.NoError(t, err)

	assert.Equal(t, a.x, b.x)
	assert.Equal(t, a.y, b.y)
}

func TestNewGrid_MinimumTwoNodes(t *testing.T) {
	g, err := NewGrid(domain.BoundingBox{MinLon: 0, MaxLon: 1, MinLat: 0, MaxLat: 1}, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Cols())
	assert.Equal(t, 2, g.Rows())
}

func TestNewGrid_Errors(t *testing.T) {
	tests := []struct {
		name string
		bbox domain.BoundingBox
		res  float64
	}{
		{"zero resolution", scotland, 0},
		{"negative resolution", scotland, -0.1},
		{"resolution wider than box", scotland, 2},
		{"inverted longitude", domain.BoundingBox{MinLon: 1, MaxLon: 0, MinLat: 0, MaxLat: 1}, 0.1},
		{"empty latitude", domain.BoundingBox{MinLon: 0, MaxLon: 1, MinLat: 1, MaxLat: 1}, 0.1},
		{"too many cells", domain.BoundingBox{MinLon: 0, MaxLon: 100, MinLat: 0, MaxLat: 100}, 0.001},
		{"cell count overflows int", scotland, 1e-20},
		{"cell count overflows float", scotland, 1e-300},
		{"subnormal resolution", scotland, 5e-324},
		{"NaN resolution", scotland, math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.bbox, tt.res)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Nil(t, g)
		})
	}
}

func TestField_CloneIsIndependent(t *testing.T) {
	f := NewField(2, 3)
	f.Set(1, 2, 0.5)
	c := f.Clone()
	c.Set(1, 2, 1)

	assert.Equal(t, 0.5, f.At(1, 2))
	assert.Equal(t, 1.0, c.At(1, 2))
}
