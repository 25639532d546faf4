package isoline

import (
	"fmt"
	"math"

	"github.com/bmordue/snowline/internal/domain"
)

// MaxGridCells caps the lattice size so a typo in the resolution fails at
// configuration time instead of exhausting memory on the first date.
const MaxGridCells = 16_000_000

// gridEpsilon absorbs floating-point noise when the extent is an exact
// multiple of the resolution (2.0/0.05 is 40.000000000000004).
const gridEpsilon = 1e-9

// Grid is an immutable regular lattice over a bounding box. X holds
// longitudes (columns), Y holds latitudes (rows); both start at the box
// minimum and stay strictly below the maximum, like a half-open range.
type Grid struct {
	bbox       domain.BoundingBox
	resolution float64
	x          []float64
	y          []float64
}

// NewGrid builds the lattice for bbox at the given resolution in degrees.
// Coordinates are computed as min + i*resolution so repeated builds are
// bit-identical.
func NewGrid(bbox domain.BoundingBox, resolution float64) (*Grid, error) {
	if math.IsNaN(resolution) || math.IsInf(resolution, 0) || resolution <= 0 {
		return nil, &domain.ConfigurationError{
			Param: "processing.grid_resolution", Value: resolution,
			Reason: "must be a positive number of degrees",
		}
	}
	if bbox.MinLon >= bbox.MaxLon || bbox.MinLat >= bbox.MaxLat {
		return nil, &domain.ConfigurationError{
			Param: "region.bounding_box", Value: bbox.String(),
			Reason: "min must be less than max on both axes",
		}
	}
	if resolution >= bbox.Width() {
		return nil, &domain.ConfigurationError{
			Param: "processing.grid_resolution", Value: resolution,
			Reason: fmt.Sprintf("must be smaller than the longitude extent %g", bbox.Width()),
		}
	}
	if resolution >= bbox.Height() {
		return nil, &domain.ConfigurationError{
			Param: "processing.grid_resolution", Value: resolution,
			Reason: fmt.Sprintf("must be smaller than the latitude extent %g", bbox.Height()),
		}
	}

	// Count in float64 first: a tiny resolution overflows int.
	fx := axisLength(bbox.Width(), resolution)
	fy := axisLength(bbox.Height(), resolution)
	if cells := fx * fy; math.IsNaN(cells) || math.IsInf(cells, 0) || cells > MaxGridCells {
		return nil, &domain.ConfigurationError{
			Param: "processing.grid_resolution", Value: resolution,
			Reason: fmt.Sprintf("lattice of %gx%g exceeds %d cells", fx, fy, MaxGridCells),
		}
	}
	nx, ny := int(fx), int(fy)

	return &Grid{
		resolution: resolution,
		x:          enumerate(bbox.MinLon, resolution, nx),
		y:          enumerate(bbox.MinLat, resolution, ny),
	}, nil
}

// axisLength mirrors a half-open arange over [0, extent) with at least two
// nodes, so every axis spans one full cell.
func axisLength(extent, resolution float64) float64 {
	return math.Max(math.Ceil(extent/resolution-gridEpsilon), 2)
}

func enumerate(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Cols returns the number of lattice columns (longitudes).
func (g *Grid) Cols() int { return len(g.x) }

// Rows returns the number of lattice rows (latitudes).
func (g *Grid) Rows() int { return len(g.y) }

// X returns the longitude of column i.
func (g *Grid) X(i int) float64 { return g.x[i] }

// Y returns the latitude of row j.
func (g *Grid) Y(j int) float64 { return g.y[j] }

// Resolution returns the cell size in degrees.
func (g *Grid) Resolution() float64 { return g.resolution }

// Field is a scalar value per lattice node, stored row-major with row j at
// latitude Y(j) and column i at longitude X(i).
type Field struct {
	Rows   int
	Cols   int
	Values []float64
}

// NewField allocates a zero-valued field of the given shape.
func NewField(rows, cols int) *Field {
	return &Field{Rows: rows, Cols: cols, Values: make([]float64, rows*cols)}
}

// At returns the value at row r, column c.
func (f *Field) At(r, c int) float64 { return f.Values[r*f.Cols+c] }

// Set stores v at row r, column c.
func (f *Field) Set(r, c int, v float64) { f.Values[r*f.Cols+c] = v }

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	return &Field{Rows: f.Rows, Cols: f.Cols, Values: append([]float64(nil), f.Values...)}
}
