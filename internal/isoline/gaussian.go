package isoline

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// gaussianTruncate is the kernel half-width in standard deviations.
const gaussianTruncate = 4.0

// Smooth applies a separable Gaussian filter with standard deviation sigma,
// measured in lattice cells. Borders reflect about the edge (d c b a | a b c d).
// A non-positive sigma returns an unmodified copy.
func Smooth(f *Field, sigma float64) *Field {
	out := f.Clone()
	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return out
	}
	kernel := gaussianKernel(sigma)

	row := make([]float64, f.Cols)
	for r := 0; r < f.Rows; r++ {
		copy(row, out.Values[r*f.Cols:(r+1)*f.Cols])
		convolve1D(row, kernel, out.Values[r*f.Cols:(r+1)*f.Cols])
	}

	col := make([]float64, f.Rows)
	dst := make([]float64, f.Rows)
	for c := 0; c < f.Cols; c++ {
		for r := 0; r < f.Rows; r++ {
			col[r] = out.Values[r*f.Cols+c]
		}
		convolve1D(col, kernel, dst)
		for r := 0; r < f.Rows; r++ {
			out.Values[r*f.Cols+c] = dst[r]
		}
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// convolve1D writes the kernel-weighted average of src into dst, which may
// not alias src.
func convolve1D(src, kernel, dst []float64) {
	n := len(src)
	radius := len(kernel) / 2
	for i := 0; i < n; i++ {
		var sum float64
		for k, w := range kernel {
			sum += w * src[reflectIndex(i+k-radius, n)]
		}
		dst[i] = sum
	}
}

// reflectIndex folds an out-of-range index back into [0, n) by mirroring
// about the array edges, including the edge sample itself.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
