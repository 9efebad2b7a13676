package ops

import (
	"math"

	"github.com/eak1mov/go-rasterchunk/grid"
)

// toNaN returns a copy of g with no-data cells replaced by NaN.
func toNaN(g *grid.Grid, noData float64) *grid.Grid {
	out := g.Clone()
	for i, v := range out.Data {
		if grid.IsNoData(v, noData) {
			out.Data[i] = math.NaN()
		}
	}
	return out
}

// fromNaN replaces NaN cells of g with noData in place.
func fromNaN(g *grid.Grid, noData float64) *grid.Grid {
	for i, v := range g.Data {
		if math.IsNaN(v) {
			g.Data[i] = noData
		}
	}
	return g
}

// circleSpans returns, for every row offset dy in [-radius, radius], the
// half-width of the circular footprint x²+y² <= radius².
func circleSpans(radius int) []int {
	spans := make([]int, 2*radius+1)
	for dy := -radius; dy <= radius; dy++ {
		w := 0
		for (w+1)*(w+1)+dy*dy <= radius*radius {
			w++
		}
		spans[dy+radius] = w
	}
	return spans
}

// focalMean computes the mean of non-NaN cells within a circle of the given
// radius around every cell. Cells outside the grid are missing. A cell with
// no valid neighbours is NaN.
func focalMean(g *grid.Grid, radius int) *grid.Grid {
	// per-row prefix sums of values and valid counts
	sums := make([]float64, g.Rows*(g.Cols+1))
	counts := make([]int, g.Rows*(g.Cols+1))
	for r := range g.Rows {
		base := r * (g.Cols + 1)
		for c, v := range g.Row(r) {
			sums[base+c+1] = sums[base+c]
			counts[base+c+1] = counts[base+c]
			if !math.IsNaN(v) {
				sums[base+c+1] += v
				counts[base+c+1]++
			}
		}
	}

	spans := circleSpans(radius)
	out := grid.New(g.Rows, g.Cols)
	for r := range g.Rows {
		for c := range g.Cols {
			sum, n := 0.0, 0
			for dy := -radius; dy <= radius; dy++ {
				row := r + dy
				if row < 0 || row >= g.Rows {
					continue
				}
				w := spans[dy+radius]
				c0, c1 := max(0, c-w), min(g.Cols-1, c+w)
				base := row * (g.Cols + 1)
				sum += sums[base+c1+1] - sums[base+c0]
				n += counts[base+c1+1] - counts[base+c0]
			}
			if n == 0 {
				out.Data[r*g.Cols+c] = math.NaN()
			} else {
				out.Data[r*g.Cols+c] = sum / float64(n)
			}
		}
	}
	return out
}

// convolveRows convolves every row of g with the symmetric kernel k.
// Cells outside the grid contribute zero.
func convolveRows(g *grid.Grid, k []float64) *grid.Grid {
	radius := len(k) / 2
	out := grid.New(g.Rows, g.Cols)
	for r := range g.Rows {
		src, dst := g.Row(r), out.Row(r)
		for c := range dst {
			s := 0.0
			for i := max(0, c-radius); i <= min(g.Cols-1, c+radius); i++ {
				s += k[i-c+radius] * src[i]
			}
			dst[c] = s
		}
	}
	return out
}

// convolveCols is convolveRows along columns.
func convolveCols(g *grid.Grid, k []float64) *grid.Grid {
	radius := len(k) / 2
	out := grid.New(g.Rows, g.Cols)
	for r := range g.Rows {
		dst := out.Row(r)
		for i := max(0, r-radius); i <= min(g.Rows-1, r+radius); i++ {
			w := k[i-r+radius]
			for c, v := range g.Row(i) {
				dst[c] += w * v
			}
		}
	}
	return out
}

// gradient returns the derivatives of g along rows (axis 0) and columns
// (axis 1) with spacing h: central differences inside and second-order
// one-sided differences on the edges.
func gradient(g *grid.Grid, h float64) (dRow, dCol *grid.Grid) {
	dRow = grid.New(g.Rows, g.Cols)
	dCol = grid.New(g.Rows, g.Cols)
	line := func(get func(int) float64, set func(int, float64), n int) {
		switch {
		case n == 1:
			set(0, 0)
		case n == 2:
			d := (get(1) - get(0)) / h
			set(0, d)
			set(1, d)
		default:
			set(0, (-3*get(0)+4*get(1)-get(2))/(2*h))
			for i := 1; i < n-1; i++ {
				set(i, (get(i+1)-get(i-1))/(2*h))
			}
			set(n-1, (3*get(n-1)-4*get(n-2)+get(n-3))/(2*h))
		}
	}
	for c := range g.Cols {
		line(
			func(i int) float64 { return g.At(i, c) },
			func(i int, v float64) { dRow.Set(i, c, v) },
			g.Rows,
		)
	}
	for r := range g.Rows {
		src, dst := g.Row(r), dCol.Row(r)
		line(
			func(i int) float64 { return src[i] },
			func(i int, v float64) { dst[i] = v },
			g.Cols,
		)
	}
	return dRow, dCol
}
