// Package grid provides a dense row-major 2D array of raster samples.
package grid

import (
	"fmt"
	"math"
)

// Grid is a Rows x Cols array of samples stored row by row.
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

func New(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Filled returns a grid with every cell set to value.
func Filled(rows, cols int, value float64) *Grid {
	g := New(rows, cols)
	g.Fill(value)
	return g
}

// FromRows builds a grid from a slice of equally sized rows.
func FromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	g := New(len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != g.Cols {
			return nil, fmt.Errorf("grid: row %d has %d values, want %d", r, len(row), g.Cols)
		}
		copy(g.Row(r), row)
	}
	return g, nil
}

func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

func (g *Grid) Set(row, col int, value float64) {
	g.Data[row*g.Cols+col] = value
}

// Row returns the backing slice of a single row.
func (g *Grid) Row(row int) []float64 {
	return g.Data[row*g.Cols : (row+1)*g.Cols]
}

func (g *Grid) Fill(value float64) {
	for i := range g.Data {
		g.Data[i] = value
	}
}

func (g *Grid) Clone() *Grid {
	return &Grid{Rows: g.Rows, Cols: g.Cols, Data: append([]float64(nil), g.Data...)}
}

// SameShape reports whether both grids have identical dimensions.
func (g *Grid) SameShape(other *Grid) bool {
	return g.Rows == other.Rows && g.Cols == other.Cols
}

// Window copies the rows x cols sub-array starting at (row, col).
// It panics if the window is not inside the grid.
func (g *Grid) Window(row, col, rows, cols int) *Grid {
	if row < 0 || col < 0 || rows < 0 || cols < 0 || row+rows > g.Rows || col+cols > g.Cols {
		panic(fmt.Sprintf("grid: window [%d:%d, %d:%d] out of bounds %dx%d",
			row, row+rows, col, col+cols, g.Rows, g.Cols))
	}
	w := New(rows, cols)
	for r := range rows {
		copy(w.Row(r), g.Data[(row+r)*g.Cols+col:(row+r)*g.Cols+col+cols])
	}
	return w
}

// Paste copies src into g with its top-left corner at (row, col).
// It panics if src does not fit.
func (g *Grid) Paste(src *Grid, row, col int) {
	if row < 0 || col < 0 || row+src.Rows > g.Rows || col+src.Cols > g.Cols {
		panic(fmt.Sprintf("grid: paste %dx%d at (%d, %d) out of bounds %dx%d",
			src.Rows, src.Cols, row, col, g.Rows, g.Cols))
	}
	for r := range src.Rows {
		copy(g.Data[(row+r)*g.Cols+col:], src.Row(r))
	}
}

// IsNoData reports whether v is the no-data value. A NaN no-data value
// matches any NaN.
func IsNoData(v, noData float64) bool {
	return v == noData || (math.IsNaN(noData) && math.IsNaN(v))
}

// AllNoData reports whether every cell is noData.
func (g *Grid) AllNoData(noData float64) bool {
	for _, v := range g.Data {
		if !IsNoData(v, noData) {
			return false
		}
	}
	return true
}
