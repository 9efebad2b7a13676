// Package tile splits raster dimensions into rectangular tiles.
package tile

import (
	"errors"
	"fmt"
)

var ErrInvalidSize = errors.New("rasterchunk: invalid partition size")

// ID identifies a tile by its row and column index in the partition.
type ID struct {
	Row int
	Col int
}

func (id ID) String() string {
	return fmt.Sprintf("%d-%d", id.Row, id.Col)
}

// Spec holds the half-open bounds [XStart, XEnd) x [YStart, YEnd) of a tile
// in raster coordinates.
type Spec struct {
	ID     ID
	XStart int
	YStart int
	XEnd   int
	YEnd   int
}

func (s Spec) Width() int  { return s.XEnd - s.XStart }
func (s Spec) Height() int { return s.YEnd - s.YStart }

func (s Spec) String() string {
	return fmt.Sprintf("tile %v [%d:%d, %d:%d]", s.ID, s.YStart, s.YEnd, s.XStart, s.XEnd)
}

// Breaks returns 0, size, 2*size, ..., n. The last break is always n,
// even when it produces a shorter final tile.
func Breaks(n, size int) []int {
	breaks := make([]int, 0, n/size+2)
	for b := 0; b < n; b += size {
		breaks = append(breaks, b)
	}
	return append(breaks, n)
}

// Partition splits a rows x cols raster into tiles of at most size x size
// cells, enumerated in row-major order. A raster that fits in one tile
// yields a single tile covering all of it.
func Partition(rows, cols, size int) ([]Spec, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: tile size %d", ErrInvalidSize, size)
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: raster %dx%d", ErrInvalidSize, rows, cols)
	}

	rowBreaks := Breaks(rows, size)
	colBreaks := Breaks(cols, size)

	specs := make([]Spec, 0, (len(rowBreaks)-1)*(len(colBreaks)-1))
	for i := range len(rowBreaks) - 1 {
		for j := range len(colBreaks) - 1 {
			specs = append(specs, Spec{
				ID:     ID{Row: i, Col: j},
				XStart: colBreaks[j],
				YStart: rowBreaks[i],
				XEnd:   colBreaks[j+1],
				YEnd:   rowBreaks[i+1],
			})
		}
	}
	return specs, nil
}
