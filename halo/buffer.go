package halo

import (
	"fmt"

	"github.com/eak1mov/go-rasterchunk/grid"
)

// NewBuffer allocates the padded buffer for g filled with noData and copies
// the read window into the paste region.
func NewBuffer(g Geometry, read *grid.Grid, noData float64) (*grid.Grid, error) {
	if read.Rows != g.ReadSizeY || read.Cols != g.ReadSizeX {
		return nil, fmt.Errorf("%w: read %dx%d, want %dx%d", ErrGeometry,
			read.Rows, read.Cols, g.ReadSizeY, g.ReadSizeX)
	}
	buffer := grid.Filled(g.Height, g.Width, noData)
	buffer.Paste(read, g.PasteStartY, g.PasteStartX)
	return buffer, nil
}

// Inner returns a copy of the tile region of a padded buffer, without halo.
func Inner(buffer *grid.Grid, g Geometry) *grid.Grid {
	return buffer.Window(g.Halo, g.Halo, g.Height-2*g.Halo, g.Width-2*g.Halo)
}

// Trim strips the halo from an operation output. The output must keep the
// padded buffer shape.
func Trim(out *grid.Grid, g Geometry) (*grid.Grid, error) {
	if out.Rows != g.Height || out.Cols != g.Width {
		return nil, fmt.Errorf("%w: operation returned %dx%d, want %dx%d", ErrGeometry,
			out.Rows, out.Cols, g.Height, g.Width)
	}
	return Inner(out, g), nil
}

// RestoreNoData sets every cell of trimmed to noData where the same cell of
// the pre-operation buffer was noData.
func RestoreNoData(trimmed, buffer *grid.Grid, g Geometry, noData float64) {
	for r := range trimmed.Rows {
		src := buffer.Row(r + g.Halo)[g.Halo : g.Halo+trimmed.Cols]
		dst := trimmed.Row(r)
		for c, v := range src {
			if grid.IsNoData(v, noData) {
				dst[c] = noData
			}
		}
	}
}
