// Package halo computes the padded read window around a tile and manages
// the padded tile buffer that operations run on.
//
// A tile of size H x W with halo h is processed in a buffer of size
// (H+2h) x (W+2h). Where the padded window extends past the raster edge the
// read window is clamped and the uncovered part of the buffer keeps the
// no-data value.
package halo

import (
	"errors"
	"fmt"

	"github.com/eak1mov/go-rasterchunk/tile"
)

var ErrGeometry = errors.New("rasterchunk: invalid tile geometry")

// Geometry describes where to read a padded tile from the raster and where
// the read data lands inside the padded buffer.
type Geometry struct {
	Halo int

	// Padded buffer size.
	Width  int
	Height int

	// Read window in raster coordinates.
	ReadOffsetX int
	ReadOffsetY int
	ReadSizeX   int
	ReadSizeY   int

	// Paste region in buffer coordinates, half-open.
	PasteStartX int
	PasteEndX   int
	PasteStartY int
	PasteEndY   int
}

// Clamped reports whether any side of the padded window was clamped to the
// raster boundary.
func (g Geometry) Clamped() bool {
	return g.PasteStartX != 0 || g.PasteStartY != 0 || g.PasteEndX != g.Width || g.PasteEndY != g.Height
}

// Resolve computes the read window and paste region for s with halo h on a
// rows x cols raster. Each side is clamped independently, so a corner tile
// is clamped on two sides and a tile spanning the raster on all four.
func Resolve(s tile.Spec, h, rows, cols int) (Geometry, error) {
	if h < 0 {
		return Geometry{}, fmt.Errorf("%w: negative halo %d", ErrGeometry, h)
	}
	if s.XStart < 0 || s.YStart < 0 || s.XEnd > cols || s.YEnd > rows || s.Width() <= 0 || s.Height() <= 0 {
		return Geometry{}, fmt.Errorf("%w: %v outside raster %dx%d", ErrGeometry, s, rows, cols)
	}

	g := Geometry{Halo: h}
	g.ReadOffsetX, g.ReadSizeX, g.PasteStartX, g.PasteEndX, g.Width = resolveAxis(s.XStart, s.XEnd, h, cols)
	g.ReadOffsetY, g.ReadSizeY, g.PasteStartY, g.PasteEndY, g.Height = resolveAxis(s.YStart, s.YEnd, h, rows)

	if err := g.validate(rows, cols); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func resolveAxis(start, end, h, dim int) (readOffset, readSize, pasteStart, pasteEnd, padded int) {
	padded = end - start + 2*h
	readOffset = start - h
	readSize = padded
	pasteStart = 0
	pasteEnd = padded

	if lower := h - start; lower > 0 {
		readOffset = 0
		readSize -= lower
		pasteStart = lower
	}
	if upper := end + h - dim; upper > 0 {
		readSize -= upper
		pasteEnd -= upper
	}
	return readOffset, readSize, pasteStart, pasteEnd, padded
}

func (g Geometry) validate(rows, cols int) error {
	if g.ReadOffsetX < 0 || g.ReadOffsetY < 0 ||
		g.ReadOffsetX+g.ReadSizeX > cols || g.ReadOffsetY+g.ReadSizeY > rows {
		return fmt.Errorf("%w: read window (%d, %d) %dx%d outside raster %dx%d", ErrGeometry,
			g.ReadOffsetX, g.ReadOffsetY, g.ReadSizeX, g.ReadSizeY, cols, rows)
	}
	if g.PasteEndX-g.PasteStartX != g.ReadSizeX || g.PasteEndY-g.PasteStartY != g.ReadSizeY {
		return fmt.Errorf("%w: paste region does not match read window", ErrGeometry)
	}
	if g.PasteStartX < 0 || g.PasteStartY < 0 || g.PasteEndX > g.Width || g.PasteEndY > g.Height {
		return fmt.Errorf("%w: paste region outside buffer", ErrGeometry)
	}
	return nil
}
