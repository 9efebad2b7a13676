package raster

import (
	"github.com/eak1mov/go-rasterchunk/grid"
)

// Mem is an in-memory raster implementing both Reader and Writer.
type Mem struct {
	meta Meta
	data *grid.Grid
}

// NewMem returns a raster filled with meta.NoData (or zero without one).
func NewMem(meta Meta) *Mem {
	fill := 0.0
	if meta.HasNoData {
		fill = meta.NoData
	}
	return &Mem{meta: meta, data: grid.Filled(meta.Rows, meta.Cols, fill)}
}

// MemFromGrid wraps g; the dimensions in meta are taken from g.
func MemFromGrid(meta Meta, g *grid.Grid) *Mem {
	meta.Rows = g.Rows
	meta.Cols = g.Cols
	return &Mem{meta: meta, data: g}
}

func (m *Mem) Meta() Meta { return m.meta }

// Grid returns the backing grid.
func (m *Mem) Grid() *grid.Grid { return m.data }

func (m *Mem) ReadWindow(xOff, yOff, width, height int) (*grid.Grid, error) {
	if err := m.meta.CheckWindow(xOff, yOff, width, height); err != nil {
		return nil, err
	}
	return m.data.Window(yOff, xOff, height, width), nil
}

func (m *Mem) WriteWindow(g *grid.Grid, xOff, yOff int) error {
	if err := m.meta.CheckWindow(xOff, yOff, g.Cols, g.Rows); err != nil {
		return err
	}
	m.data.Paste(g, yOff, xOff)
	return nil
}

func (m *Mem) Finalize() error { return nil }

func (m *Mem) Close() error { return nil }
