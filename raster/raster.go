// Package raster provides common raster dataset interfaces and types.
//
// Concrete formats live in sub-packages (flt, asc, rdb, vrt) and register
// themselves on import, like database/sql drivers:
//
//	import _ "github.com/eak1mov/go-rasterchunk/raster/flt"
package raster

import (
	"errors"
	"fmt"

	"github.com/eak1mov/go-rasterchunk/grid"
)

var (
	ErrExists        = errors.New("rasterchunk: target raster already exists")
	ErrNoNoData      = errors.New("rasterchunk: no no-data value set on source raster")
	ErrReadOnly      = errors.New("rasterchunk: raster format is read-only")
	ErrUnknownFormat = errors.New("rasterchunk: unknown raster format")
	ErrWindow        = errors.New("rasterchunk: window outside raster")
)

// Meta describes a single-band raster. It is read once when a dataset is
// opened and never changes afterwards.
type Meta struct {
	Rows     int
	Cols     int
	CellSize float64

	NoData    float64
	HasNoData bool

	// GeoTransform follows the GDAL convention: origin x, pixel width,
	// row rotation, origin y, column rotation, pixel height (negative for
	// north-up rasters).
	GeoTransform [6]float64
	Projection   string
}

// DefaultGeoTransform returns a north-up transform with the origin at the
// top-left corner of a raster whose lower-left corner is (xll, yll).
func DefaultGeoTransform(xll, yll, cellSize float64, rows int) [6]float64 {
	return [6]float64{xll, cellSize, 0, yll + float64(rows)*cellSize, 0, -cellSize}
}

// LowerLeft returns the lower-left corner of the raster.
func (m Meta) LowerLeft() (x, y float64) {
	return m.GeoTransform[0], m.GeoTransform[3] + float64(m.Rows)*m.GeoTransform[5]
}

// SizeBytes is the size of the raster payload as float32 samples.
func (m Meta) SizeBytes() int64 {
	return int64(m.Rows) * int64(m.Cols) * 4
}

// Float32 returns m with the no-data value rounded to float32, the value
// that no-data samples of a float32 raster read back as.
func (m Meta) Float32() Meta {
	if m.HasNoData {
		m.NoData = float64(float32(m.NoData))
	}
	return m
}

// CheckWindow validates a window against the raster dimensions.
func (m Meta) CheckWindow(xOff, yOff, width, height int) error {
	if xOff < 0 || yOff < 0 || width < 0 || height < 0 || xOff+width > m.Cols || yOff+height > m.Rows {
		return fmt.Errorf("%w: (%d, %d) %dx%d, raster %dx%d", ErrWindow, xOff, yOff, width, height, m.Cols, m.Rows)
	}
	return nil
}

// Reader provides windowed reads from a raster.
type Reader interface {
	Meta() Meta

	// ReadWindow reads width x height samples starting at column xOff and
	// row yOff.
	ReadWindow(xOff, yOff, width, height int) (*grid.Grid, error)
}

// Writer provides windowed writes into a raster.
type Writer interface {
	Meta() Meta

	// WriteWindow writes g with its top-left corner at column xOff, row yOff.
	WriteWindow(g *grid.Grid, xOff, yOff int) error

	// Finalize completes the writing process: flushes buffers and commits
	// pending data. It must be called before closing the Writer.
	Finalize() error
}

// Driver opens and creates rasters of one format.
type Driver interface {
	Name() string

	// Extensions lists file name suffixes used to deduce the format.
	Extensions() []string

	// Virtual reports whether the format is a composite of other rasters
	// that cannot be created or written.
	Virtual() bool

	// Open opens an existing raster for reading.
	Open(path string) (Reader, error)

	// Create creates a new raster with the given metadata. It fails with
	// ErrExists if path already exists. All metadata is written before
	// Create returns.
	Create(path string, meta Meta) (Writer, error)
}
