// Package vrt provides a read-only virtual raster: a YAML description of a
// mosaic whose sources are opened through the raster registry.
//
//	rows: 200
//	cols: 300
//	cellsize: 10
//	nodata: -9999
//	geotransform: [0, 10, 0, 2000, 0, -10]
//	sources:
//	  - {path: west.flt, x: 0, y: 0}
//	  - {path: east.flt, x: 150, y: 0}
//
// Relative source paths are resolved against the directory of the .vrt
// file. Cells not covered by any source read as no-data; where sources
// overlap the later one wins.
package vrt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
	"gopkg.in/yaml.v3"
)

const Name = "vrt"

var ErrInvalidMosaic = errors.New("rasterchunk: invalid virtual raster")

type Source struct {
	Path string `yaml:"path"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

type Mosaic struct {
	Rows         int         `yaml:"rows"`
	Cols         int         `yaml:"cols"`
	CellSize     float64     `yaml:"cellsize"`
	NoData       *float64    `yaml:"nodata,omitempty"`
	GeoTransform *[6]float64 `yaml:"geotransform,omitempty"`
	Projection   string      `yaml:"projection,omitempty"`
	Sources      []Source    `yaml:"sources"`
}

// Meta returns raster metadata; without a geotransform the mosaic is placed
// with its lower-left corner at the origin.
func (m *Mosaic) Meta() raster.Meta {
	meta := raster.Meta{
		Rows:       m.Rows,
		Cols:       m.Cols,
		CellSize:   m.CellSize,
		Projection: m.Projection,
	}
	if m.NoData != nil {
		meta.NoData, meta.HasNoData = *m.NoData, true
	}
	if m.GeoTransform != nil {
		meta.GeoTransform = *m.GeoTransform
	} else {
		meta.GeoTransform = raster.DefaultGeoTransform(0, 0, m.CellSize, m.Rows)
	}
	return meta
}

func Decode(r io.Reader) (*Mosaic, error) {
	var m Mosaic
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMosaic, err)
	}
	if m.Rows <= 0 || m.Cols <= 0 || m.CellSize <= 0 {
		return nil, fmt.Errorf("%w: %dx%d cellsize %v", ErrInvalidMosaic, m.Rows, m.Cols, m.CellSize)
	}
	return &m, nil
}

func Encode(w io.Writer, m *Mosaic) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

type placedSource struct {
	reader raster.Reader
	x, y   int
}

// Reader implements raster.Reader for virtual mosaics.
type Reader struct {
	meta    raster.Meta
	sources []placedSource
}

func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mosaic, err := Decode(file)
	if err != nil {
		return nil, err
	}
	return Open(mosaic, filepath.Dir(path))
}

// Open opens every source of the mosaic. Relative paths are resolved
// against dir.
func Open(mosaic *Mosaic, dir string) (*Reader, error) {
	r := &Reader{meta: mosaic.Meta()}
	for _, src := range mosaic.Sources {
		path := src.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		reader, err := raster.Open(path)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("vrt: source %s: %w", src.Path, err), r.Close())
		}
		r.sources = append(r.sources, placedSource{reader: reader, x: src.X, y: src.Y})

		sm := reader.Meta()
		if src.X < 0 || src.Y < 0 || src.X+sm.Cols > r.meta.Cols || src.Y+sm.Rows > r.meta.Rows {
			return nil, errors.Join(fmt.Errorf("%w: source %s at (%d, %d) %dx%d exceeds %dx%d",
				ErrInvalidMosaic, src.Path, src.X, src.Y, sm.Cols, sm.Rows, r.meta.Cols, r.meta.Rows), r.Close())
		}
	}
	return r, nil
}

func (r *Reader) Meta() raster.Meta { return r.meta }

func (r *Reader) ReadWindow(xOff, yOff, width, height int) (*grid.Grid, error) {
	if err := r.meta.CheckWindow(xOff, yOff, width, height); err != nil {
		return nil, err
	}
	fill := 0.0
	if r.meta.HasNoData {
		fill = r.meta.NoData
	}
	g := grid.Filled(height, width, fill)

	for _, src := range r.sources {
		sm := src.reader.Meta()
		x0, y0 := max(xOff, src.x), max(yOff, src.y)
		x1, y1 := min(xOff+width, src.x+sm.Cols), min(yOff+height, src.y+sm.Rows)
		if x0 >= x1 || y0 >= y1 {
			continue
		}
		part, err := src.reader.ReadWindow(x0-src.x, y0-src.y, x1-x0, y1-y0)
		if err != nil {
			return nil, err
		}
		if sm.HasNoData && r.meta.HasNoData && sm.NoData != r.meta.NoData {
			for i, v := range part.Data {
				if grid.IsNoData(v, sm.NoData) {
					part.Data[i] = r.meta.NoData
				}
			}
		}
		g.Paste(part, y0-yOff, x0-xOff)
	}
	return g, nil
}

func (r *Reader) Close() error {
	var errs []error
	for _, src := range r.sources {
		if c, ok := src.reader.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

type driver struct{}

func (driver) Name() string         { return Name }
func (driver) Extensions() []string { return []string{".vrt"} }
func (driver) Virtual() bool        { return true }

func (driver) Open(path string) (raster.Reader, error) {
	return NewReader(path)
}

func (driver) Create(path string, meta raster.Meta) (raster.Writer, error) {
	return nil, fmt.Errorf("%w: %s", raster.ErrReadOnly, Name)
}

func init() {
	raster.Register(driver{})
}
