// Package rdb provides API for storing rasters in a SQLite database as
// compressed square blocks of float32 samples.
//
// Schema:
//
//	CREATE TABLE metadata (name TEXT PRIMARY KEY, value TEXT);
//	CREATE TABLE blocks (
//		block_row INTEGER,
//		block_col INTEGER,
//		block_data BLOB,
//		PRIMARY KEY (block_row, block_col)
//	);
//
// Blocks on the right and bottom edges are clipped to the raster. A missing
// block reads as no-data.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package rdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
)

const Name = "rdb"

const DefaultBlockSize = 256

var ErrInvalidMetadata = errors.New("rasterchunk: invalid rdb metadata")

// layout maps raster coordinates to blocks.
type layout struct {
	rows, cols int
	blockSize  int
}

func (l layout) blockShape(blockRow, blockCol int) (rows, cols int) {
	rows = min(l.blockSize, l.rows-blockRow*l.blockSize)
	cols = min(l.blockSize, l.cols-blockCol*l.blockSize)
	return rows, cols
}

// visitBlocks calls fn for every block intersecting the window, with the
// intersection expressed in raster coordinates.
func (l layout) visitBlocks(xOff, yOff, width, height int, fn func(blockRow, blockCol, x0, y0, x1, y1 int) error) error {
	if width == 0 || height == 0 {
		return nil
	}
	bs := l.blockSize
	for br := yOff / bs; br <= (yOff+height-1)/bs; br++ {
		for bc := xOff / bs; bc <= (xOff+width-1)/bs; bc++ {
			x0 := max(xOff, bc*bs)
			y0 := max(yOff, br*bs)
			x1 := min(xOff+width, (bc+1)*bs)
			y1 := min(yOff+height, (br+1)*bs)
			if err := fn(br, bc, x0, y0, x1, y1); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeBlock(g *grid.Grid) []byte {
	data := make([]byte, len(g.Data)*4)
	for i, v := range g.Data {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
	}
	return data
}

func decodeBlock(data []byte, rows, cols int) (*grid.Grid, error) {
	if len(data) != rows*cols*4 {
		return nil, fmt.Errorf("rdb: block payload has %d bytes, want %d", len(data), rows*cols*4)
	}
	g := grid.New(rows, cols)
	for i := range g.Data {
		g.Data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return g, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func encodeMetadata(meta raster.Meta, blockSize int, compression Compression) map[string]string {
	gt := make([]string, len(meta.GeoTransform))
	for i, v := range meta.GeoTransform {
		gt[i] = formatFloat(v)
	}
	metadata := map[string]string{
		"rows":         strconv.Itoa(meta.Rows),
		"cols":         strconv.Itoa(meta.Cols),
		"cellsize":     formatFloat(meta.CellSize),
		"geotransform": strings.Join(gt, " "),
		"projection":   meta.Projection,
		"block_size":   strconv.Itoa(blockSize),
		"compression":  compression.String(),
	}
	if meta.HasNoData {
		metadata["nodata"] = formatFloat(meta.NoData)
	}
	return metadata
}

func decodeMetadata(metadata map[string]string) (meta raster.Meta, blockSize int, compression Compression, err error) {
	wrap := func(key string, err error) error {
		return fmt.Errorf("%w: %s: %w", ErrInvalidMetadata, key, err)
	}

	if meta.Rows, err = strconv.Atoi(metadata["rows"]); err != nil {
		return meta, 0, 0, wrap("rows", err)
	}
	if meta.Cols, err = strconv.Atoi(metadata["cols"]); err != nil {
		return meta, 0, 0, wrap("cols", err)
	}
	if meta.CellSize, err = strconv.ParseFloat(metadata["cellsize"], 64); err != nil {
		return meta, 0, 0, wrap("cellsize", err)
	}
	if blockSize, err = strconv.Atoi(metadata["block_size"]); err != nil {
		return meta, 0, 0, wrap("block_size", err)
	}
	if compression, err = ParseCompression(metadata["compression"]); err != nil {
		return meta, 0, 0, wrap("compression", err)
	}
	if v, ok := metadata["nodata"]; ok {
		if meta.NoData, err = strconv.ParseFloat(v, 64); err != nil {
			return meta, 0, 0, wrap("nodata", err)
		}
		meta.HasNoData = true
	}
	meta = meta.Float32()

	gt := strings.Fields(metadata["geotransform"])
	if len(gt) != len(meta.GeoTransform) {
		return meta, 0, 0, fmt.Errorf("%w: geotransform %q", ErrInvalidMetadata, metadata["geotransform"])
	}
	for i, s := range gt {
		if meta.GeoTransform[i], err = strconv.ParseFloat(s, 64); err != nil {
			return meta, 0, 0, wrap("geotransform", err)
		}
	}
	meta.Projection = metadata["projection"]

	if meta.Rows <= 0 || meta.Cols <= 0 || blockSize <= 0 {
		return meta, 0, 0, fmt.Errorf("%w: %dx%d block %d", ErrInvalidMetadata, meta.Rows, meta.Cols, blockSize)
	}
	return meta, blockSize, compression, nil
}

type driver struct{}

func (driver) Name() string         { return Name }
func (driver) Extensions() []string { return []string{".rdb"} }
func (driver) Virtual() bool        { return false }

func (driver) Open(path string) (raster.Reader, error) {
	return NewReader(path)
}

func (driver) Create(path string, meta raster.Meta) (raster.Writer, error) {
	return NewWriter(path, meta)
}

func init() {
	raster.Register(driver{})
}
