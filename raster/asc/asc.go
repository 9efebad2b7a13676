// Package asc provides API for reading and writing rasters in ESRI ASCII grid
// format: a keyword header followed by one line of space-separated values
// per row.
package asc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
)

const Name = "asc"

// Decode reads a whole ASCII grid.
func Decode(r io.Reader) (raster.Meta, *grid.Grid, error) {
	br := bufio.NewReader(r)
	header, err := ReadHeader(br)
	if err != nil {
		return raster.Meta{}, nil, err
	}

	g := grid.New(header.Rows, header.Cols)
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	scanner.Split(bufio.ScanWords)

	n := 0
	for scanner.Scan() {
		if n == len(g.Data) {
			return raster.Meta{}, nil, fmt.Errorf("%w: more than %d values", ErrInvalidHeader, len(g.Data))
		}
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return raster.Meta{}, nil, fmt.Errorf("asc: value %d: %w", n, err)
		}
		g.Data[n] = v
		n++
	}
	if err := scanner.Err(); err != nil {
		return raster.Meta{}, nil, err
	}
	if n != len(g.Data) {
		return raster.Meta{}, nil, fmt.Errorf("asc: got %d values, want %d: %w", n, len(g.Data), io.ErrUnexpectedEOF)
	}

	return header.Meta(), g, nil
}

// Encode writes g with a header built from meta. The grid dimensions take
// precedence over meta.
func Encode(w io.Writer, meta raster.Meta, g *grid.Grid) error {
	bw := bufio.NewWriter(w)
	header := HeaderFromMeta(meta)
	header.Rows, header.Cols = g.Rows, g.Cols
	if err := WriteHeader(bw, header); err != nil {
		return err
	}

	buf := make([]byte, 0, 32)
	for r := range g.Rows {
		for c, v := range g.Row(r) {
			if c > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func ReadFile(path string) (raster.Meta, *grid.Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return raster.Meta{}, nil, err
	}
	defer file.Close()
	return Decode(file)
}

func WriteFile(path string, meta raster.Meta, g *grid.Grid) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, meta, g); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// NewReader loads the whole grid into memory.
func NewReader(path string) (*raster.Mem, error) {
	meta, g, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return raster.MemFromGrid(meta, g), nil
}

// Writer buffers windowed writes in memory and encodes the grid on Finalize.
type Writer struct {
	*raster.Mem
	file *os.File
}

// NewWriter creates the file immediately so that an existing path is
// rejected before any data is processed.
func NewWriter(path string, meta raster.Meta) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: %s", raster.ErrExists, path)
	}
	if err != nil {
		return nil, err
	}
	return &Writer{Mem: raster.NewMem(meta), file: file}, nil
}

func (w *Writer) Finalize() error {
	if w.file == nil {
		panic("rasterchunk: finalize called twice")
	}
	if err := Encode(w.file, w.Meta(), w.Grid()); err != nil {
		return err
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

type driver struct{}

func (driver) Name() string         { return Name }
func (driver) Extensions() []string { return []string{".asc"} }
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
