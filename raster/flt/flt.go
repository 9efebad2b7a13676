// Package flt provides API for reading and writing rasters in ESRI GridFloat
// format: raw float32 samples in row-major order (.flt), a keyword header
// (.hdr) and an optional projection file (.prj).
//
// Windows are read and written row by row with ReadAt/WriteAt, so the
// payload is never loaded as a whole.
package flt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
	"github.com/eak1mov/go-rasterchunk/raster/asc"
)

const Name = "flt"

const sampleSize = 4

func sidecar(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func readMeta(path string) (raster.Meta, binary.ByteOrder, error) {
	file, err := os.Open(sidecar(path, ".hdr"))
	if err != nil {
		return raster.Meta{}, nil, err
	}
	defer file.Close()

	header, err := asc.ReadHeader(bufio.NewReader(file))
	if err != nil {
		return raster.Meta{}, nil, err
	}

	var order binary.ByteOrder
	switch header.ByteOrder {
	case "", "LSBFIRST", "I":
		order = binary.LittleEndian
	case "MSBFIRST", "M":
		order = binary.BigEndian
	default:
		return raster.Meta{}, nil, fmt.Errorf("%w: byteorder %q", asc.ErrInvalidHeader, header.ByteOrder)
	}

	meta := header.Meta().Float32()
	if prj, err := os.ReadFile(sidecar(path, ".prj")); err == nil {
		meta.Projection = strings.TrimSpace(string(prj))
	}
	return meta, order, nil
}

// Reader implements raster.Reader for GridFloat files.
type Reader struct {
	file  *os.File
	meta  raster.Meta
	order binary.ByteOrder
}

func NewReader(path string) (*Reader, error) {
	meta, order, err := readMeta(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() < meta.SizeBytes() {
		file.Close()
		return nil, fmt.Errorf("flt: %s has %d bytes, want %d", path, info.Size(), meta.SizeBytes())
	}
	return &Reader{file: file, meta: meta, order: order}, nil
}

func (r *Reader) Meta() raster.Meta { return r.meta }

func (r *Reader) ReadWindow(xOff, yOff, width, height int) (*grid.Grid, error) {
	if err := r.meta.CheckWindow(xOff, yOff, width, height); err != nil {
		return nil, err
	}
	g := grid.New(height, width)
	buf := make([]byte, width*sampleSize)
	for row := range height {
		offset := (int64(yOff+row)*int64(r.meta.Cols) + int64(xOff)) * sampleSize
		if _, err := r.file.ReadAt(buf, offset); err != nil {
			return nil, err
		}
		decodeRow(g.Row(row), buf, r.order)
	}
	return g, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// Writer implements raster.Writer for GridFloat files. Samples are always
// written little-endian.
type Writer struct {
	file *os.File
	meta raster.Meta
}

// NewWriter creates the header, projection and payload files. The payload
// is sized and filled with the no-data value before NewWriter returns.
func NewWriter(path string, meta raster.Meta) (w *Writer, err error) {
	meta = meta.Float32()
	hdrPath := sidecar(path, ".hdr")
	for _, p := range []string{path, hdrPath} {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("%w: %s", raster.ErrExists, p)
		}
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: %s", raster.ErrExists, path)
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	header := asc.HeaderFromMeta(meta)
	header.ByteOrder = "LSBFIRST"
	if err = writeSidecar(hdrPath, func(f *os.File) error { return asc.WriteHeader(f, header) }); err != nil {
		return nil, err
	}
	if meta.Projection != "" {
		err = writeSidecar(sidecar(path, ".prj"), func(f *os.File) error {
			_, err := f.WriteString(meta.Projection + "\n")
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	fill := 0.0
	if meta.HasNoData {
		fill = meta.NoData
	}
	row := make([]byte, meta.Cols*sampleSize)
	encodeRow(row, grid.Filled(1, meta.Cols, fill).Row(0))
	bw := bufio.NewWriter(file)
	for range meta.Rows {
		if _, err = bw.Write(row); err != nil {
			return nil, err
		}
	}
	if err = bw.Flush(); err != nil {
		return nil, err
	}

	return &Writer{file: file, meta: meta}, nil
}

func writeSidecar(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (w *Writer) Meta() raster.Meta { return w.meta }

func (w *Writer) WriteWindow(g *grid.Grid, xOff, yOff int) error {
	if err := w.meta.CheckWindow(xOff, yOff, g.Cols, g.Rows); err != nil {
		return err
	}
	buf := make([]byte, g.Cols*sampleSize)
	for row := range g.Rows {
		encodeRow(buf, g.Row(row))
		offset := (int64(yOff+row)*int64(w.meta.Cols) + int64(xOff)) * sampleSize
		if _, err := w.file.WriteAt(buf, offset); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Finalize() error {
	if w.file == nil {
		panic("rasterchunk: finalize called twice")
	}
	if err := w.file.Sync(); err != nil {
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

func decodeRow(dst []float64, src []byte, order binary.ByteOrder) {
	for i := range dst {
		dst[i] = float64(math.Float32frombits(order.Uint32(src[i*sampleSize:])))
	}
}

func encodeRow(dst []byte, src []float64) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*sampleSize:], math.Float32bits(float32(v)))
	}
}

type driver struct{}

func (driver) Name() string         { return Name }
func (driver) Extensions() []string { return []string{".flt"} }
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
