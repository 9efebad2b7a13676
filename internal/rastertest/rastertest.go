// Package rastertest provides helpers for tests that run tiles over
// rasters.
package rastertest

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"iter"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
	"github.com/eak1mov/go-rasterchunk/raster/asc"
	"github.com/eak1mov/go-rasterchunk/raster/flt"
	"github.com/stretchr/testify/require"
)

// ArchiveCases iterates over the ESRI ASCII grids stored in a tar.gz
// archive, yielding each as an in-memory raster.
func ArchiveCases(t *testing.T, filePath string) iter.Seq2[string, *raster.Mem] {
	return func(yield func(string, *raster.Mem) bool) {
		t.Helper()

		file, err := os.Open(filePath)
		require.NoError(t, err)
		defer file.Close()

		gzReader, err := gzip.NewReader(file)
		require.NoError(t, err)
		defer gzReader.Close()

		tarReader := tar.NewReader(gzReader)

		for {
			hdr, err := tarReader.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			require.EqualValues(t, tar.TypeReg, hdr.Typeflag, "%s", hdr.Name)

			meta, g, err := asc.Decode(tarReader)
			require.NoError(t, err, "%s", hdr.Name)

			if !yield(hdr.Name, raster.MemFromGrid(meta, g)) {
				return
			}
		}
	}
}

// Meta returns metadata of a north-up rows x cols raster with unit cells.
func Meta(rows, cols int, noData float64) raster.Meta {
	return raster.Meta{
		Rows:         rows,
		Cols:         cols,
		CellSize:     1,
		NoData:       noData,
		HasNoData:    true,
		GeoTransform: raster.DefaultGeoTransform(0, 0, 1, rows),
	}
}

// Bordered returns a rows x cols grid of value surrounded by a no-data
// border of the given width.
func Bordered(rows, cols, border int, value, noData float64) *grid.Grid {
	g := grid.Filled(rows, cols, noData)
	g.Paste(grid.Filled(rows-2*border, cols-2*border, value), border, border)
	return g
}

// Random returns a grid of values in [100, 200) exactly representable as
// float32.
func Random(rows, cols int, seed uint64) *grid.Grid {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	g := grid.New(rows, cols)
	for i := range g.Data {
		g.Data[i] = float64(float32(100 + 100*rng.Float64()))
	}
	return g
}

// WriteFLT writes g as a GridFloat raster.
func WriteFLT(t *testing.T, path string, meta raster.Meta, g *grid.Grid) {
	t.Helper()
	w, err := flt.NewWriter(path, meta)
	require.NoError(t, err)
	require.NoError(t, w.WriteWindow(g, 0, 0))
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())
}

// ReadAll opens any registered raster format and reads it whole.
func ReadAll(t *testing.T, path string) (raster.Meta, *grid.Grid) {
	t.Helper()
	r, err := raster.Open(path)
	require.NoError(t, err)
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	meta := r.Meta()
	g, err := r.ReadWindow(0, 0, meta.Cols, meta.Rows)
	require.NoError(t, err)
	return meta, g
}

// Rect is a window in raster coordinates.
type Rect struct {
	X, Y, W, H int
}

// callTracker counts calls that overlap in time.
type callTracker struct {
	delay    time.Duration
	inflight atomic.Int32
	overlaps atomic.Int32
	calls    atomic.Int32
}

func (c *callTracker) enter() {
	c.calls.Add(1)
	if c.inflight.Add(1) > 1 {
		c.overlaps.Add(1)
	}
	time.Sleep(c.delay)
}

func (c *callTracker) leave() {
	c.inflight.Add(-1)
}

// CheckedReader detects concurrent ReadWindow calls. Delay widens the
// window in which an unserialized caller would be caught.
type CheckedReader struct {
	raster.Reader
	tracker callTracker
}

func NewCheckedReader(r raster.Reader, delay time.Duration) *CheckedReader {
	return &CheckedReader{Reader: r, tracker: callTracker{delay: delay}}
}

func (r *CheckedReader) ReadWindow(xOff, yOff, width, height int) (*grid.Grid, error) {
	r.tracker.enter()
	defer r.tracker.leave()
	return r.Reader.ReadWindow(xOff, yOff, width, height)
}

// Overlaps returns the number of calls that started while another call
// was in progress.
func (r *CheckedReader) Overlaps() int { return int(r.tracker.overlaps.Load()) }
func (r *CheckedReader) Calls() int    { return int(r.tracker.calls.Load()) }

// CheckedWriter detects concurrent WriteWindow calls and records every
// written window.
type CheckedWriter struct {
	raster.Writer
	tracker callTracker

	mu     sync.Mutex
	writes []Rect
}

func NewCheckedWriter(w raster.Writer, delay time.Duration) *CheckedWriter {
	return &CheckedWriter{Writer: w, tracker: callTracker{delay: delay}}
}

func (w *CheckedWriter) WriteWindow(g *grid.Grid, xOff, yOff int) error {
	w.tracker.enter()
	defer w.tracker.leave()

	w.mu.Lock()
	w.writes = append(w.writes, Rect{X: xOff, Y: yOff, W: g.Cols, H: g.Rows})
	w.mu.Unlock()

	return w.Writer.WriteWindow(g, xOff, yOff)
}

func (w *CheckedWriter) Overlaps() int { return int(w.tracker.overlaps.Load()) }

func (w *CheckedWriter) Writes() []Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Rect(nil), w.writes...)
}

// Coverage counts how many rects cover every cell of a rows x cols raster.
func Coverage(rows, cols int, rects []Rect) *grid.Grid {
	g := grid.New(rows, cols)
	for _, r := range rects {
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				g.Set(y, x, g.At(y, x)+1)
			}
		}
	}
	return g
}
