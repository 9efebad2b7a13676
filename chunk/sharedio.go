package chunk

import (
	"errors"
	"io"
	"sync"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
)

// SharedIO gives workers access to one source reader and one target writer.
// Each handle has its own lock, held only for the duration of a single
// window read or write, so reading one tile never waits for a write of
// another.
type SharedIO struct {
	readMu sync.Mutex
	reader raster.Reader

	writeMu sync.Mutex
	writer  raster.Writer
}

func NewSharedIO(reader raster.Reader, writer raster.Writer) *SharedIO {
	return &SharedIO{reader: reader, writer: writer}
}

// Meta returns the source metadata.
func (s *SharedIO) Meta() raster.Meta {
	return s.reader.Meta()
}

func (s *SharedIO) ReadWindow(xOff, yOff, width, height int) (*grid.Grid, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	return s.reader.ReadWindow(xOff, yOff, width, height)
}

func (s *SharedIO) WriteWindow(g *grid.Grid, xOff, yOff int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writer.WriteWindow(g, xOff, yOff)
}

// Close closes both handles if they implement io.Closer.
func (s *SharedIO) Close() error {
	var errs []error
	for _, h := range []any{s.writer, s.reader} {
		if c, ok := h.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
