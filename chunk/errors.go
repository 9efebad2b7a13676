package chunk

import (
	"errors"
	"fmt"

	"github.com/eak1mov/go-rasterchunk/tile"
)

var (
	// ErrConfig reports an invalid run configuration: unknown operation,
	// missing or invalid parameters, a source without no-data value, an
	// existing target or an unsupported format.
	ErrConfig = errors.New("rasterchunk: invalid configuration")

	// ErrIO reports a failure to read the source, write the target or run
	// an external process.
	ErrIO = errors.New("rasterchunk: i/o failed")
)

// TileError is returned by a run that failed while processing a tile.
type TileError struct {
	Tile tile.Spec
	Err  error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("rasterchunk: %v: %v", e.Tile, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}
