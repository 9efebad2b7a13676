package chunk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/eak1mov/go-rasterchunk/raster"
	"github.com/eak1mov/go-rasterchunk/tile"
)

// DefaultFormat is used for the target when the chosen format is virtual.
const DefaultFormat = "flt"

// RunConfig describes a complete run from a source raster file to a new
// target raster file.
type RunConfig struct {
	Source string
	Target string

	// TargetFormat names the target driver. If empty it is deduced from
	// the target extension, falling back to the source format.
	TargetFormat string

	TileSize int
	Overlap  int
	Workers  int
	Order    tile.Order

	Operation string
	Params    ops.Params

	Logger   *slog.Logger
	Progress ProgressFunc
}

// Validate checks values that do not depend on the source raster.
func (c *RunConfig) Validate() error {
	var errs []error
	if c.Source == "" {
		errs = append(errs, errors.New("source not set"))
	}
	if c.Target == "" {
		errs = append(errs, errors.New("target not set"))
	}
	if c.Source != "" && c.Source == c.Target {
		errs = append(errs, errors.New("source and target are the same file"))
	}
	if c.TileSize <= 0 {
		errs = append(errs, fmt.Errorf("tile size %d must be positive", c.TileSize))
	}
	if c.Overlap < 0 {
		errs = append(errs, fmt.Errorf("overlap %d must not be negative", c.Overlap))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers %d must be positive", c.Workers))
	}
	if c.Operation == "" {
		errs = append(errs, errors.New("operation not set"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// targetDriver selects the driver for the target. A virtual driver cannot
// be written, so DefaultFormat is substituted for it.
func (c *RunConfig) targetDriver(logger *slog.Logger) (raster.Driver, error) {
	d, err := raster.ForPath(c.TargetFormat, c.Target)
	if errors.Is(err, raster.ErrUnknownFormat) && c.TargetFormat == "" {
		d, err = raster.ForPath("", c.Source)
	}
	if err != nil {
		return nil, err
	}
	if d.Virtual() {
		logger.Debug("rasterchunk: virtual target format replaced", "format", d.Name(), "replacement", DefaultFormat)
		return raster.Lookup(DefaultFormat)
	}
	return d, nil
}

// Run validates config, builds the operation, creates the target with the
// source metadata and processes every tile. Configuration errors, including
// unknown operations and missing parameters, are reported before any file
// is opened.
//
// On failure the partially written target is left in place.
func Run(ctx context.Context, config RunConfig) (err error) {
	if err := config.Validate(); err != nil {
		return err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	op, err := ops.New(config.Operation, config.Params)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	scheduler, err := NewScheduler(
		WithTileSize(config.TileSize),
		WithOverlap(config.Overlap),
		WithWorkers(config.Workers),
		WithOrder(config.Order),
		WithLogger(logger),
		WithProgress(config.Progress),
	)
	if err != nil {
		return err
	}
	driver, err := config.targetDriver(logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	source, err := raster.Open(config.Source)
	if errors.Is(err, raster.ErrUnknownFormat) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err != nil {
		return fmt.Errorf("%w: open source: %w", ErrIO, err)
	}
	defer func() {
		if c, ok := source.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
	}()

	meta := source.Meta()
	if !meta.HasNoData {
		return fmt.Errorf("%w: %w: %s", ErrConfig, raster.ErrNoNoData, config.Source)
	}
	logger.Debug("rasterchunk: source",
		"path", config.Source,
		"rows", meta.Rows,
		"cols", meta.Cols,
		"cellsize", meta.CellSize,
		"nodata", meta.NoData,
		"size", meta.SizeBytes())

	target, err := driver.Create(config.Target, meta)
	if errors.Is(err, raster.ErrExists) || errors.Is(err, raster.ErrReadOnly) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err != nil {
		return fmt.Errorf("%w: create target: %w", ErrIO, err)
	}
	defer func() {
		if c, ok := target.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
	}()
	logger.Debug("rasterchunk: target created", "path", config.Target, "format", driver.Name())

	if err := scheduler.Run(ctx, NewSharedIO(source, target), op); err != nil {
		return err
	}
	if err := target.Finalize(); err != nil {
		return fmt.Errorf("%w: finalize target: %w", ErrIO, err)
	}
	return nil
}
