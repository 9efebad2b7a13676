package chunk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/halo"
	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/eak1mov/go-rasterchunk/raster"
	"github.com/eak1mov/go-rasterchunk/tile"
)

// Job is one unit of work: a tile and its resolved halo geometry.
type Job struct {
	Tile     tile.Spec
	Geometry halo.Geometry

	// Index is the dispatch position of the tile, Total the number of
	// tiles in the run.
	Index int
	Total int
}

// runContext is shared by every worker of a run.
type runContext struct {
	io       *SharedIO
	op       ops.Operation
	meta     raster.Meta
	progress *progressTracker
	logger   *slog.Logger
}

// processTile reads the padded window of a tile, applies the operation,
// trims the halo, restores the no-data mask and writes the result. The
// context is checked before the read, the operation and the write.
func processTile(ctx context.Context, rc *runContext, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g := job.Geometry
	noData := rc.meta.NoData

	read, err := rc.io.ReadWindow(g.ReadOffsetX, g.ReadOffsetY, g.ReadSizeX, g.ReadSizeY)
	if err != nil {
		return fmt.Errorf("%w: read: %w", ErrIO, err)
	}
	buffer, err := halo.NewBuffer(g, read, noData)
	if err != nil {
		return err
	}

	var out *grid.Grid
	if halo.Inner(buffer, g).AllNoData(noData) {
		rc.logger.Debug("rasterchunk: tile has no data, skipping operation", "tile", job.Tile.ID)
		out = grid.Filled(job.Tile.Height(), job.Tile.Width(), noData)
	} else {
		if err := ctx.Err(); err != nil {
			return err
		}
		env := ops.Env{
			NoData:   noData,
			CellSize: rc.meta.CellSize,
			Tile:     job.Tile.ID.String(),
			Logger:   rc.logger,
		}
		result, err := rc.op.Apply(ctx, buffer, env)
		if err != nil {
			if errors.Is(err, ops.ErrExternal) {
				return fmt.Errorf("%w: %w", ErrIO, err)
			}
			return fmt.Errorf("%s: %w", rc.op.Name(), err)
		}
		if out, err = halo.Trim(result, g); err != nil {
			return err
		}
		halo.RestoreNoData(out, buffer, g, noData)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rc.io.WriteWindow(out, job.Tile.XStart, job.Tile.YStart); err != nil {
		return fmt.Errorf("%w: write: %w", ErrIO, err)
	}

	p := rc.progress.complete(job.Tile.ID)
	rc.logger.Debug("rasterchunk: "+p.String(), "index", job.Index)
	return nil
}
