package chunk_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eak1mov/go-rasterchunk/chunk"
	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/halo"
	"github.com/eak1mov/go-rasterchunk/internal/rastertest"
	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/eak1mov/go-rasterchunk/raster"
	"github.com/eak1mov/go-rasterchunk/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const noData = -9999.0

type funcOp struct {
	minHalo int
	apply   func(ctx context.Context, in *grid.Grid, env ops.Env) (*grid.Grid, error)
}

func (funcOp) Name() string   { return "func" }
func (o funcOp) MinHalo() int { return o.minHalo }

func (o funcOp) Apply(ctx context.Context, in *grid.Grid, env ops.Env) (*grid.Grid, error) {
	return o.apply(ctx, in, env)
}

func newOp(t *testing.T, name string, params ops.Params) ops.Operation {
	t.Helper()
	op, err := ops.New(name, params)
	require.NoError(t, err)
	return op
}

// runMem runs op over src and returns the target raster and its writer
// wrapper.
func runMem(t *testing.T, src *raster.Mem, op ops.Operation, opts ...chunk.Option) (*raster.Mem, *rastertest.CheckedWriter, error) {
	t.Helper()
	target := raster.NewMem(src.Meta())
	writer := rastertest.NewCheckedWriter(target, 0)
	scheduler, err := chunk.NewScheduler(opts...)
	require.NoError(t, err)
	err = scheduler.Run(context.Background(), chunk.NewSharedIO(src, writer), op)
	return target, writer, err
}

func TestEndToEnd(t *testing.T) {
	in := rastertest.Bordered(10, 10, 2, 5, noData)
	src := raster.MemFromGrid(rastertest.Meta(10, 10, noData), in)

	var progress []chunk.Progress
	target, writer, err := runMem(t, src, newOp(t, "blur_mean", ops.Params{"filter_size": "3"}),
		chunk.WithTileSize(4),
		chunk.WithOverlap(1),
		chunk.WithProgress(func(p chunk.Progress) { progress = append(progress, p) }),
	)
	require.NoError(t, err)

	if diff := cmp.Diff(in, target.Grid()); diff != "" {
		t.Errorf("output mismatch (-want+got):\n%v", diff)
	}
	require.Equal(t, grid.Filled(10, 10, 1), rastertest.Coverage(10, 10, writer.Writes()))

	require.Len(t, progress, 9)
	for i, p := range progress {
		require.Equal(t, i+1, p.Done)
		require.Equal(t, 9, p.Total)
	}
}

func TestWorkersIdentical(t *testing.T) {
	operations := []struct {
		Name   string
		Params ops.Params
	}{
		{"blur_gauss", ops.Params{"filter_size": "2"}},
		{"TPI", ops.Params{"filter_size": "3"}},
		{"hillshade", ops.Params{"az": "315", "alt": "45"}},
		{"clahe", ops.Params{"filter_size": "4", "clip_limit": "0.05"}},
	}
	for name, src := range rastertest.ArchiveCases(t, "../testdata/dems.tar.gz") {
		for _, o := range operations {
			t.Run(name+"/"+o.Name, func(t *testing.T) {
				t.Parallel()
				op := newOp(t, o.Name, o.Params)

				sequential, _, err := runMem(t, src, op, chunk.WithTileSize(7), chunk.WithOverlap(1))
				require.NoError(t, err)

				parallel, writer, err := runMem(t, src, op,
					chunk.WithTileSize(7),
					chunk.WithOverlap(1),
					chunk.WithWorkers(4),
					chunk.WithOrder(tile.Hilbert),
				)
				require.NoError(t, err)

				meta := src.Meta()
				if diff := cmp.Diff(sequential.Grid(), parallel.Grid()); diff != "" {
					t.Errorf("1 vs 4 workers mismatch (-want+got):\n%v", diff)
				}
				require.Equal(t, grid.Filled(meta.Rows, meta.Cols, 1),
					rastertest.Coverage(meta.Rows, meta.Cols, writer.Writes()))
			})
		}
	}
}

func TestSerializedAccess(t *testing.T) {
	meta := rastertest.Meta(40, 40, noData)
	src := rastertest.NewCheckedReader(raster.MemFromGrid(meta, rastertest.Random(40, 40, 1)), time.Millisecond)
	writer := rastertest.NewCheckedWriter(raster.NewMem(meta), time.Millisecond)

	scheduler, err := chunk.NewScheduler(chunk.WithTileSize(5), chunk.WithWorkers(8))
	require.NoError(t, err)
	err = scheduler.Run(context.Background(), chunk.NewSharedIO(src, writer), newOp(t, "copy", nil))
	require.NoError(t, err)

	require.Equal(t, 64, src.Calls())
	require.Zero(t, src.Overlaps(), "concurrent reads")
	require.Zero(t, writer.Overlaps(), "concurrent writes")
}

func TestMaskRestored(t *testing.T) {
	in := rastertest.Random(12, 12, 2)
	for _, cell := range [][2]int{{0, 0}, {3, 4}, {4, 4}, {11, 7}} {
		in.Set(cell[0], cell[1], noData)
	}
	src := raster.MemFromGrid(rastertest.Meta(12, 12, noData), in)

	// an operation that produces finite values everywhere, including cells
	// that were no-data
	garbage := funcOp{minHalo: 1, apply: func(_ context.Context, in *grid.Grid, _ ops.Env) (*grid.Grid, error) {
		return grid.Filled(in.Rows, in.Cols, 1), nil
	}}
	target, _, err := runMem(t, src, garbage, chunk.WithTileSize(5), chunk.WithWorkers(3))
	require.NoError(t, err)

	for i, v := range in.Data {
		want := 1.0
		if v == noData {
			want = noData
		}
		require.Equal(t, want, target.Grid().Data[i], "cell %d", i)
	}
}

func TestNoDataTileSkipped(t *testing.T) {
	in := grid.Filled(8, 8, 1)
	in.Paste(grid.Filled(4, 4, noData), 4, 4)
	src := raster.MemFromGrid(rastertest.Meta(8, 8, noData), in)

	var calls atomic.Int32
	counting := funcOp{apply: func(_ context.Context, in *grid.Grid, _ ops.Env) (*grid.Grid, error) {
		calls.Add(1)
		return in.Clone(), nil
	}}
	target, writer, err := runMem(t, src, counting, chunk.WithTileSize(4), chunk.WithOverlap(1))
	require.NoError(t, err)

	require.EqualValues(t, 3, calls.Load())
	require.Len(t, writer.Writes(), 4)
	require.Equal(t, in, target.Grid())
}

func TestSingleTile(t *testing.T) {
	in := rastertest.Random(5, 6, 3)
	src := raster.MemFromGrid(rastertest.Meta(5, 6, noData), in)

	var shapes []string
	identity := funcOp{minHalo: 2, apply: func(_ context.Context, in *grid.Grid, env ops.Env) (*grid.Grid, error) {
		shapes = append(shapes, fmt.Sprintf("%s %dx%d", env.Tile, in.Rows, in.Cols))
		return in.Clone(), nil
	}}
	target, writer, err := runMem(t, src, identity, chunk.WithTileSize(10))
	require.NoError(t, err)

	require.Equal(t, []string{"0-0 9x10"}, shapes)
	require.Equal(t, []rastertest.Rect{{X: 0, Y: 0, W: 6, H: 5}}, writer.Writes())
	require.Equal(t, in, target.Grid())
}

func TestTileFailure(t *testing.T) {
	src := raster.MemFromGrid(rastertest.Meta(10, 10, noData), rastertest.Random(10, 10, 4))

	failing := funcOp{apply: func(_ context.Context, in *grid.Grid, env ops.Env) (*grid.Grid, error) {
		if env.Tile == "1-1" {
			return nil, errors.New("kernel exploded")
		}
		return in.Clone(), nil
	}}

	target := raster.NewMem(src.Meta())
	writer := rastertest.NewCheckedWriter(target, 0)
	scheduler, err := chunk.NewScheduler(chunk.WithTileSize(4))
	require.NoError(t, err)
	require.Equal(t, chunk.NotStarted, scheduler.State())

	err = scheduler.Run(context.Background(), chunk.NewSharedIO(src, writer), failing)
	require.Error(t, err)
	require.Equal(t, chunk.Failed, scheduler.State())

	var tileErr *chunk.TileError
	require.True(t, errors.As(err, &tileErr), "%v", err)
	require.Equal(t, tile.ID{Row: 1, Col: 1}, tileErr.Tile.ID)
	require.Equal(t, tile.Spec{ID: tile.ID{Row: 1, Col: 1}, XStart: 4, YStart: 4, XEnd: 8, YEnd: 8}, tileErr.Tile)
	require.Contains(t, err.Error(), "kernel exploded")

	// tiles after the failing one are never written
	require.Len(t, writer.Writes(), 4)

	err = scheduler.Run(context.Background(), chunk.NewSharedIO(src, writer), failing)
	require.Error(t, err)
}

func TestShapeMismatch(t *testing.T) {
	src := raster.MemFromGrid(rastertest.Meta(6, 6, noData), rastertest.Random(6, 6, 5))
	shrinking := funcOp{minHalo: 1, apply: func(_ context.Context, in *grid.Grid, _ ops.Env) (*grid.Grid, error) {
		return in.Window(0, 0, in.Rows-1, in.Cols), nil
	}}
	_, _, err := runMem(t, src, shrinking, chunk.WithTileSize(3), chunk.WithWorkers(2))
	require.True(t, errors.Is(err, halo.ErrGeometry), "%v", err)
}

func TestCanceled(t *testing.T) {
	src := raster.MemFromGrid(rastertest.Meta(6, 6, noData), rastertest.Random(6, 6, 6))
	writer := rastertest.NewCheckedWriter(raster.NewMem(src.Meta()), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scheduler, err := chunk.NewScheduler(chunk.WithTileSize(2), chunk.WithWorkers(2))
	require.NoError(t, err)
	err = scheduler.Run(ctx, chunk.NewSharedIO(src, writer), newOp(t, "copy", nil))
	require.True(t, errors.Is(err, context.Canceled), "%v", err)
	require.Empty(t, writer.Writes())
	require.Equal(t, chunk.Failed, scheduler.State())
}

func TestSchedulerOptions(t *testing.T) {
	for name, opt := range map[string]chunk.Option{
		"TileSize": chunk.WithTileSize(0),
		"Overlap":  chunk.WithOverlap(-1),
		"Workers":  chunk.WithWorkers(0),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := chunk.NewScheduler(opt)
			require.True(t, errors.Is(err, chunk.ErrConfig), "%v", err)
		})
	}

	scheduler, err := chunk.NewScheduler(chunk.WithOverlap(3))
	require.NoError(t, err)
	require.Equal(t, 6, scheduler.Halo(newOp(t, "hillshade", ops.Params{"az": "0", "alt": "45"})))
	require.Equal(t, 20, scheduler.Halo(newOp(t, "blur_mean", ops.Params{"filter_size": "5"})))
}

func TestJobs(t *testing.T) {
	scheduler, err := chunk.NewScheduler(chunk.WithTileSize(4))
	require.NoError(t, err)

	jobs, err := scheduler.Jobs(10, 10, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 9)
	for i, job := range jobs {
		require.Equal(t, i, job.Index)
		require.Equal(t, 9, job.Total)
		require.Equal(t, job.Tile.Width()+4, job.Geometry.Width)
		require.Equal(t, job.Tile.Height()+4, job.Geometry.Height)
	}
	require.False(t, jobs[4].Geometry.Clamped())
	require.True(t, jobs[0].Geometry.Clamped())
}

func TestProgressString(t *testing.T) {
	p := chunk.Progress{Tile: tile.ID{Row: 0, Col: 1}, Done: 3, Total: 9, Elapsed: 1200 * time.Millisecond}
	require.Equal(t, "tile 0-1: 3 of 9 (33.333%) in 1.2s", p.String())
}

func TestProgressLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	src := raster.MemFromGrid(rastertest.Meta(10, 10, noData), rastertest.Random(10, 10, 3))
	calls := 0
	_, _, err := runMem(t, src, newOp(t, "copy", nil),
		chunk.WithTileSize(4),
		chunk.WithLogger(logger),
		chunk.WithProgress(func(chunk.Progress) { calls++ }),
	)
	require.NoError(t, err)

	require.Equal(t, 9, calls)
	require.Equal(t, 9, strings.Count(logs.String(), " of 9 ("))
}
