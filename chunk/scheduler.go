package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/eak1mov/go-rasterchunk/halo"
	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/eak1mov/go-rasterchunk/tile"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTileSize = 1000
	DefaultWorkers  = 1
)

type State int32

const (
	NotStarted State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type schedulerConfig struct {
	TileSize int
	Overlap  int
	Workers  int
	Order    tile.Order
	Logger   *slog.Logger
	Progress ProgressFunc
}

type Option func(*schedulerConfig)

func WithTileSize(size int) Option {
	return func(c *schedulerConfig) { c.TileSize = size }
}

// WithOverlap sets the overlap in cells; the halo read around every tile is
// twice the overlap.
func WithOverlap(overlap int) Option {
	return func(c *schedulerConfig) { c.Overlap = overlap }
}

// WithWorkers sets the number of tiles processed concurrently. One worker
// processes tiles strictly in dispatch order.
func WithWorkers(workers int) Option {
	return func(c *schedulerConfig) { c.Workers = workers }
}

func WithOrder(order tile.Order) Option {
	return func(c *schedulerConfig) { c.Order = order }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *schedulerConfig) { c.Logger = logger }
}

func WithProgress(progress ProgressFunc) Option {
	return func(c *schedulerConfig) { c.Progress = progress }
}

// Scheduler partitions a raster into tiles and runs them on a worker pool.
// A Scheduler runs once.
type Scheduler struct {
	config schedulerConfig
	state  atomic.Int32
}

func NewScheduler(opts ...Option) (*Scheduler, error) {
	config := schedulerConfig{
		TileSize: DefaultTileSize,
		Workers:  DefaultWorkers,
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	if config.TileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size %d", ErrConfig, config.TileSize)
	}
	if config.Overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d", ErrConfig, config.Overlap)
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("%w: workers %d", ErrConfig, config.Workers)
	}
	return &Scheduler{config: config}, nil
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Halo returns the halo used for op: twice the overlap, raised to the
// minimum the operation needs.
func (s *Scheduler) Halo(op ops.Operation) int {
	return max(2*s.config.Overlap, op.MinHalo())
}

// Jobs partitions a rows x cols raster and resolves the geometry of every
// tile, in dispatch order.
func (s *Scheduler) Jobs(rows, cols, h int) ([]Job, error) {
	specs, err := tile.Partition(rows, cols, s.config.TileSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	specs = tile.Ordered(specs, s.config.Order)

	jobs := make([]Job, 0, len(specs))
	for _, spec := range tile.All(specs) {
		g, err := halo.Resolve(spec, h, rows, cols)
		if err != nil {
			return nil, &TileError{Tile: spec, Err: err}
		}
		jobs = append(jobs, Job{Tile: spec, Geometry: g, Index: len(jobs), Total: len(specs)})
	}
	return jobs, nil
}

// Run processes every tile of the source of sio with op and writes the
// results to the target of sio. The first failing tile cancels the run:
// no further tiles are started and tiles in flight stop at their next
// checkpoint. The returned error is a *TileError.
func (s *Scheduler) Run(ctx context.Context, sio *SharedIO, op ops.Operation) error {
	if !s.state.CompareAndSwap(int32(NotStarted), int32(Running)) {
		return fmt.Errorf("rasterchunk: scheduler is %v", s.State())
	}
	err := s.run(ctx, sio, op)
	if err != nil {
		s.state.Store(int32(Failed))
		return err
	}
	s.state.Store(int32(Completed))
	return nil
}

func (s *Scheduler) run(ctx context.Context, sio *SharedIO, op ops.Operation) error {
	logger := s.config.Logger
	meta := sio.Meta()

	h := s.Halo(op)
	if h > 2*s.config.Overlap {
		logger.Debug("rasterchunk: halo raised for operation", "op", op.Name(), "halo", h, "overlap", s.config.Overlap)
	}

	jobs, err := s.Jobs(meta.Rows, meta.Cols, h)
	if err != nil {
		return err
	}
	logger.Debug("rasterchunk: processing",
		"op", op.Name(),
		"rows", meta.Rows,
		"cols", meta.Cols,
		"tiles", len(jobs),
		"tile_size", s.config.TileSize,
		"halo", h,
		"workers", s.config.Workers,
		"order", s.config.Order)

	rc := &runContext{
		io:       sio,
		op:       op,
		meta:     meta,
		progress: newProgressTracker(len(jobs), s.config.Progress),
		logger:   logger,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.Workers)
	for _, job := range jobs {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := processTile(groupCtx, rc, job); err != nil {
				return &TileError{Tile: job.Tile, Err: err}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Debug("rasterchunk: done!", "tiles", rc.progress.Done())
	return nil
}
