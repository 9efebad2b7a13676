// Package ops implements the per-tile operations applied to padded tile
// buffers.
//
// An operation receives a buffer that includes the halo and must return a
// grid of exactly the same shape. No-data cells of the input are treated as
// missing values; cells the operation cannot compute are returned as
// no-data. The caller trims the halo and restores the input no-data mask.
package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/samber/lo"
)

var (
	ErrUnknownOperation = errors.New("rasterchunk: unknown operation")
	ErrMissingParam     = errors.New("rasterchunk: missing operation parameter")
	ErrInvalidParam     = errors.New("rasterchunk: invalid operation parameter")

	// ErrExternal is returned when an external process used by an
	// operation fails.
	ErrExternal = errors.New("rasterchunk: external process failed")
)

// Env carries per-call information about the buffer being processed.
type Env struct {
	NoData   float64
	CellSize float64

	// Tile identifies the tile, e.g. for naming temporary files.
	Tile string

	Logger *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Operation transforms a padded tile buffer. Implementations must be safe
// for concurrent use: one Operation value is shared by all workers.
type Operation interface {
	Name() string

	// MinHalo is the smallest halo, in cells, that gives the operation
	// enough context for seamless output.
	MinHalo() int

	// Apply returns a new grid of the same shape as in. It must not
	// modify in.
	Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error)
}

type factory func(Params) (Operation, error)

type entry struct {
	params      []string
	description string
	new         factory
}

var registry = map[string]entry{
	"copy": {
		description: "copy input values unchanged",
		new:         newCopy,
	},
	"blur_mean": {
		params:      []string{"filter_size"},
		description: "mean of values within a circle of diameter filter_size",
		new:         newBlurMean,
	},
	"blur_gauss": {
		params:      []string{"filter_size"},
		description: "gaussian blur with a kernel of radius filter_size",
		new:         newBlurGauss,
	},
	"TPI": {
		params:      []string{"filter_size"},
		description: "topographic position index: value minus circular mean",
		new:         newTPI,
	},
	"hillshade": {
		params:      []string{"az", "alt"},
		description: "hillshade for a light source at azimuth az and altitude alt (degrees)",
		new:         newHillshade,
	},
	"skymodel": {
		params:      []string{"lum_file"},
		description: "weighted sum of hillshades listed in a CSV file of az,alt,weight lines",
		new:         newSkymodel,
	},
	"clahe": {
		params:      []string{"filter_size", "clip_limit"},
		description: "contrast limited adaptive histogram equalization, output in [0, 1]",
		new:         newCLAHE,
	},
	"mdenoise": {
		params:      []string{"t", "n", "v", "[exe]", "[tmpdir]"},
		description: "feature-preserving mesh denoising by an external executable",
		new:         newMDenoise,
	},
}

// New validates params and returns the named operation. It does no raster
// I/O, so configuration errors are reported before a run touches any file.
func New(name string, params Params) (Operation, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownOperation, name, strings.Join(Names(), ", "))
	}
	return e.new(params)
}

// Names returns the sorted names of all operations.
func Names() []string {
	names := lo.Keys(registry)
	slices.Sort(names)
	return names
}

// Describe returns a one-line description of the named operation and its
// parameters. Optional parameters are enclosed in brackets.
func Describe(name string) (string, error) {
	e, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	if len(e.params) == 0 {
		return e.description, nil
	}
	return fmt.Sprintf("%s (params: %s)", e.description, strings.Join(e.params, ", ")), nil
}

type copyOp struct{}

func newCopy(Params) (Operation, error) { return copyOp{}, nil }

func (copyOp) Name() string { return "copy" }
func (copyOp) MinHalo() int { return 0 }

func (copyOp) Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error) {
	return in.Clone(), nil
}
