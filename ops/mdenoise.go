package ops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/raster"
	"github.com/eak1mov/go-rasterchunk/raster/asc"
)

// DefaultMDenoise is the executable name looked up in PATH when the exe
// parameter is not set.
const DefaultMDenoise = "mdenoise"

// mdenoise runs the mesh denoising executable by Sun et al. on every tile.
// The buffer is exchanged through ESRI ASCII files in a private temporary
// directory.
type mdenoise struct {
	exe     string
	tmpDir  string
	t, n, v string
}

func newMDenoise(p Params) (Operation, error) {
	t, err := p.Float("t")
	if err != nil {
		return nil, err
	}
	if t < 0 || t > 1 {
		return nil, fmt.Errorf("%w: t=%v must be in [0, 1]", ErrInvalidParam, t)
	}
	n, err := p.PositiveInt("n")
	if err != nil {
		return nil, err
	}
	v, err := p.PositiveInt("v")
	if err != nil {
		return nil, err
	}
	return mdenoise{
		exe:    p.StringOr("exe", DefaultMDenoise),
		tmpDir: p.StringOr("tmpdir", ""),
		t:      strconv.FormatFloat(t, 'g', -1, 64),
		n:      strconv.Itoa(n),
		v:      strconv.Itoa(v),
	}, nil
}

func (mdenoise) Name() string { return "mdenoise" }
func (mdenoise) MinHalo() int { return 0 }

func (o mdenoise) Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error) {
	if in.AllNoData(env.NoData) {
		return in.Clone(), nil
	}

	dir, err := os.MkdirTemp(o.tmpDir, "mdenoise-"+env.Tile+"-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "source.asc")
	dst := filepath.Join(dir, "target.asc")

	cs := cellSize(env)
	meta := raster.Meta{
		CellSize:     cs,
		NoData:       env.NoData,
		HasNoData:    true,
		GeoTransform: raster.DefaultGeoTransform(1, 1, cs, in.Rows),
		Rows:         in.Rows,
		Cols:         in.Cols,
	}
	if err := asc.WriteFile(src, meta, in); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, o.exe, "-i", src, "-t", o.t, "-n", o.n, "-v", o.v, "-o", dst)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %w: %s", ErrExternal, o.exe, err, output)
	}
	env.logger().Debug("rasterchunk: mdenoise", "tile", env.Tile, "output", string(output))

	_, out, err := asc.ReadFile(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading result: %w", ErrExternal, o.exe, err)
	}
	if !out.SameShape(in) {
		return nil, fmt.Errorf("%w: %s returned %dx%d grid, want %dx%d",
			ErrExternal, o.exe, out.Rows, out.Cols, in.Rows, in.Cols)
	}
	return out, nil
}
