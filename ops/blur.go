package ops

import (
	"context"
	"math"

	"github.com/eak1mov/go-rasterchunk/grid"
	"gonum.org/v1/gonum/floats"
)

type blurMean struct {
	filterSize int
}

func newBlurMean(p Params) (Operation, error) {
	fs, err := p.PositiveInt("filter_size")
	if err != nil {
		return nil, err
	}
	return blurMean{filterSize: fs}, nil
}

func (blurMean) Name() string   { return "blur_mean" }
func (o blurMean) MinHalo() int { return 4 * o.filterSize }

func (o blurMean) Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := focalMean(toNaN(in, env.NoData), o.filterSize/2)
	return fromNaN(out, env.NoData), nil
}

type tpi struct {
	filterSize int
}

func newTPI(p Params) (Operation, error) {
	fs, err := p.PositiveInt("filter_size")
	if err != nil {
		return nil, err
	}
	return tpi{filterSize: fs}, nil
}

func (tpi) Name() string   { return "TPI" }
func (o tpi) MinHalo() int { return 4 * o.filterSize }

func (o tpi) Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values := toNaN(in, env.NoData)
	mean := focalMean(values, o.filterSize/2)
	floats.Sub(values.Data, mean.Data)
	return fromNaN(values, env.NoData), nil
}

type blurGauss struct {
	size   int
	kernel []float64
}

func newBlurGauss(p Params) (Operation, error) {
	size, err := p.PositiveInt("filter_size")
	if err != nil {
		return nil, err
	}

	// exp(-(x²+y²)/size) is separable into two 1D kernels
	kernel := make([]float64, 2*size+1)
	for i := range kernel {
		x := float64(i - size)
		kernel[i] = math.Exp(-x * x / float64(size))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)

	return blurGauss{size: size, kernel: kernel}, nil
}

func (blurGauss) Name() string   { return "blur_gauss" }
func (o blurGauss) MinHalo() int { return 4 * o.size }

// Apply convolves valid cells and renormalizes by the kernel weight that
// fell on valid cells, which interpolates across no-data holes.
func (o blurGauss) Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values := grid.New(in.Rows, in.Cols)
	weights := grid.New(in.Rows, in.Cols)
	for i, v := range in.Data {
		if !grid.IsNoData(v, env.NoData) {
			values.Data[i] = v
			weights.Data[i] = 1
		}
	}

	num := convolveCols(convolveRows(values, o.kernel), o.kernel)
	den := convolveCols(convolveRows(weights, o.kernel), o.kernel)
	for i, d := range den.Data {
		if d > 0 {
			num.Data[i] /= d
		} else {
			num.Data[i] = env.NoData
		}
	}
	return num, nil
}
