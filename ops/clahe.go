package ops

import (
	"context"
	"fmt"
	"math"

	"github.com/eak1mov/go-rasterchunk/grid"
)

const claheBins = 256

type clahe struct {
	kernel    int
	clipLimit float64
}

func newCLAHE(p Params) (Operation, error) {
	kernel, err := p.PositiveInt("filter_size")
	if err != nil {
		return nil, err
	}
	clipLimit, err := p.Float("clip_limit")
	if err != nil {
		return nil, err
	}
	if clipLimit < 0 || clipLimit > 1 {
		return nil, fmt.Errorf("%w: clip_limit=%v must be in [0, 1]", ErrInvalidParam, clipLimit)
	}
	return clahe{kernel: kernel, clipLimit: clipLimit}, nil
}

func (clahe) Name() string   { return "clahe" }
func (o clahe) MinHalo() int { return 4 * o.kernel }

// Apply equalizes the buffer in contextual regions of kernel x kernel cells.
// Values are binned between the buffer minimum and maximum; each region
// gets a clipped cumulative histogram and cells interpolate bilinearly
// between the mappings of the four nearest region centres.
func (o clahe) Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range in.Data {
		if !grid.IsNoData(v, env.NoData) && !math.IsNaN(v) {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	out := grid.Filled(in.Rows, in.Cols, env.NoData)
	if lo > hi {
		return out, nil
	}

	bins := make([]int, len(in.Data))
	for i, v := range in.Data {
		switch {
		case grid.IsNoData(v, env.NoData) || math.IsNaN(v):
			bins[i] = -1
		case hi > lo:
			bins[i] = int((v-lo)/(hi-lo)*(claheBins-1) + 0.5)
		}
	}

	k := o.kernel
	regionsY := (in.Rows + k - 1) / k
	regionsX := (in.Cols + k - 1) / k
	clim := max(1, o.clipLimit*float64(k*k))
	maps := make([][]float64, regionsY*regionsX)
	for ry := range regionsY {
		for rx := range regionsX {
			var hist [claheBins]float64
			for r := ry * k; r < min(in.Rows, (ry+1)*k); r++ {
				for c := rx * k; c < min(in.Cols, (rx+1)*k); c++ {
					if b := bins[r*in.Cols+c]; b >= 0 {
						hist[b]++
					}
				}
			}
			maps[ry*regionsX+rx] = regionMap(hist[:], clim)
		}
	}

	for r := range in.Rows {
		fy := min(max(0, (float64(r)+0.5)/float64(k)-0.5), float64(regionsY-1))
		y0 := int(fy)
		y1 := min(y0+1, regionsY-1)
		wy := fy - float64(y0)
		for c := range in.Cols {
			b := bins[r*in.Cols+c]
			if b < 0 {
				continue
			}
			fx := min(max(0, (float64(c)+0.5)/float64(k)-0.5), float64(regionsX-1))
			x0 := int(fx)
			x1 := min(x0+1, regionsX-1)
			wx := fx - float64(x0)

			top := (1-wx)*maps[y0*regionsX+x0][b] + wx*maps[y0*regionsX+x1][b]
			bottom := (1-wx)*maps[y1*regionsX+x0][b] + wx*maps[y1*regionsX+x1][b]
			out.Set(r, c, min(1, max(0, (1-wy)*top+wy*bottom)))
		}
	}
	return out, nil
}

// regionMap clips hist at clim, redistributes the excess evenly over all
// bins and returns the normalized cumulative histogram. An empty region
// maps linearly.
func regionMap(hist []float64, clim float64) []float64 {
	m := make([]float64, len(hist))
	total := 0.0
	excess := 0.0
	for i, h := range hist {
		total += h
		if h > clim {
			excess += h - clim
			hist[i] = clim
		}
	}
	if total == 0 {
		for i := range m {
			m[i] = float64(i) / float64(len(m)-1)
		}
		return m
	}

	share := excess / float64(len(hist))
	cdf := 0.0
	for i, h := range hist {
		cdf += h + share
		m[i] = cdf / total
	}
	return m
}
