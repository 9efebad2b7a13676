package ops_test

import (
	"testing"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/stretchr/testify/require"
)

func TestCLAHERange(t *testing.T) {
	in := randomGrid(20, 24, 7)
	in.Set(5, 5, noData)
	out := apply(t, "clahe", ops.Params{"filter_size": "6", "clip_limit": "0.02"}, in)

	require.Equal(t, noData, out.At(5, 5))
	for i, v := range out.Data {
		if i == 5*in.Cols+5 {
			continue
		}
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestCLAHESingleRegion(t *testing.T) {
	// with one contextual region the mapping is a single monotonic function
	in := randomGrid(8, 8, 3)
	out := apply(t, "clahe", ops.Params{"filter_size": "16", "clip_limit": "1"}, in)

	for i := range in.Data {
		for j := range in.Data {
			if in.Data[i] < in.Data[j] {
				require.LessOrEqual(t, out.Data[i], out.Data[j])
			}
		}
	}

	maxIndex := 0
	for i, v := range in.Data {
		if v > in.Data[maxIndex] {
			maxIndex = i
		}
	}
	require.InDelta(t, 1.0, out.Data[maxIndex], 1e-9)
}

func TestCLAHEAllNoData(t *testing.T) {
	in := grid.Filled(4, 4, noData)
	out := apply(t, "clahe", ops.Params{"filter_size": "2", "clip_limit": "0.5"}, in)
	require.Equal(t, in, out)
}
