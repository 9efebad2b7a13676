package ops_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// eastRamp rises by one unit per column.
func eastRamp(rows, cols int) *grid.Grid {
	g := grid.New(rows, cols)
	for r := range rows {
		for c := range cols {
			g.Set(r, c, float64(c))
		}
	}
	return g
}

func TestHillshadeFlat(t *testing.T) {
	out := apply(t, "hillshade", ops.Params{"az": "315", "alt": "30"}, grid.Filled(6, 6, 100))
	for _, v := range out.Data {
		require.InDelta(t, 255*0.5, v, 1e-9)
	}
}

func TestHillshadeRamp(t *testing.T) {
	in := eastRamp(5, 6)

	out := apply(t, "hillshade", ops.Params{"az": "90", "alt": "45"}, in)
	for _, v := range out.Data {
		require.InDelta(t, 0, v, 1e-9)
	}

	out = apply(t, "hillshade", ops.Params{"az": "270", "alt": "45"}, in)
	for _, v := range out.Data {
		require.InDelta(t, 255, v, 1e-9)
	}
}

func TestHillshadeNoData(t *testing.T) {
	in := grid.Filled(6, 6, 10)
	in.Set(2, 2, noData)
	out := apply(t, "hillshade", ops.Params{"az": "315", "alt": "45"}, in)

	// the hole itself is shaded from its neighbours; the worker masks it
	require.False(t, math.IsNaN(out.At(2, 2)))
	require.NotEqual(t, noData, out.At(2, 2))
	require.Equal(t, noData, out.At(1, 2))
	require.Equal(t, noData, out.At(2, 3))
	require.False(t, math.IsNaN(out.At(5, 5)))
	require.NotEqual(t, noData, out.At(5, 5))
}

func TestReadLights(t *testing.T) {
	input := strings.Join([]string{
		"# az, alt, weight",
		"315, 45, 0.75",
		"",
		"135,30,0.25",
	}, "\n")
	lights, err := ops.ReadLights(strings.NewReader(input))
	require.NoError(t, err)

	want := []ops.Light{
		{Azimuth: 315, Altitude: 45, Weight: 0.75},
		{Azimuth: 135, Altitude: 30, Weight: 0.25},
	}
	if diff := cmp.Diff(want, lights); diff != "" {
		t.Errorf("ReadLights mismatch (-want+got):\n%v", diff)
	}

	for name, input := range map[string]string{
		"Empty":       "# nothing\n",
		"ShortRecord": "315,45\n",
		"NotNumber":   "315,high,1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ops.ReadLights(strings.NewReader(input))
			require.Error(t, err)
		})
	}
}

func TestSkymodel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lum.csv")
	require.NoError(t, os.WriteFile(path, []byte("270,45,0.5\n270,45,0.25\n90,45,1\n"), 0644))

	op, err := ops.New("skymodel", ops.Params{"lum_file": path})
	require.NoError(t, err)
	require.Equal(t, 2, op.MinHalo())

	out, err := op.Apply(context.Background(), eastRamp(5, 5), ops.Env{NoData: noData, CellSize: 1})
	require.NoError(t, err)
	for _, v := range out.Data {
		require.InDelta(t, 0.75*255, v, 1e-9)
	}
}
