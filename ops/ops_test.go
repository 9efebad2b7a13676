package ops_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/eak1mov/go-rasterchunk/grid"
	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/google/go-cmp/cmp"
)

const noData = -9999.0

func randomGrid(rows, cols int, seed uint64) *grid.Grid {
	rng := rand.New(rand.NewPCG(seed, seed))
	g := grid.New(rows, cols)
	for i := range g.Data {
		g.Data[i] = 1000 + 100*rng.Float64()
	}
	return g
}

// withBorder returns a rows x cols grid of value with a no-data border of
// the given width.
func withBorder(rows, cols, border int, value float64) *grid.Grid {
	g := grid.Filled(rows, cols, noData)
	g.Paste(grid.Filled(rows-2*border, cols-2*border, value), border, border)
	return g
}

func TestNames(t *testing.T) {
	want := []string{"TPI", "blur_gauss", "blur_mean", "clahe", "copy", "hillshade", "mdenoise", "skymodel"}
	if diff := cmp.Diff(want, ops.Names()); diff != "" {
		t.Errorf("Names mismatch (-want+got):\n%v", diff)
	}
	for _, name := range want {
		if _, err := ops.Describe(name); err != nil {
			t.Errorf("Describe(%q) failed: %v", name, err)
		}
	}
	if _, err := ops.Describe("sharpen"); !errors.Is(err, ops.ErrUnknownOperation) {
		t.Errorf("Describe(sharpen) error = %v, want ErrUnknownOperation", err)
	}
}

func TestNewErrors(t *testing.T) {
	testCases := []struct {
		Name   string
		Op     string
		Params ops.Params
		Want   error
	}{
		{"Unknown", "sharpen", nil, ops.ErrUnknownOperation},
		{"GaussMissing", "blur_gauss", nil, ops.ErrMissingParam},
		{"GaussEmpty", "blur_gauss", ops.Params{"filter_size": ""}, ops.ErrMissingParam},
		{"GaussNotInt", "blur_gauss", ops.Params{"filter_size": "3.5"}, ops.ErrInvalidParam},
		{"MeanZero", "blur_mean", ops.Params{"filter_size": "0"}, ops.ErrInvalidParam},
		{"TPINegative", "TPI", ops.Params{"filter_size": "-2"}, ops.ErrInvalidParam},
		{"HillshadeAlt", "hillshade", ops.Params{"az": "315"}, ops.ErrMissingParam},
		{"HillshadeAz", "hillshade", ops.Params{"az": "north", "alt": "45"}, ops.ErrInvalidParam},
		{"ClaheClip", "clahe", ops.Params{"filter_size": "8", "clip_limit": "2"}, ops.ErrInvalidParam},
		{"SkymodelMissing", "skymodel", nil, ops.ErrMissingParam},
		{"SkymodelNoFile", "skymodel", ops.Params{"lum_file": "/nonexistent/lum.csv"}, ops.ErrInvalidParam},
		{"MDenoiseThreshold", "mdenoise", ops.Params{"t": "1.5", "n": "5", "v": "5"}, ops.ErrInvalidParam},
		{"MDenoiseMissing", "mdenoise", ops.Params{"t": "0.5", "n": "5"}, ops.ErrMissingParam},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			_, err := ops.New(tc.Op, tc.Params)
			if !errors.Is(err, tc.Want) {
				t.Errorf("New(%q, %v) error = %v, want %v", tc.Op, tc.Params, err, tc.Want)
			}
		})
	}
}

func TestMinHalo(t *testing.T) {
	testCases := []struct {
		Op     string
		Params ops.Params
		Want   int
	}{
		{"copy", nil, 0},
		{"blur_mean", ops.Params{"filter_size": "3"}, 12},
		{"blur_gauss", ops.Params{"filter_size": "5"}, 20},
		{"TPI", ops.Params{"filter_size": "2"}, 8},
		{"clahe", ops.Params{"filter_size": "4", "clip_limit": "0.01"}, 16},
		{"hillshade", ops.Params{"az": "315", "alt": "45"}, 2},
		{"mdenoise", ops.Params{"t": "0.9", "n": "10", "v": "20"}, 0},
	}
	for _, tc := range testCases {
		op, err := ops.New(tc.Op, tc.Params)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", tc.Op, err)
		}
		if got := op.MinHalo(); got != tc.Want {
			t.Errorf("%s.MinHalo() = %d, want %d", tc.Op, got, tc.Want)
		}
		if got := op.Name(); got != tc.Op {
			t.Errorf("Name() = %q, want %q", got, tc.Op)
		}
	}
}

func TestShapePreserved(t *testing.T) {
	testCases := []struct {
		Op     string
		Params ops.Params
	}{
		{"copy", nil},
		{"blur_mean", ops.Params{"filter_size": "5"}},
		{"blur_gauss", ops.Params{"filter_size": "3"}},
		{"TPI", ops.Params{"filter_size": "5"}},
		{"clahe", ops.Params{"filter_size": "4", "clip_limit": "0.01"}},
		{"hillshade", ops.Params{"az": "315", "alt": "45"}},
	}
	in := randomGrid(13, 7, 1)
	in.Set(3, 3, noData)
	for _, tc := range testCases {
		t.Run(tc.Op, func(t *testing.T) {
			t.Parallel()
			op, err := ops.New(tc.Op, tc.Params)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			before := in.Clone()
			out, err := op.Apply(context.Background(), in, ops.Env{NoData: noData, CellSize: 1})
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if !out.SameShape(in) {
				t.Errorf("Apply returned %dx%d, want %dx%d", out.Rows, out.Cols, in.Rows, in.Cols)
			}
			if diff := cmp.Diff(before, in); diff != "" {
				t.Errorf("Apply modified its input (-want+got):\n%v", diff)
			}
		})
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op, err := ops.New("blur_mean", ops.Params{"filter_size": "3"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := op.Apply(ctx, grid.New(3, 3), ops.Env{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Apply(canceled) error = %v, want context.Canceled", err)
	}
}

func TestParams(t *testing.T) {
	p := ops.Params{"a": "1.5", "b": "7", "c": "x"}

	if v, err := p.Float("a"); err != nil || v != 1.5 {
		t.Errorf("Float(a) = %v, %v", v, err)
	}
	if v, err := p.Int("b"); err != nil || v != 7 {
		t.Errorf("Int(b) = %v, %v", v, err)
	}
	if _, err := p.Int("a"); !errors.Is(err, ops.ErrInvalidParam) {
		t.Errorf("Int(a) error = %v, want ErrInvalidParam", err)
	}
	if _, err := p.Float("missing"); !errors.Is(err, ops.ErrMissingParam) {
		t.Errorf("Float(missing) error = %v, want ErrMissingParam", err)
	}
	if got := p.StringOr("missing", "def"); got != "def" {
		t.Errorf("StringOr(missing) = %q, want def", got)
	}
	if got := p.StringOr("c", "def"); got != "x" {
		t.Errorf("StringOr(c) = %q, want x", got)
	}
}
