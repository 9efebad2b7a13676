package ops

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/eak1mov/go-rasterchunk/grid"
	"gonum.org/v1/gonum/floats"
)

// Light is a light source direction in degrees with its weight in a sky
// model.
type Light struct {
	Azimuth  float64
	Altitude float64
	Weight   float64
}

// shade computes a hillshade scaled to [0, 255] from precomputed gradients.
// NaN gradients give NaN.
func shade(dRow, dCol *grid.Grid, light Light) *grid.Grid {
	az := (90 - light.Azimuth) * math.Pi / 180
	alt := light.Altitude * math.Pi / 180
	sinAlt, cosAlt := math.Sincos(alt)
	sinAz, cosAz := math.Sincos(az)

	out := grid.New(dRow.Rows, dRow.Cols)
	for i := range out.Data {
		x, y := dRow.Data[i], dCol.Data[i]
		out.Data[i] = 255 * (sinAlt - (y*cosAz*cosAlt - x*sinAz*cosAlt)) / math.Sqrt(1+x*x+y*y)
	}
	return out
}

func cellSize(env Env) float64 {
	if env.CellSize > 0 {
		return env.CellSize
	}
	return 1
}

type hillshade struct {
	light Light
}

func newHillshade(p Params) (Operation, error) {
	az, err := p.Float("az")
	if err != nil {
		return nil, err
	}
	alt, err := p.Float("alt")
	if err != nil {
		return nil, err
	}
	return hillshade{light: Light{Azimuth: az, Altitude: alt, Weight: 1}}, nil
}

func (hillshade) Name() string { return "hillshade" }
func (hillshade) MinHalo() int { return 2 }

func (o hillshade) Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dRow, dCol := gradient(toNaN(in, env.NoData), cellSize(env))
	return fromNaN(shade(dRow, dCol, o.light), env.NoData), nil
}

type skymodel struct {
	lights []Light
}

func newSkymodel(p Params) (Operation, error) {
	path, err := p.String("lum_file")
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: lum_file: %w", ErrInvalidParam, err)
	}
	defer file.Close()

	lights, err := ReadLights(file)
	if err != nil {
		return nil, fmt.Errorf("%w: lum_file %s: %w", ErrInvalidParam, path, err)
	}
	return skymodel{lights: lights}, nil
}

// ReadLights parses a luminance file: CSV lines of azimuth, altitude and
// weight. Blank lines and lines starting with # are skipped.
func ReadLights(r io.Reader) ([]Light, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	var lights []Light
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var values [3]float64
		for i, field := range record {
			if values[i], err = strconv.ParseFloat(field, 64); err != nil {
				line, _ := reader.FieldPos(i)
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		lights = append(lights, Light{Azimuth: values[0], Altitude: values[1], Weight: values[2]})
	}
	if len(lights) == 0 {
		return nil, errors.New("no light sources")
	}
	return lights, nil
}

func (skymodel) Name() string { return "skymodel" }
func (skymodel) MinHalo() int { return 2 }

func (o skymodel) Apply(ctx context.Context, in *grid.Grid, env Env) (*grid.Grid, error) {
	dRow, dCol := gradient(toNaN(in, env.NoData), cellSize(env))
	sky := grid.New(in.Rows, in.Cols)
	for _, light := range o.lights {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		floats.AddScaled(sky.Data, light.Weight, shade(dRow, dCol, light).Data)
	}
	return fromNaN(sky, env.NoData), nil
}
