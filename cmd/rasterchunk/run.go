package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/eak1mov/go-rasterchunk/chunk"
	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/eak1mov/go-rasterchunk/tile"
	"github.com/google/subcommands"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// paramsFlag collects repeated -p key=value flags.
type paramsFlag map[string]string

func (p paramsFlag) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (p paramsFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("want key=value, got %q", s)
	}
	p[key] = value
	return nil
}

// runFile is the YAML run configuration accepted by -config.
type runFile struct {
	Input        string            `yaml:"input"`
	Output       string            `yaml:"output"`
	OutputFormat string            `yaml:"output_format"`
	TileSize     int               `yaml:"tile_size"`
	Overlap      int               `yaml:"overlap"`
	Workers      int               `yaml:"workers"`
	Order        string            `yaml:"order"`
	Operation    string            `yaml:"operation"`
	Params       map[string]string `yaml:"params"`
}

func readRunFile(path string) (runFile, error) {
	var rf runFile
	file, err := os.Open(path)
	if err != nil {
		return rf, err
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return rf, fmt.Errorf("%s: %w", path, err)
	}
	return rf, nil
}

type runCmd struct {
	runFile
	configPath string
	params     paramsFlag
}

func (c *runCmd) Name() string     { return "run" }
func (c *runCmd) Synopsis() string { return "apply an operation to a raster tile by tile" }
func (c *runCmd) Usage() string {
	return "rasterchunk run -i <path> -o <path> -m <operation> [-p key=value ...] [-s <size> -ov <cells> -w <workers> -of <format> -config <file>]\n"
}
func (c *runCmd) SetFlags(f *flag.FlagSet) {
	c.params = make(paramsFlag)
	f.StringVar(&c.configPath, "config", "", "YAML run configuration; flags given explicitly take precedence")
	f.StringVar(&c.Input, "i", "", "Input raster path")
	f.StringVar(&c.Output, "o", "", "Output raster path (must not exist)")
	f.StringVar(&c.OutputFormat, "of", "", "Output format, deduced from the output path if empty")
	f.StringVar(&c.Operation, "m", "", "Operation (see 'rasterchunk ops')")
	f.Var(c.params, "p", "Operation parameter key=value, may be repeated")
	f.IntVar(&c.TileSize, "s", chunk.DefaultTileSize, "Tile size in cells")
	f.IntVar(&c.Overlap, "ov", 0, "Overlap in cells; the halo is twice the overlap")
	f.IntVar(&c.Workers, "w", runtime.NumCPU(), "Number of tiles processed in parallel")
	f.StringVar(&c.Order, "order", "rowmajor", "Tile dispatch order (rowmajor, hilbert)")
}

// resolve merges the run file and explicitly set flags.
func (c *runCmd) resolve(f *flag.FlagSet) (runFile, error) {
	if c.configPath == "" {
		rf := c.runFile
		rf.Params = c.params
		return rf, nil
	}

	rf, err := readRunFile(c.configPath)
	if err != nil {
		return rf, err
	}
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "i":
			rf.Input = c.Input
		case "o":
			rf.Output = c.Output
		case "of":
			rf.OutputFormat = c.OutputFormat
		case "m":
			rf.Operation = c.Operation
		case "s":
			rf.TileSize = c.TileSize
		case "ov":
			rf.Overlap = c.Overlap
		case "w":
			rf.Workers = c.Workers
		case "order":
			rf.Order = c.Order
		}
	})
	rf.Params = lo.Assign(rf.Params, map[string]string(c.params))
	if rf.TileSize == 0 {
		rf.TileSize = chunk.DefaultTileSize
	}
	if rf.Workers == 0 {
		rf.Workers = runtime.NumCPU()
	}
	return rf, nil
}

func runConfig(rf runFile) (chunk.RunConfig, error) {
	order, err := tile.ParseOrder(rf.Order)
	if err != nil {
		return chunk.RunConfig{}, err
	}
	return chunk.RunConfig{
		Source:       rf.Input,
		Target:       rf.Output,
		TargetFormat: rf.OutputFormat,
		TileSize:     rf.TileSize,
		Overlap:      rf.Overlap,
		Workers:      rf.Workers,
		Order:        order,
		Operation:    rf.Operation,
		Params:       ops.Params(rf.Params),
		Logger:       slog.Default(),
	}, nil
}

func execute(ctx context.Context, config chunk.RunConfig) subcommands.ExitStatus {
	sink := &progressSink{}
	config.Progress = sink.update

	slog.Debug("rasterchunk: run",
		"input", config.Source,
		"output", config.Target,
		"format", deduceFormat(config.TargetFormat, config.Target),
		"operation", config.Operation,
		"params", paramsFlag(config.Params).String())

	err := chunk.Run(ctx, config)
	sink.finish()
	if err != nil {
		log.Println(err)
		if errors.Is(err, chunk.ErrConfig) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	rf, err := c.resolve(f)
	if err != nil {
		log.Println(err)
		return subcommands.ExitUsageError
	}
	config, err := runConfig(rf)
	if err != nil {
		log.Println(err)
		return subcommands.ExitUsageError
	}
	return execute(ctx, config)
}
