package main

import (
	"context"
	"flag"
	"log/slog"
	"runtime"

	"github.com/eak1mov/go-rasterchunk/chunk"
	"github.com/google/subcommands"
)

type convertCmd struct {
	inputPath    string
	outputPath   string
	outputFormat string
	tileSize     int
	workers      int
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between raster formats" }
func (c *convertCmd) Usage() string {
	return "rasterchunk convert -i <path> -o <path> [-of <format> -s <size> -w <workers>]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format ("+formatList()+")")
	f.IntVar(&c.tileSize, "s", chunk.DefaultTileSize, "Tile size in cells")
	f.IntVar(&c.workers, "w", runtime.NumCPU(), "Number of tiles processed in parallel")
}

func (c *convertCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, chunk.RunConfig{
		Source:       c.inputPath,
		Target:       c.outputPath,
		TargetFormat: c.outputFormat,
		TileSize:     c.tileSize,
		Workers:      c.workers,
		Operation:    "copy",
		Logger:       slog.Default(),
	})
}
