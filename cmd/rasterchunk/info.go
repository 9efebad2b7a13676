package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/eak1mov/go-rasterchunk/chunk"
	"github.com/eak1mov/go-rasterchunk/raster"
	"github.com/eak1mov/go-rasterchunk/tile"
	"github.com/google/subcommands"
)

type infoCmd struct {
	inputPath string
	tileSize  int
}

func (c *infoCmd) Name() string     { return "info" }
func (c *infoCmd) Synopsis() string { return "print raster metadata and tiling" }
func (c *infoCmd) Usage() string {
	return "rasterchunk info -i <path> [-s <size>]\n"
}
func (c *infoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.IntVar(&c.tileSize, "s", chunk.DefaultTileSize, "Tile size in cells")
}

func formatSize(n int64) string {
	v := float64(n)
	for _, unit := range []string{"B", "KiB", "MiB", "GiB", "TiB"} {
		if v < 1024 {
			return fmt.Sprintf("%3.1f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f PiB", v)
}

func (c *infoCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	reader, err := raster.Open(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	meta := reader.Meta()
	fmt.Printf("format:       %s\n", deduceFormat("", c.inputPath))
	fmt.Printf("size:         %d rows by %d columns (%s as float32)\n", meta.Rows, meta.Cols, formatSize(meta.SizeBytes()))
	fmt.Printf("cell size:    %g\n", meta.CellSize)
	if meta.HasNoData {
		fmt.Printf("nodata:       %g\n", meta.NoData)
	} else {
		fmt.Printf("nodata:       not set (required for processing)\n")
	}
	fmt.Printf("geotransform: %v\n", meta.GeoTransform)
	if meta.Projection != "" {
		fmt.Printf("projection:   %s\n", meta.Projection)
	}

	specs, err := tile.Partition(meta.Rows, meta.Cols, c.tileSize)
	if err != nil {
		log.Println(err)
		return subcommands.ExitUsageError
	}
	last := specs[len(specs)-1]
	fmt.Printf("tiles:        %d (%d x %d) of size %d\n", len(specs), last.ID.Row+1, last.ID.Col+1, c.tileSize)
	return subcommands.ExitSuccess
}
