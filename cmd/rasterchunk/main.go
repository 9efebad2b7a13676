package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/google/subcommands"
	_ "github.com/mattn/go-sqlite3"

	_ "github.com/eak1mov/go-rasterchunk/raster/asc"
	_ "github.com/eak1mov/go-rasterchunk/raster/flt"
	_ "github.com/eak1mov/go-rasterchunk/raster/rdb"
	_ "github.com/eak1mov/go-rasterchunk/raster/vrt"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&convertCmd{}, "")
	subcommands.Register(&infoCmd{}, "")
	subcommands.Register(&opsCmd{}, "")

	verbose := flag.Bool("v", false, "Verbose output (debug logging)")
	flag.Parse()
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	ctx, stop := signalContext(context.Background())
	defer stop()
	os.Exit(int(subcommands.Execute(ctx)))
}
