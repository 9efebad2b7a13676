package main

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/eak1mov/go-rasterchunk/chunk"
	"github.com/eak1mov/go-rasterchunk/tile"
	"github.com/stretchr/testify/require"
)

func TestProgressSinkDoesNotLog(t *testing.T) {
	var logs bytes.Buffer
	defaultLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	sink := &progressSink{out: io.Discard}
	for i := range 3 {
		sink.update(chunk.Progress{Tile: tile.ID{Row: 0, Col: i}, Done: i + 1, Total: 3})
	}
	sink.finish()

	require.NotNil(t, sink.bar)
	require.Empty(t, logs.String())
}
