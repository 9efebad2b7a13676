package main

import (
	"fmt"
	"io"
	"os"

	"github.com/eak1mov/go-rasterchunk/chunk"
	"github.com/schollz/progressbar/v3"
)

// progressSink drives a progress bar sized on the first update. Per-tile
// debug lines are logged by the scheduler itself.
type progressSink struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func (s *progressSink) update(p chunk.Progress) {
	if s.bar == nil {
		if s.out == nil {
			s.out = os.Stdout
		}
		s.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(s.out),
			progressbar.OptionSetDescription("tiles"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetPredictTime(true),
		)
	}
	s.bar.Set(p.Done)
}

func (s *progressSink) finish() {
	if s.bar != nil {
		s.bar.Finish()
		fmt.Fprintln(s.out)
	}
}
