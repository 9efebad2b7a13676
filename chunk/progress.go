package chunk

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eak1mov/go-rasterchunk/tile"
)

// Progress is reported after every completed tile.
type Progress struct {
	Tile    tile.ID
	Done    int
	Total   int
	Elapsed time.Duration
}

func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return 100 * float64(p.Done) / float64(p.Total)
}

func (p Progress) String() string {
	return fmt.Sprintf("tile %v: %d of %d (%.3f%%) in %v",
		p.Tile, p.Done, p.Total, p.Percent(), p.Elapsed.Round(time.Millisecond))
}

// ProgressFunc receives progress updates. Calls are serialized, so the
// function does not need to be safe for concurrent use.
type ProgressFunc func(Progress)

type progressTracker struct {
	mu    sync.Mutex
	done  atomic.Int64
	total int
	start time.Time
	sink  ProgressFunc
}

func newProgressTracker(total int, sink ProgressFunc) *progressTracker {
	return &progressTracker{total: total, start: time.Now(), sink: sink}
}

func (t *progressTracker) complete(id tile.ID) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := Progress{
		Tile:    id,
		Done:    int(t.done.Add(1)),
		Total:   t.total,
		Elapsed: time.Since(t.start),
	}
	if t.sink != nil {
		t.sink(p)
	}
	return p
}

func (t *progressTracker) Done() int {
	return int(t.done.Load())
}
