package heap

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

// Sweep turns every dead object on the pages of kind into free-list
// entries. Adjacent dead objects, fillers and free nodes are coalesced into
// one range. Pages are swept by workers goroutines without the space lock;
// each page's free-list categories are relinked when it is done.
//
// Returns the number of bytes that became reusable. Cancellation is checked
// between pages.
func (h *Heap) Sweep(ctx context.Context, kind Kind, live Liveness, workers int) (int, error) {
	s := h.mustSpace(kind)
	h.flushMutator(kind)
	pages := s.MemoryChunkList()
	if len(pages) == 0 {
		return 0, nil
	}
	workers = max(1, min(workers, len(pages)))

	var freed atomic.Int64
	work := make(chan *space.Page)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				freed.Add(int64(sweepPage(s, p, live)))
			}
		}()
	}

feed:
	for _, p := range pages {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case work <- p:
		}
	}
	close(work)
	wg.Wait()

	logger.Debug("space swept", "space", kind, "pages", len(pages), "freed", freed.Load())
	return int(freed.Load()), ctx.Err()
}

// sweepPage rebuilds the free ranges of one page and returns how many free
// bytes it gained.
func sweepPage(s *space.PagedSpace, p *space.Page, live Liveness) int {
	before := p.FreeBytes()
	s.StartSweeping(p)
	defer s.FinishSweeping(p)

	var runStart Address
	runLen := 0
	flush := func() {
		if runLen > 0 {
			s.FreeDuringSweep(runStart, runLen)
			runLen = 0
		}
	}
	for r := range p.Ranges() {
		if r.Tag == format.TagObject && live.IsLive(space.Object{Address: r.Address, Size: r.Size}) {
			flush()
			continue
		}
		if runLen == 0 {
			runStart = r.Address
		}
		runLen += r.Size
	}
	flush()
	return p.FreeBytes() - before
}
