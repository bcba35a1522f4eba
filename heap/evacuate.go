package heap

import (
	"context"
	"fmt"
	"sync"

	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/logger"
)

// EvacuatePages copies the live objects of pages, which must belong to the
// space of kind, into fresh pages of the same space and releases the
// evacuated pages. Work is spread over workers goroutines, each with its own
// EvacuationAllocator. The result maps old addresses to new ones.
//
// Cancellation is checked between pages only; a page that was started is
// always finished. Pages left unvisited stay in the space and the context
// error is returned with the partial forwarding map.
func (h *Heap) EvacuatePages(ctx context.Context, kind Kind, pages []*space.Page, live Liveness, workers int) (map[Address]Address, error) {
	s := h.mustSpace(kind)
	for _, p := range pages {
		if p.Owner() != &s.Space {
			return nil, fmt.Errorf("heap: page %#x is not in %s space: %w", uint64(p.ChunkStart()), kind, space.ErrBadAddress)
		}
	}
	if len(pages) == 0 {
		return map[Address]Address{}, nil
	}
	h.flushMutator(kind)
	workers = max(1, min(workers, len(pages)))

	type result struct {
		forward map[Address]Address
		done    []*space.Page
		bytes   int
	}
	results := make([]result, workers)
	work := make(chan *space.Page)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(r *result) {
			defer wg.Done()
			e := h.BeginEvacuation(kind)
			defer e.Finalize()

			r.forward = make(map[Address]Address)
			for p := range work {
				for obj := range p.All() {
					if live.IsLive(obj) {
						r.forward[obj.Address] = e.Evacuate(obj.Address, obj.Size)
						r.bytes += obj.Size
					}
				}
				r.done = append(r.done, p)
			}
		}(&results[i])
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

	forward := make(map[Address]Address)
	evacuated, released, moved := 0, 0, 0
	var releaseErr error
	for _, r := range results {
		for from, to := range r.forward {
			forward[from] = to
		}
		moved += r.bytes
		for _, p := range r.done {
			evacuated++
			if err := s.ReleasePage(p); err != nil {
				releaseErr = err
				continue
			}
			released++
		}
	}
	logger.Debug("pages evacuated", "space", kind, "pages", evacuated, "released", released,
		"objects", len(forward), "bytes", moved, "workers", workers)

	if err := ctx.Err(); err != nil {
		return forward, err
	}
	return forward, releaseErr
}
