package space

import (
	"sync"
	"sync/atomic"
)

// LinearArea is an allocator-owned [top, limit) region reserved on one of a
// space's pages. Its bytes are counted as allocated while attached.
type LinearArea interface {
	// Unused returns limit - top.
	Unused() int
}

// Space is the state shared by every space kind: its page list, its
// accounting counters and its external backing store counters.
//
// The page list is guarded by mu. Counters are atomic so sweepers and
// statistics readers never need the lock.
type Space struct {
	kind   Kind
	oracle Oracle

	mu    sync.Mutex
	pages PageList
	areas map[LinearArea]struct{}

	capacity  atomic.Int64
	allocated atomic.Int64
	free      atomic.Int64
	wasted    atomic.Int64

	external [NumExternalBackingStoreTypes]atomic.Int64
}

func (s *Space) init(kind Kind, oracle Oracle) {
	s.kind = kind
	s.oracle = oracle
	s.areas = make(map[LinearArea]struct{})
}

// Kind returns the allocation purpose of the space.
func (s *Space) Kind() Kind { return s.kind }

// Oracle returns the liveness/size oracle used to walk the space's pages.
func (s *Space) Oracle() Oracle {
	if s.oracle == nil {
		return DefaultOracle
	}
	return s.oracle
}

// FirstPage returns the oldest page, or nil.
func (s *Space) FirstPage() *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages.First()
}

// LastPage returns the newest page, or nil.
func (s *Space) LastPage() *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages.Last()
}

// PageCount returns the number of pages.
func (s *Space) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages.Len()
}

// MemoryChunkList returns the pages in insertion order.
func (s *Space) MemoryChunkList() []*Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages.Slice()
}

// Capacity returns the total page area of the space.
func (s *Space) Capacity() int { return int(s.capacity.Load()) }

// AllocatedBytes returns the bytes handed out, including attached linear areas.
func (s *Space) AllocatedBytes() int { return int(s.allocated.Load()) }

// FreeBytes returns the bytes held in free-list nodes, linked or not.
func (s *Space) FreeBytes() int { return int(s.free.Load()) }

// WastedBytes returns the bytes lost to unusable fragments.
func (s *Space) WastedBytes() int { return int(s.wasted.Load()) }

// SizeOfObjects returns the bytes occupied by objects: allocated bytes minus
// the unused tails of attached linear areas. Call it from the goroutine
// that owns those areas or while allocation is stopped.
func (s *Space) SizeOfObjects() int {
	s.mu.Lock()
	unused := 0
	for la := range s.areas {
		unused += la.Unused()
	}
	s.mu.Unlock()
	return s.AllocatedBytes() - unused
}

// AttachLinearArea registers an allocator's linear area for SizeOfObjects.
func (s *Space) AttachLinearArea(la LinearArea) {
	s.mu.Lock()
	s.areas[la] = struct{}{}
	s.mu.Unlock()
}

// DetachLinearArea unregisters la.
func (s *Space) DetachLinearArea(la LinearArea) {
	s.mu.Lock()
	delete(s.areas, la)
	s.mu.Unlock()
}

// ExternalBytes returns the external backing store bytes of type t.
func (s *Space) ExternalBytes(t ExternalBackingStoreType) int {
	return int(s.external[t].Load())
}

// IncrementExternalBytes records n more external bytes of type t.
func (s *Space) IncrementExternalBytes(t ExternalBackingStoreType, n int) {
	s.external[t].Add(int64(n))
}

// DecrementExternalBytes records n fewer external bytes of type t.
func (s *Space) DecrementExternalBytes(t ExternalBackingStoreType, n int) {
	if s.external[t].Add(-int64(n)) < 0 {
		panicf("%s space: external bytes of type %d went negative", s.kind, t)
	}
}

// MoveExternalBytes transfers n external bytes of type t from s to dst.
func (s *Space) MoveExternalBytes(dst *Space, t ExternalBackingStoreType, n int) {
	s.DecrementExternalBytes(t, n)
	dst.IncrementExternalBytes(t, n)
}

// baseStats fills the counters shared by every space kind.
func (s *Space) baseStats() Stats {
	st := Stats{
		Kind:          s.kind,
		Pages:         s.PageCount(),
		Capacity:      s.Capacity(),
		Allocated:     s.AllocatedBytes(),
		Free:          s.FreeBytes(),
		Wasted:        s.WastedBytes(),
		SizeOfObjects: s.SizeOfObjects(),
	}
	for t := range st.External {
		st.External[t] = s.ExternalBytes(ExternalBackingStoreType(t))
	}
	return st
}

// The helpers below move bytes between the allocated, free and wasted
// buckets of a page and its owner at the same time, so both levels keep
// allocated + free + wasted == capacity.

// addPage links p and adds its counters to the space totals. A freshly
// formatted page counts its whole area as allocated until the caller
// returns the unused part.
func (s *Space) addPage(p *Page) {
	p.owner = s
	s.pages.PushBack(p)
	s.capacity.Add(int64(p.AreaSize()))
	s.allocated.Add(p.allocated.Load())
	s.free.Add(p.free.Load())
	s.wasted.Add(p.wasted.Load())
}

// removePage unlinks p and drops its counters from the space totals.
func (s *Space) removePage(p *Page) {
	s.pages.Remove(p)
	s.capacity.Add(-int64(p.AreaSize()))
	s.allocated.Add(-p.allocated.Load())
	s.free.Add(-p.free.Load())
	s.wasted.Add(-p.wasted.Load())
	p.owner = nil
}

// adoptPage moves p and its counters from its current owner to s.
// Both spaces must be locked or otherwise exclusively held.
func (s *Space) adoptPage(p *Page) {
	p.owner.removePage(p)
	s.addPage(p)
}

func (s *Space) freeToAllocated(p *Page, n int) {
	p.free.Add(-int64(n))
	p.allocated.Add(int64(n))
	s.free.Add(-int64(n))
	s.allocated.Add(int64(n))
}

func (s *Space) allocatedToFree(p *Page, n int) {
	p.allocated.Add(-int64(n))
	p.free.Add(int64(n))
	s.allocated.Add(-int64(n))
	s.free.Add(int64(n))
}

func (s *Space) allocatedToWasted(p *Page, n int) {
	p.allocated.Add(-int64(n))
	p.wasted.Add(int64(n))
	s.allocated.Add(-int64(n))
	s.wasted.Add(int64(n))
}

func (s *Space) wastedToAllocated(p *Page, n int) {
	p.wasted.Add(-int64(n))
	p.allocated.Add(int64(n))
	s.wasted.Add(-int64(n))
	s.allocated.Add(int64(n))
}

// returnRange moves a released range of size bytes out of allocated,
// wasted of it into wasted and the rest into free.
func (s *Space) returnRange(p *Page, size, wasted int) {
	if wasted > 0 {
		s.allocatedToWasted(p, wasted)
	}
	if rest := size - wasted; rest > 0 {
		s.allocatedToFree(p, rest)
	}
}

// MarkWasted accounts an allocated range that was overwritten with a filler
// instead of being returned to a free list.
func (s *Space) MarkWasted(p *Page, size int) {
	if p.owner != s {
		panicf("%s space: page %#x is not owned by this space", s.kind, uint64(p.chunk.Start))
	}
	s.allocatedToWasted(p, size)
}
