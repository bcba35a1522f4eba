package space

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/joshuapare/heapkit/heap/freelist"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

// DefaultPageSize is the chunk size of regular pages.
const DefaultPageSize = 256 << 10

// Options configures a paged space. The zero value is usable.
type Options struct {
	// PageSize is the chunk size including the page header. Default: DefaultPageSize.
	PageSize int

	// Source supplies page memory. Default: an unlimited pagesrc.GoHeap.
	Source pagesrc.Source

	// FreeList selects the size classes. Default: freelist.DefaultConfig.
	FreeList *freelist.SizeClassConfig

	// Oracle describes ranges for the object iterator. Default: HeaderOracle.
	Oracle Oracle

	// Table receives every page of the space. Default: a private table.
	Table *PageTable
}

// Validate checks the page size against the page layout.
func (o *Options) Validate() error {
	switch {
	case o.PageSize < format.PageHeaderSize+format.FreeSpaceNodeSize:
		return fmt.Errorf("space: page size %d cannot hold a header and one free node", o.PageSize)
	case !format.IsAligned8(o.PageSize):
		return fmt.Errorf("space: page size %d is not %d-byte aligned", o.PageSize, format.ObjectAlignment)
	case uint64(o.PageSize) > math.MaxUint32:
		return fmt.Errorf("space: page size %d overflows the page header", o.PageSize)
	}
	return nil
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.PageSize == 0 {
		out.PageSize = DefaultPageSize
	}
	if out.Source == nil {
		out.Source = pagesrc.NewGoHeap(0)
	}
	if out.Oracle == nil {
		out.Oracle = DefaultOracle
	}
	if out.Table == nil {
		out.Table = NewPageTable()
	}
	return out
}

// PagedSpace is a space of uniformly sized pages that owns a free list.
// It provides the reclamation entry points (Free, FreeDuringSweep) and hands
// linear allocation areas to allocators.
//
// The page list and free list are guarded by the embedded Space lock, except
// FreeDuringSweep, which only touches the page being swept.
type PagedSpace struct {
	Space

	opts       Options
	freeList   *freelist.FreeList
	compaction bool

	// epoch advances whenever bytes are returned to the free list. Allocators
	// use it to skip free-list probes that already missed.
	epoch atomic.Uint64
}

// NewPagedSpace creates an empty paged space of the given kind.
func NewPagedSpace(kind Kind, opts Options) (*PagedSpace, error) {
	if !kind.IsPaged() {
		return nil, fmt.Errorf("space: %s is not a paged kind", kind)
	}
	o := opts.withDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	fl, err := freelist.New(o.FreeList)
	if err != nil {
		return nil, fmt.Errorf("space: %w", err)
	}
	s := &PagedSpace{opts: o, freeList: fl}
	s.init(kind, o.Oracle)
	return s, nil
}

// NewCompactionSpace creates a transient, GC-private space with the same
// configuration and page table as s. Its pages become part of s through
// MergeCompactionSpace.
func (s *PagedSpace) NewCompactionSpace() *PagedSpace {
	fl, err := freelist.New(ptr(s.freeList.Config()))
	if err != nil {
		panicf("%s space: cloning free list config: %v", s.kind, err)
	}
	c := &PagedSpace{opts: s.opts, freeList: fl, compaction: true}
	c.init(s.kind, s.oracle)
	return c
}

func ptr[T any](v T) *T { return &v }

// IsCompactionSpace reports whether s is a transient compaction space.
func (s *PagedSpace) IsCompactionSpace() bool { return s.compaction }

// PageSize returns the chunk size of every page.
func (s *PagedSpace) PageSize() int { return s.opts.PageSize }

// AreaSize returns the allocatable bytes of every page.
func (s *PagedSpace) AreaSize() int { return s.opts.PageSize - format.PageHeaderSize }

// Table returns the page table the space registers its pages in.
func (s *PagedSpace) Table() *PageTable { return s.opts.Table }

// Available returns the bytes reachable through the linked free list.
func (s *PagedSpace) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freeList.Available()
}

// FreeListEpoch returns a counter that advances whenever the free list may
// have gained bytes.
func (s *PagedSpace) FreeListEpoch() uint64 { return s.epoch.Load() }

// FreeListStats returns per-category totals of the linked free list.
func (s *PagedSpace) FreeListStats() []freelist.CategoryStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freeList.Stats()
}

// MinBlockSize returns the smallest range the free list links.
func (s *PagedSpace) MinBlockSize() int { return s.freeList.MinBlockSize() }

// Stats returns a snapshot of the space counters.
func (s *PagedSpace) Stats() Stats {
	st := s.baseStats()
	st.Available = s.Available()
	return st
}

// PageOf returns the page of s whose area contains addr.
func (s *PagedSpace) PageOf(addr Address) (*Page, bool) {
	p, ok := s.opts.Table.Lookup(addr)
	if !ok || p.owner != &s.Space {
		return nil, false
	}
	return p, true
}

// mustPageOf is PageOf for reclamation paths, where a foreign address is a
// broken invariant.
func (s *PagedSpace) mustPageOf(addr Address, size int) *Page {
	p, ok := s.PageOf(addr)
	if !ok {
		panicf("%s space: %#x: %v", s.kind, uint64(addr), ErrBadAddress)
	}
	if size < format.MinObjectSize || !format.IsAligned8(size) || !format.IsAligned8(int(addr)) {
		panicf("%s space: bad range [%#x, +%d)", s.kind, uint64(addr), size)
	}
	if addr+Address(size) > p.areaEnd {
		panicf("%s space: range [%#x, +%d) crosses page end %#x", s.kind, uint64(addr), size, uint64(p.areaEnd))
	}
	return p
}

// AcquirePage takes a new page from the source, appends it to the page list
// and links its whole area into the free list.
func (s *PagedSpace) AcquirePage() (*Page, error) {
	c, err := s.opts.Source.Acquire(s.opts.PageSize)
	if err != nil {
		logger.Warn("page acquire failed", "space", s.kind, "compaction", s.compaction, "err", err)
		return nil, fmt.Errorf("%s space: %w: %w", s.kind, ErrOutOfMemory, err)
	}
	p := newPage(c, s.kind, s.freeList.NumCategories())
	s.opts.Table.Insert(p)

	s.mu.Lock()
	s.addPage(p)
	wasted := s.freeList.Add(p, p.areaStart, p.AreaSize(), freelist.LinkCategory)
	s.returnRange(p, p.AreaSize(), wasted)
	s.epoch.Add(1)
	pages := s.pages.Len()
	s.mu.Unlock()

	logger.Debug("page acquired", "space", s.kind, "compaction", s.compaction,
		"chunk", fmt.Sprintf("%#x", uint64(c.Start)), "pages", pages)
	return p, nil
}

// LinearRange is a [Start, End) region on Page handed to an allocator.
type LinearRange struct {
	Page  *Page
	Start Address
	End   Address
}

// Size returns End - Start.
func (r LinearRange) Size() int { return int(r.End - r.Start) }

// AllocateLinearArea returns a free region of at least minSize bytes to be
// used as a linear allocation area, acquiring a new page when the free list
// has no fit. The whole region is accounted as allocated until it comes
// back through FreeLinearArea.
func (s *PagedSpace) AllocateLinearArea(minSize int) (LinearRange, error) {
	if minSize > s.AreaSize() {
		return LinearRange{}, fmt.Errorf("%s space: %d bytes: %w", s.kind, minSize, ErrTooLarge)
	}
	for {
		s.mu.Lock()
		fp, start, size, ok := s.freeList.Allocate(minSize)
		if ok {
			p := fp.(*Page)
			s.freeToAllocated(p, size)
			s.mu.Unlock()
			return LinearRange{Page: p, Start: start, End: start + Address(size)}, nil
		}
		s.mu.Unlock()

		if _, err := s.AcquirePage(); err != nil {
			return LinearRange{}, err
		}
	}
}

// TryAllocateFromFreeList serves a single object of size bytes straight
// from the free list, returning the unused tail of the node to the list.
// The object header is written before the lock is released.
func (s *PagedSpace) TryAllocateFromFreeList(size int) (Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.freeList.MayServe(size) {
		return 0, false
	}
	fp, start, nodeSize, ok := s.freeList.Allocate(size)
	if !ok {
		return 0, false
	}
	p := fp.(*Page)
	s.freeToAllocated(p, nodeSize)
	if rest := nodeSize - size; rest > 0 {
		wasted := s.freeList.Add(p, start+Address(size), rest, freelist.LinkCategory)
		s.returnRange(p, rest, wasted)
	}
	p.WriteObjectHeader(start, size)
	return start, true
}

// FreeLinearArea returns the unused [top, limit) tail of a linear
// allocation area on p to the free list.
func (s *PagedSpace) FreeLinearArea(p *Page, top, limit Address) {
	if top == limit {
		return
	}
	if p.owner != &s.Space || top > limit || limit > p.areaEnd {
		panicf("%s space: bad linear area [%#x, %#x)", s.kind, uint64(top), uint64(limit))
	}
	size := int(limit - top)
	s.mu.Lock()
	wasted := s.freeList.Add(p, top, size, freelist.LinkCategory)
	s.returnRange(p, size, wasted)
	s.epoch.Add(1)
	s.mu.Unlock()
}

// Free returns the object [addr, addr+size) to the free list and reports
// the bytes that became reusable. Fragments below the free list's minimum
// block size become fillers and are not reclaimed.
func (s *PagedSpace) Free(addr Address, size int) int {
	p := s.mustPageOf(addr, size)
	r, err := format.DecodeRange(p.Tail(addr))
	if err != nil || r.Tag != format.TagObject || r.Size != size {
		panicf("%s space: free of [%#x, +%d) does not match a live object (%+v, %v)",
			s.kind, uint64(addr), size, r, err)
	}

	s.mu.Lock()
	wasted := s.freeList.Add(p, addr, size, freelist.LinkCategory)
	s.returnRange(p, size, wasted)
	s.epoch.Add(1)
	s.mu.Unlock()
	return size - wasted
}

// FreeDuringSweep records [addr, addr+size) as free on a page owned by a
// sweeper, without taking the space lock. The page's categories stay
// unlinked until FinishSweeping. Safe to call concurrently for distinct
// pages.
func (s *PagedSpace) FreeDuringSweep(addr Address, size int) int {
	p := s.mustPageOf(addr, size)
	if !p.IsSweeping() {
		panicf("%s space: free during sweep on page %#x that is not being swept", s.kind, uint64(p.chunk.Start))
	}
	wasted := s.freeList.Add(p, addr, size, freelist.DoNotLinkCategory)
	s.returnRange(p, size, wasted)
	return size - wasted
}

// StartSweeping hands p to a sweeper. The page's free ranges are unlinked
// and forgotten; every byte that is not a live object is expected to come
// back through FreeDuringSweep.
func (s *PagedSpace) StartSweeping(p *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.owner != &s.Space {
		panicf("%s space: sweeping foreign page %#x", s.kind, uint64(p.chunk.Start))
	}
	if !p.sweeping.CompareAndSwap(false, true) {
		panicf("%s space: page %#x is already being swept", s.kind, uint64(p.chunk.Start))
	}
	s.freeList.RemoveCategoriesOf(p)
	p.dropCategories()
	if n := int(p.free.Load()); n > 0 {
		s.freeToAllocated(p, n)
	}
	if n := int(p.wasted.Load()); n > 0 {
		s.wastedToAllocated(p, n)
	}
}

// RelinkFreeListCategories links the categories filled on p in
// DoNotLinkCategory mode.
func (s *PagedSpace) RelinkFreeListCategories(p *Page) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.freeList.LinkCategoriesOf(p)
	s.epoch.Add(1)
	return n
}

// FinishSweeping relinks p's categories and returns the page to allocation.
func (s *PagedSpace) FinishSweeping(p *Page) {
	n := s.RelinkFreeListCategories(p)
	if !p.sweeping.CompareAndSwap(true, false) {
		panicf("%s space: page %#x was not being swept", s.kind, uint64(p.chunk.Start))
	}
	logger.Debug("page swept", "space", s.kind, "chunk", fmt.Sprintf("%#x", uint64(p.chunk.Start)),
		"linked", n, "allocated", p.AllocatedBytes(), "wasted", p.WastedBytes())
}

// ReleasePage removes p from the space and returns its memory to the page
// source. Nothing on p may be referenced afterwards.
func (s *PagedSpace) ReleasePage(p *Page) error {
	s.mu.Lock()
	if p.owner != &s.Space {
		s.mu.Unlock()
		panicf("%s space: releasing foreign page %#x", s.kind, uint64(p.chunk.Start))
	}
	s.freeList.RemoveCategoriesOf(p)
	p.dropCategories()
	s.removePage(p)
	s.mu.Unlock()

	s.opts.Table.Remove(p)
	if err := s.opts.Source.Release(p.chunk); err != nil {
		return fmt.Errorf("%s space: release page: %w", s.kind, err)
	}
	logger.Debug("page released", "space", s.kind, "chunk", fmt.Sprintf("%#x", uint64(p.chunk.Start)))
	return nil
}

// ReleaseEmptyPages releases every page with no allocated bytes and
// returns how many were released.
func (s *PagedSpace) ReleaseEmptyPages() (int, error) {
	s.mu.Lock()
	var empty []*Page
	for p := s.pages.First(); p != nil; p = p.next {
		if p.AllocatedBytes() == 0 && !p.IsSweeping() {
			empty = append(empty, p)
		}
	}
	s.mu.Unlock()

	for i, p := range empty {
		if err := s.ReleasePage(p); err != nil {
			return i, err
		}
	}
	return len(empty), nil
}

// MergeCompactionSpace moves every page, free-list category and external
// byte count of the compaction space other into s. The caller guarantees
// that nothing allocates into s or other meanwhile.
func (s *PagedSpace) MergeCompactionSpace(other *PagedSpace) {
	if !other.compaction || other.kind != s.kind || s.compaction {
		panicf("%s space: cannot merge %s space (compaction=%v)", s.kind, other.kind, other.compaction)
	}
	other.mu.Lock()
	defer other.mu.Unlock()
	if len(other.areas) != 0 {
		panicf("%s compaction space: merging with %d live linear areas", other.kind, len(other.areas))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	moved, bytes := 0, 0
	for p := other.pages.First(); p != nil; p = other.pages.First() {
		bytes += p.AllocatedBytes()
		s.adoptPage(p)
		moved++
	}
	s.freeList.Merge(other.freeList)
	for t := range other.external {
		s.external[t].Add(other.external[t].Swap(0))
	}
	s.epoch.Add(1)

	logger.Debug("compaction space merged", "space", s.kind, "pages", moved, "allocated", bytes)
}
