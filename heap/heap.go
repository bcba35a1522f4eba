package heap

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/evac"
	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

// Address is a heap address.
type Address = space.Address

// Kind re-exports the space kinds.
type Kind = space.Kind

const (
	NewSpace         = space.NewSpace
	OldSpace         = space.OldSpace
	CodeSpace        = space.CodeSpace
	SharedSpace      = space.SharedSpace
	TrustedSpace     = space.TrustedSpace
	LargeObjectSpace = space.LargeObjectSpace
)

var (
	// ErrOutOfMemory is returned by Allocate when no page could be acquired,
	// even after the allocation failure hook ran.
	ErrOutOfMemory = space.ErrOutOfMemory

	// ErrClosed indicates use of a closed heap.
	ErrClosed = errors.New("heap: closed")

	// ErrNoSpace indicates a kind the heap was built without.
	ErrNoSpace = errors.New("heap: no such space")
)

// Heap owns every space of an isolated heap and the mutator allocators
// that serve them.
//
// Allocate, Free and UndoAllocation are safe for concurrent use; requests
// for the same kind are serialized on that kind's mutator allocator.
// BeginEvacuation, EvacuatePages, Sweep and Close require that no mutator
// allocates meanwhile.
type Heap struct {
	cfg    Config
	source pagesrc.Source
	table  *space.PageTable

	spaces [space.NumKinds]*space.PagedSpace
	large  *space.LargeSpace

	mu       [space.NumKinds]sync.Mutex
	mutators [space.NumKinds]*alloc.MainAllocator

	closeOnce sync.Once
	closed    atomic.Bool
}

// New creates a heap. A nil cfg selects DefaultConfig.
func New(cfg *Config) (*Heap, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c := cfg.withDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	src := c.PageSource
	if src == nil {
		src = pagesrc.NewGoHeap(c.MaxPages)
	}
	h := &Heap{cfg: c, source: src, table: space.NewPageTable()}
	opts := space.Options{
		PageSize: c.PageSize,
		Source:   src,
		FreeList: &h.cfg.FreeList,
		Oracle:   c.Oracle,
		Table:    h.table,
	}
	for k := range space.Kind(space.NumKinds) {
		if !k.IsPaged() || (k == space.SharedSpace && !c.Shared) {
			continue
		}
		s, err := space.NewPagedSpace(k, opts)
		if err != nil {
			return nil, fmt.Errorf("heap: %s space: %w", k, err)
		}
		h.spaces[k] = s
		h.mutators[k] = alloc.New(s, alloc.Regular)
	}
	h.large = space.NewLargeSpace(opts)

	logger.Debug("heap created", "page_size", c.PageSize, "max_regular", c.MaxRegularObjectSize,
		"size_classes", c.FreeList.Name, "shared", c.Shared)
	return h, nil
}

// Config returns the effective configuration.
func (h *Heap) Config() Config { return h.cfg }

// Space returns the paged space of kind, or nil. It implements evac.Owner.
func (h *Heap) Space(kind Kind) *space.PagedSpace {
	if int(kind) >= len(h.spaces) {
		return nil
	}
	return h.spaces[kind]
}

// LargeObjects returns the large object space.
func (h *Heap) LargeObjects() *space.LargeSpace { return h.large }

// PageTable returns the address-to-page index shared by all spaces.
func (h *Heap) PageTable() *space.PageTable { return h.table }

// MutatorLinearAreaActive implements evac.Owner.
func (h *Heap) MutatorLinearAreaActive(kind Kind) bool {
	if h.mutators[kind] == nil {
		return false
	}
	h.mu[kind].Lock()
	defer h.mu[kind].Unlock()
	return h.mutators[kind].IsActive()
}

// HandleOOM implements evac.Owner.
func (h *Heap) HandleOOM(msg string) {
	logger.Error("out of memory", "msg", msg)
	if h.cfg.OOMHandler != nil {
		h.cfg.OOMHandler(msg)
	}
}

func (h *Heap) isLarge(kind Kind, size int) bool {
	return kind == space.LargeObjectSpace || size > h.cfg.MaxRegularObjectSize
}

// Allocate returns the address of a new object of size bytes (header
// included) in the space of kind. Requests above MaxRegularObjectSize are
// placed in the large object space.
//
// When no page can be acquired, the OnAllocationFailure hook runs and the
// allocation is retried once; a second failure returns ErrOutOfMemory.
func (h *Heap) Allocate(kind Kind, size int) (Address, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	if size <= 0 {
		return 0, alloc.ErrBadSize
	}
	addr, err := h.allocate(kind, size)
	if err == nil || !errors.Is(err, ErrOutOfMemory) || h.cfg.OnAllocationFailure == nil {
		return addr, err
	}
	logger.Info("allocation failed, running failure hook", "space", kind, "size", size)
	if !h.cfg.OnAllocationFailure(h, kind, size) {
		return 0, err
	}
	return h.allocate(kind, size)
}

func (h *Heap) allocate(kind Kind, size int) (Address, error) {
	if h.isLarge(kind, size) {
		return h.large.Allocate(size)
	}
	a := h.mutators[kind]
	if a == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoSpace, kind)
	}
	h.mu[kind].Lock()
	defer h.mu[kind].Unlock()
	return a.AllocateRaw(size)
}

// Free returns the object [addr, addr+size) to its space and reports the
// bytes that became reusable. Large objects release their page.
func (h *Heap) Free(kind Kind, addr Address, size int) int {
	if h.isLarge(kind, size) {
		n, err := h.large.Free(addr)
		if err != nil {
			logger.Warn("large page release failed", "addr", fmt.Sprintf("%#x", uint64(addr)), "err", err)
		}
		return n
	}
	return h.mustSpace(kind).Free(addr, objectSize(size))
}

// FreeDuringSweep is Free for a sweeper that owns the page holding addr.
// It takes no lock.
func (h *Heap) FreeDuringSweep(kind Kind, addr Address, size int) int {
	return h.mustSpace(kind).FreeDuringSweep(addr, objectSize(size))
}

// objectSize rounds a request size the way the allocators do.
func objectSize(size int) int {
	return format.Align8(max(size, format.MinObjectSize))
}

// UndoAllocation takes back the most recent mutator allocation in kind. When
// addr is not the most recent allocation, the object is overwritten with a
// filler and false is returned. A large object always releases its page.
func (h *Heap) UndoAllocation(kind Kind, addr Address, size int) bool {
	if h.isLarge(kind, size) {
		if _, err := h.large.Free(addr); err != nil {
			logger.Warn("large page release failed", "addr", fmt.Sprintf("%#x", uint64(addr)), "err", err)
		}
		return true
	}
	s := h.mustSpace(kind)
	size = objectSize(size)
	h.mu[kind].Lock()
	defer h.mu[kind].Unlock()
	if h.mutators[kind].TryFreeLast(addr, size) {
		return true
	}
	p, ok := s.PageOf(addr)
	if !ok {
		panic(fmt.Sprintf("heap: undo of %#x outside %s space", uint64(addr), kind))
	}
	p.WriteFiller(addr, size)
	s.MarkWasted(p, size)
	return false
}

// BeginEvacuation returns an evacuation allocator whose Evacuate copies into
// kind. Each GC worker needs its own.
func (h *Heap) BeginEvacuation(kind Kind) *evac.EvacuationAllocator {
	return evac.New(h, kind)
}

// FlushLinearAreas returns every mutator linear area to its space, making
// all pages iterable.
func (h *Heap) FlushLinearAreas() {
	for k, a := range h.mutators {
		if a == nil {
			continue
		}
		h.mu[k].Lock()
		a.FreeLinearAllocationArea()
		h.mu[k].Unlock()
	}
}

// ReleaseEmptyPages releases the pages of kind that hold no allocated bytes.
func (h *Heap) ReleaseEmptyPages(kind Kind) (int, error) {
	h.flushMutator(kind)
	return h.mustSpace(kind).ReleaseEmptyPages()
}

// Stats returns a snapshot per space, large object space last.
func (h *Heap) Stats() []space.Stats {
	var out []space.Stats
	for _, s := range h.spaces {
		if s != nil {
			out = append(out, s.Stats())
		}
	}
	return append(out, h.large.Stats())
}

// Verify checks every paged space. Linear areas are flushed first so every
// page can be walked.
func (h *Heap) Verify() error {
	h.FlushLinearAreas()
	for _, s := range h.spaces {
		if s == nil {
			continue
		}
		if err := s.Verify(true); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the mutator allocators and returns every page to the page
// source.
func (h *Heap) Close() error {
	var errs []error
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		for k, a := range h.mutators {
			if a != nil {
				h.mu[k].Lock()
				a.Close()
				h.mu[k].Unlock()
			}
		}
		for _, s := range h.spaces {
			if s == nil {
				continue
			}
			for _, p := range s.MemoryChunkList() {
				if err := s.ReleasePage(p); err != nil {
					errs = append(errs, err)
				}
			}
		}
		for _, p := range h.large.MemoryChunkList() {
			if _, err := h.large.Free(p.AreaStart()); err != nil {
				errs = append(errs, err)
			}
		}
		logger.Debug("heap closed", "pages_in_use", h.source.InUse())
	})
	return errors.Join(errs...)
}

func (h *Heap) mustSpace(kind Kind) *space.PagedSpace {
	s := h.Space(kind)
	if s == nil {
		panic(fmt.Sprintf("heap: %v: %s", ErrNoSpace, kind))
	}
	return s
}

func (h *Heap) flushMutator(kind Kind) {
	if a := h.mutators[kind]; a != nil {
		h.mu[kind].Lock()
		a.FreeLinearAllocationArea()
		h.mu[kind].Unlock()
	}
}

var _ evac.Owner = (*Heap)(nil)
