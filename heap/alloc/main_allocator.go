package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

// Address is a heap address.
type Address = space.Address

// Stats counts allocator activity.
type Stats struct {
	AllocCalls     int   // Total AllocateRaw calls
	BumpHits       int   // Served from the linear area
	FreeListHits   int   // Served straight from the free list
	Refills        int   // New linear areas installed
	Flushes        int   // Linear areas returned to the space
	UndoCalls      int   // TryFreeLast calls
	UndoHits       int   // TryFreeLast calls that rewound top
	BytesAllocated int64 // Bytes handed out, headers included
}

// MainAllocator owns the linear allocation area [top, limit) for one space.
// It is not safe for concurrent use: each goroutine that allocates needs its
// own instance, or the caller serializes access.
//
// The area is either Active (top < limit) or Empty (top == limit, including
// the case where no area is installed).
type MainAllocator struct {
	space *space.PagedSpace
	mode  Mode

	page       *space.Page
	top, limit Address

	// Last free-list probe that missed, keyed by the space's free-list
	// epoch. Requests at least as large skip the probe until the epoch moves.
	missEpoch uint64
	missSize  int
	missed    bool

	stats Stats
}

// New creates an allocator for s in the given mode and registers its
// linear area with the space.
func New(s *space.PagedSpace, mode Mode) *MainAllocator {
	a := &MainAllocator{space: s, mode: mode}
	s.AttachLinearArea(a)
	return a
}

// Space returns the space the allocator serves.
func (a *MainAllocator) Space() *space.PagedSpace { return a.space }

// Mode returns the allocation policy.
func (a *MainAllocator) Mode() Mode { return a.mode }

// Top returns the bump pointer.
func (a *MainAllocator) Top() Address { return a.top }

// Limit returns the end of the linear area.
func (a *MainAllocator) Limit() Address { return a.limit }

// Page returns the page holding the linear area, or nil.
func (a *MainAllocator) Page() *space.Page { return a.page }

// IsActive reports whether the linear area has room.
func (a *MainAllocator) IsActive() bool { return a.top < a.limit }

// Unused implements space.LinearArea.
func (a *MainAllocator) Unused() int { return int(a.limit - a.top) }

// Stats returns a copy of the activity counters.
func (a *MainAllocator) Stats() Stats { return a.stats }

// AllocateRaw returns the address of a new object of size bytes (header
// included, rounded up to 8). The object header is written; the payload is
// left as found.
//
// Only page-acquisition failure is returned as an error, wrapping
// space.ErrOutOfMemory.
func (a *MainAllocator) AllocateRaw(size int) (Address, error) {
	if size <= 0 {
		return 0, ErrBadSize
	}
	size = format.Align8(max(size, format.MinObjectSize))
	a.stats.AllocCalls++

	if a.mode == Regular && a.shouldProbeFreeList(size) {
		if addr, ok := a.space.TryAllocateFromFreeList(size); ok {
			a.stats.FreeListHits++
			a.stats.BytesAllocated += int64(size)
			return addr, nil
		}
		a.missEpoch, a.missSize, a.missed = a.space.FreeListEpoch(), size, true
	}

	if addr, ok := a.AllocateFast(size); ok {
		return addr, nil
	}

	if err := a.refill(size); err != nil {
		return 0, err
	}
	addr, ok := a.AllocateFast(size)
	if !ok {
		panic(fmt.Sprintf("alloc: fresh linear area [%#x, %#x) cannot hold %d bytes",
			uint64(a.top), uint64(a.limit), size))
	}
	return addr, nil
}

// AllocateFast is the bump-pointer fast path. It fails without side effects
// when the linear area cannot hold size bytes; size must already be
// aligned.
func (a *MainAllocator) AllocateFast(size int) (Address, bool) {
	if a.page == nil || int(a.limit-a.top) < size {
		return 0, false
	}
	addr := a.top
	a.top += Address(size)
	a.page.WriteObjectHeader(addr, size)
	a.stats.BumpHits++
	a.stats.BytesAllocated += int64(size)
	return addr, true
}

func (a *MainAllocator) shouldProbeFreeList(size int) bool {
	return !a.missed || a.space.FreeListEpoch() != a.missEpoch || size < a.missSize
}

// refill flushes the current area and installs one that holds at least
// size bytes.
func (a *MainAllocator) refill(size int) error {
	a.FreeLinearAllocationArea()
	lr, err := a.space.AllocateLinearArea(size)
	if err != nil {
		return fmt.Errorf("alloc: %s refill of %d bytes: %w", a.mode, size, err)
	}
	a.page, a.top, a.limit = lr.Page, lr.Start, lr.End
	a.stats.Refills++
	logger.Debug("linear area installed", "space", a.space.Kind(), "mode", a.mode,
		"start", fmt.Sprintf("%#x", uint64(lr.Start)), "size", lr.Size())
	return nil
}

// FreeLinearAllocationArea returns [top, limit) to the space's free list,
// as free or wasted bytes depending on its size, and leaves the allocator
// Empty.
func (a *MainAllocator) FreeLinearAllocationArea() {
	if a.page == nil {
		return
	}
	a.space.FreeLinearArea(a.page, a.top, a.limit)
	a.page, a.top, a.limit = nil, 0, 0
	a.stats.Flushes++
}

// TryFreeLast undoes the most recent bump allocation. It succeeds only when
// addr+size == top, and then rewinds top by exactly size. On failure the
// caller must overwrite the object with a filler instead.
func (a *MainAllocator) TryFreeLast(addr Address, size int) bool {
	a.stats.UndoCalls++
	size = format.Align8(size)
	if a.page == nil || addr+Address(size) != a.top || !a.page.Contains(addr) {
		return false
	}
	a.top = addr
	a.stats.UndoHits++
	return true
}

// MakeIterable writes a filler over [top, limit) so the page can be walked
// while the allocator keeps its area.
func (a *MainAllocator) MakeIterable() {
	if a.IsActive() {
		a.page.WriteFiller(a.top, a.Unused())
	}
}

// Close flushes the linear area and unregisters the allocator from its
// space. The allocator must not be used afterwards.
func (a *MainAllocator) Close() {
	a.FreeLinearAllocationArea()
	a.space.DetachLinearArea(a)
}
