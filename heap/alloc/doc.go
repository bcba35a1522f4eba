// Package alloc implements the bump-pointer MainAllocator.
//
// A MainAllocator serves requests from its linear allocation area
// [top, limit) on one page of a space.PagedSpace. When the area cannot hold
// a request the allocator flushes it (the unused tail goes back to the
// space's free list, or becomes a filler if too small to link) and asks the
// space for a new area, which may acquire a new page.
//
// Every object handed out starts with an object header, and every flushed
// tail is a free node or a filler, so pages stay walkable once the area is
// flushed or MakeIterable was called.
//
// Regular-mode allocators consult the free list before bumping, so freed
// ranges are reused ahead of fresh memory. InGC-mode allocators only bump.
//
// Basic usage:
//
//	a := alloc.New(oldSpace, alloc.Regular)
//	defer a.Close()
//	addr, err := a.AllocateRaw(40)
//	if errors.Is(err, space.ErrOutOfMemory) {
//		// collect garbage and retry
//	}
package alloc
