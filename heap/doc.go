// Package heap ties the allocator packages into an isolated managed heap.
//
// A Heap owns one paged space per kind (new, old, code, trusted and
// optionally shared), a large object space, a page table shared by all of
// them, and one Regular-mode mutator allocator per paged space. Nothing is
// global: tests build as many independent heaps as they like.
//
// Mutator API:
//
//	h, err := heap.New(nil)
//	addr, err := h.Allocate(heap.OldSpace, 48)
//	reclaimed := h.Free(heap.OldSpace, addr, 48)
//
// Collector API:
//
//	e := h.BeginEvacuation(heap.OldSpace) // one per worker
//	newAddr := e.Evacuate(addr, 48)
//	e.Finalize()
//
// EvacuatePages and Sweep drive those primitives over whole pages with a
// pool of worker goroutines. The caller provides liveness; marking is out of
// scope.
//
// Set HEAP_LOG_ALLOC=1 to log page and linear-area activity to stderr.
package heap
