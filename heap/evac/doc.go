// Package evac implements the GC-time EvacuationAllocator and its
// CompactionSpaces.
//
// During a compacting collection each worker creates its own
// EvacuationAllocator. Survivors are copied into private compaction spaces
// through InGC-mode allocators, so workers never contend on a linear area.
// Finalize flushes the allocators and merges the compaction spaces into the
// heap's permanent spaces; that is the only point where the new pages
// become visible.
//
// Running out of pages while evacuating is fatal: the owner's OOM handler
// is called and, if it returns, the allocator panics with *FatalOOMError.
package evac
