// Package space implements pages and the spaces that own them.
//
// A Page is a fixed-size chunk from a pagesrc.Source. Its area is always
// tiled by ranges that each start with an 8-byte header: live objects,
// fillers and free-space nodes. The tiling is what makes a page walkable;
// every mutation in this package and in the allocators above it preserves it.
//
// Each page carries allocated, free and wasted byte counters that always sum
// to the page area. A Space mirrors the sums for all of its pages, so
// statistics never rescan memory.
//
// PagedSpace adds a free list and the reclamation entry points. Concurrency:
//
//   - Page acquisition, free-list allocation, Free and page-list changes
//     take the space lock.
//   - FreeDuringSweep takes no lock. It requires the page to be handed to a
//     sweeper with StartSweeping, which unlinks the page's free-list
//     categories; FinishSweeping relinks them under the lock.
//   - MergeCompactionSpace requires exclusive access to both spaces.
//
// Broken invariants (foreign addresses, overrunning ranges, corrupt
// headers) panic.
package space
