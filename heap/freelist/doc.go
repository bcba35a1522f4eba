// Package freelist provides the segregated free list of a paged space.
//
// # Overview
//
// Free byte ranges are recorded intrusively: the range itself is overwritten
// with a free-space node (size, tag, next link), so a freed range costs no
// side allocation and stays walkable by the page iterator, which treats
// free-space nodes as fillers.
//
// Nodes are grouped into categories by size. Each page owns one category per
// size class; the FreeList links the categories of all pages of a space:
//
//	FreeList.categories[t] -> Category(page A, t) <-> Category(page C, t) ...
//	                               |
//	                               top -> node -> node -> NullAddress
//
// Owning categories per page lets a space hide or reveal all free ranges of
// one page in O(categories), which is what sweeping and page release need.
//
// # Allocation
//
// Allocate(minSize) walks the category containing minSize first-fit, then
// takes the top node of the next non-empty larger category. A bitmask of
// non-empty categories keeps that step O(1). Search cost is bounded in
// preference to optimal packing.
//
// # Waste
//
// Ranges smaller than MinBlockSize are never linked. Add overwrites them
// with a filler and returns their size as wasted bytes so the owner can
// account for fragmentation.
//
// # Thread Safety
//
// FreeList instances are not thread-safe. See Mode for the one exception
// used by concurrent sweepers.
package freelist
