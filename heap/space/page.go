package space

import (
	"sync/atomic"

	"github.com/joshuapare/heapkit/heap/freelist"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

// Page is a fixed-size chunk of heap memory owned by exactly one space at a
// time. Layout:
//
//	chunk_start              area_start                      area_end == chunk_end
//	|---- page header ----|---- objects, fillers, free nodes ----|
//
// The chunk bounds never change. The byte buffer is the only way to reach
// page memory, and every access goes through Mem, which validates the range
// against [area_start, area_end).
type Page struct {
	chunk     pagesrc.Chunk
	areaStart Address
	areaEnd   Address

	owner *Space
	kind  Kind

	// Page list links, guarded by the owner's lock.
	prev, next *Page

	// Free-list categories, indexed by category type.
	categories []*freelist.Category

	// Per-page accounting. allocated + free + wasted == AreaSize() at all
	// times. Atomic because sweepers update them without the space lock.
	allocated atomic.Int64
	free      atomic.Int64
	wasted    atomic.Int64

	sweeping atomic.Bool
}

// newPage formats a chunk as a page for the given kind.
func newPage(c pagesrc.Chunk, kind Kind, numCategories int) *Page {
	format.PutPageHeader(c.Mem, format.PageHeader{
		Kind:       uint32(kind),
		ChunkSize:  uint32(len(c.Mem)),
		AreaOffset: format.PageHeaderSize,
		ChunkStart: c.Start,
	})
	p := &Page{
		chunk:      c,
		areaStart:  c.Start + format.PageHeaderSize,
		areaEnd:    c.End(),
		kind:       kind,
		categories: make([]*freelist.Category, numCategories),
	}
	p.allocated.Store(int64(p.AreaSize()))
	return p
}

// ChunkStart returns the first byte of the chunk (the page header).
func (p *Page) ChunkStart() Address { return p.chunk.Start }

// ChunkEnd returns the exclusive end of the chunk.
func (p *Page) ChunkEnd() Address { return p.chunk.End() }

// AreaStart returns the first allocatable byte.
func (p *Page) AreaStart() Address { return p.areaStart }

// AreaEnd returns the exclusive end of the allocatable area.
func (p *Page) AreaEnd() Address { return p.areaEnd }

// AreaSize returns the number of allocatable bytes.
func (p *Page) AreaSize() int { return int(p.areaEnd - p.areaStart) }

// Kind returns the kind of the owning space.
func (p *Page) Kind() Kind { return p.kind }

// Owner returns the space the page currently belongs to.
func (p *Page) Owner() *Space { return p.owner }

// Next returns the following page in the owner's list.
func (p *Page) Next() *Page { return p.next }

// Prev returns the preceding page in the owner's list.
func (p *Page) Prev() *Page { return p.prev }

// Contains reports whether addr lies inside the page area.
func (p *Page) Contains(addr Address) bool {
	return addr >= p.areaStart && addr < p.areaEnd
}

// AllocatedBytes returns the bytes handed out on this page, including any
// linear allocation area reserved on it.
func (p *Page) AllocatedBytes() int { return int(p.allocated.Load()) }

// FreeBytes returns the bytes held in free-list nodes on this page.
func (p *Page) FreeBytes() int { return int(p.free.Load()) }

// WastedBytes returns the bytes lost to fragments too small to link.
func (p *Page) WastedBytes() int { return int(p.wasted.Load()) }

// IsSweeping reports whether a sweeper currently owns the page.
func (p *Page) IsSweeping() bool { return p.sweeping.Load() }

// Mem returns the byte view of [start, start+size). It is the single
// validation boundary between addresses and page memory; a range outside
// the area is a broken invariant.
func (p *Page) Mem(start Address, size int) []byte {
	end, err := buf.CheckRange(int(start), size, int(p.areaStart), int(p.areaEnd))
	if err != nil {
		panicf("page %#x: %v", uint64(p.chunk.Start), err)
	}
	off := int(start - p.chunk.Start)
	return p.chunk.Mem[off : off+(end-int(start))]
}

// Tail returns the byte view from start to the end of the area.
func (p *Page) Tail(start Address) []byte {
	return p.Mem(start, int(p.areaEnd-start))
}

// FreeListCategory implements freelist.Page.
func (p *Page) FreeListCategory(t int) *freelist.Category { return p.categories[t] }

// SetFreeListCategory implements freelist.Page.
func (p *Page) SetFreeListCategory(t int, c *freelist.Category) { p.categories[t] = c }

// Header re-reads and validates the page header.
func (p *Page) Header() (format.PageHeader, error) {
	return format.ParsePageHeader(p.chunk.Mem)
}

// WriteFiller overwrites [start, start+size) with a filler.
func (p *Page) WriteFiller(start Address, size int) {
	format.PutFiller(p.Mem(start, size), size)
}

// WriteObjectHeader stamps a live-object header over [start, start+size).
func (p *Page) WriteObjectHeader(start Address, size int) {
	format.PutObject(p.Mem(start, size), size)
}

// dropCategories forgets every free-list category of the page. The
// categories must already be unlinked.
func (p *Page) dropCategories() {
	clear(p.categories)
}

// categoryBytes sums the free bytes held in this page's categories.
func (p *Page) categoryBytes() int {
	total := 0
	for _, c := range p.categories {
		if c != nil {
			total += c.Available()
		}
	}
	return total
}

var _ freelist.Page = (*Page)(nil)
