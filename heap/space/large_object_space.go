package space

import (
	"fmt"
	"math"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

// LargeSpace is the space of kind LargeObjectSpace. It holds objects too
// large for a regular page. Every object gets a page of its own, sized to
// the object and rounded up to the OS page size; the tail after the object
// is a filler counted as wasted.
type LargeSpace struct {
	Space

	source pagesrc.Source
	table  *PageTable
}

// NewLargeSpace creates an empty large object space. Source and Table
// are taken from opts; PageSize and FreeList are ignored.
func NewLargeSpace(opts Options) *LargeSpace {
	o := opts.withDefaults()
	s := &LargeSpace{source: o.Source, table: o.Table}
	s.init(LargeObjectSpace, o.Oracle)
	return s
}

// Allocate places an object of size bytes on a fresh page and stamps its
// header.
func (s *LargeSpace) Allocate(size int) (Address, error) {
	size = format.Align8(max(size, format.MinObjectSize))
	chunkSize := format.AlignOSPage(format.PageHeaderSize + size)
	if uint64(chunkSize) > math.MaxUint32 {
		return 0, fmt.Errorf("lo space: %d bytes: %w", size, ErrTooLarge)
	}
	c, err := s.source.Acquire(chunkSize)
	if err != nil {
		logger.Warn("large page acquire failed", "size", size, "err", err)
		return 0, fmt.Errorf("lo space: %w: %w", ErrOutOfMemory, err)
	}
	p := newPage(c, LargeObjectSpace, 0)
	p.WriteObjectHeader(p.areaStart, size)
	s.table.Insert(p)

	s.mu.Lock()
	s.addPage(p)
	if tail := p.AreaSize() - size; tail > 0 {
		p.WriteFiller(p.areaStart+Address(size), tail)
		s.allocatedToWasted(p, tail)
	}
	s.mu.Unlock()

	logger.Debug("large object allocated", "size", size, "chunk", fmt.Sprintf("%#x", uint64(c.Start)))
	return p.areaStart, nil
}

// PageOf returns the page holding the large object at addr.
func (s *LargeSpace) PageOf(addr Address) (*Page, bool) {
	p, ok := s.table.Lookup(addr)
	if !ok || p.owner != &s.Space {
		return nil, false
	}
	return p, true
}

// Free releases the page of the object at addr and returns the object size.
func (s *LargeSpace) Free(addr Address) (int, error) {
	p, ok := s.PageOf(addr)
	if !ok || addr != p.areaStart {
		panicf("lo space: %#x: %v", uint64(addr), ErrBadAddress)
	}
	size := p.AllocatedBytes()

	s.mu.Lock()
	s.removePage(p)
	s.mu.Unlock()

	s.table.Remove(p)
	if err := s.source.Release(p.chunk); err != nil {
		return size, fmt.Errorf("lo space: release page: %w", err)
	}
	return size, nil
}

// Stats returns a snapshot of the space counters.
func (s *LargeSpace) Stats() Stats {
	return s.baseStats()
}
