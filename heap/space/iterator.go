package space

import (
	"iter"

	"github.com/joshuapare/heapkit/internal/format"
)

// Object is a live (non-filler) range yielded by the page iterator.
type Object struct {
	Address Address
	Size    int
}

// End returns the exclusive end of the object.
func (o Object) End() Address { return o.Address + Address(o.Size) }

// ObjectIterator walks a page from area start to area end, skipping fillers.
// It is forward-only; restarting requires a new iterator.
//
// The page must be iterable: no other goroutine may hold an unfilled linear
// allocation area on it.
type ObjectIterator struct {
	page   *Page
	oracle Oracle
	off    Address
	done   bool
}

// Objects returns an iterator over the live objects on p.
func (p *Page) Objects() *ObjectIterator {
	oracle := DefaultOracle
	if p.owner != nil && p.owner.oracle != nil {
		oracle = p.owner.oracle
	}
	return &ObjectIterator{page: p, oracle: oracle, off: p.areaStart}
}

// Next returns the next live object, or false when the area is exhausted.
// A size that does not land on the next range boundary inside the area
// aborts: continuing would read through an object.
func (it *ObjectIterator) Next() (Object, bool) {
	for !it.done {
		if it.off >= it.page.areaEnd {
			it.done = true
			break
		}
		start := it.off
		size, filler, err := it.oracle.Describe(it.page.Tail(start))
		if err != nil {
			panicf("page %#x: walk at %#x: %v", uint64(it.page.chunk.Start), uint64(start), err)
		}
		next := start + Address(format.Align8(size))
		if next <= start || next > it.page.areaEnd {
			panicf("page %#x: range at %#x (size %d) overruns area end %#x",
				uint64(it.page.chunk.Start), uint64(start), size, uint64(it.page.areaEnd))
		}
		it.off = next
		if !filler {
			return Object{Address: start, Size: size}, true
		}
	}
	return Object{}, false
}

// All returns a range-over-func sequence of the live objects on p.
func (p *Page) All() iter.Seq[Object] {
	return func(yield func(Object) bool) {
		it := p.Objects()
		for {
			obj, ok := it.Next()
			if !ok || !yield(obj) {
				return
			}
		}
	}
}

// RangeInfo describes any range on a page, filler or not.
type RangeInfo struct {
	Address Address
	Size    int
	Tag     format.Tag
}

// Ranges walks every range on p in address order, including fillers and
// free-space nodes, using the allocator's own header format. Used by
// verification and sweeping.
func (p *Page) Ranges() iter.Seq[RangeInfo] {
	return func(yield func(RangeInfo) bool) {
		for off := p.areaStart; off < p.areaEnd; {
			r, err := format.DecodeRange(p.Tail(off))
			if err != nil {
				panicf("page %#x: walk at %#x: %v", uint64(p.chunk.Start), uint64(off), err)
			}
			if !yield(RangeInfo{Address: off, Size: r.Size, Tag: r.Tag}) {
				return
			}
			off += Address(r.Size)
		}
	}
}
