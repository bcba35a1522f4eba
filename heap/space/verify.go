package space

import (
	"errors"
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// ErrVerify is wrapped by every verification failure.
var ErrVerify = errors.New("space: verification failed")

// PageSummary totals the ranges found by walking a page.
type PageSummary struct {
	Objects     int
	ObjectBytes int
	FreeBytes   int // free-space nodes
	FillerBytes int // fillers that are not free-space nodes
}

// VerifyPage walks every range on p and checks that the ranges tile
// [area_start, area_end) without gaps or overlap. The page must be
// iterable: no allocator may hold an unfilled linear area on it.
func VerifyPage(p *Page) (PageSummary, error) {
	var sum PageSummary
	off := p.areaStart
	for off < p.areaEnd {
		r, err := format.DecodeRange(p.Tail(off))
		if err != nil {
			return sum, fmt.Errorf("%w: page %#x at %#x: %w", ErrVerify, uint64(p.chunk.Start), uint64(off), err)
		}
		switch r.Tag {
		case format.TagObject:
			sum.Objects++
			sum.ObjectBytes += r.Size
		case format.TagFreeSpace:
			sum.FreeBytes += r.Size
		default:
			sum.FillerBytes += r.Size
		}
		off += Address(r.Size)
	}
	if off != p.areaEnd {
		return sum, fmt.Errorf("%w: page %#x: walk ended at %#x, area ends at %#x",
			ErrVerify, uint64(p.chunk.Start), uint64(off), uint64(p.areaEnd))
	}
	if total := sum.ObjectBytes + sum.FreeBytes + sum.FillerBytes; total != p.AreaSize() {
		return sum, fmt.Errorf("%w: page %#x: ranges cover %d of %d bytes",
			ErrVerify, uint64(p.chunk.Start), total, p.AreaSize())
	}
	return sum, nil
}

// verifyCounters checks the per-page accounting identity.
func verifyCounters(p *Page) error {
	a, f, w := p.AllocatedBytes(), p.FreeBytes(), p.WastedBytes()
	if a < 0 || f < 0 || w < 0 || a+f+w != p.AreaSize() {
		return fmt.Errorf("%w: page %#x: allocated %d + free %d + wasted %d != area %d",
			ErrVerify, uint64(p.chunk.Start), a, f, w, p.AreaSize())
	}
	return nil
}

// Verify checks the free list, every page's counters and the space totals.
// With walk set, pages are also walked with VerifyPage, which requires
// every linear area of the space to be flushed or made iterable.
func (s *PagedSpace) Verify(walk bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.freeList.Verify(); err != nil {
		return fmt.Errorf("%w: %s space: %w", ErrVerify, s.kind, err)
	}

	var capacity, allocated, free, wasted int
	for p := s.pages.First(); p != nil; p = p.next {
		if p.owner != &s.Space {
			return fmt.Errorf("%w: page %#x listed in %s space has another owner", ErrVerify, uint64(p.chunk.Start), s.kind)
		}
		if err := verifyCounters(p); err != nil {
			return err
		}
		if !p.IsSweeping() && p.categoryBytes() != p.FreeBytes() {
			return fmt.Errorf("%w: page %#x: categories hold %d bytes, counter says %d",
				ErrVerify, uint64(p.chunk.Start), p.categoryBytes(), p.FreeBytes())
		}
		if walk && !p.IsSweeping() {
			sum, err := VerifyPage(p)
			if err != nil {
				return err
			}
			if sum.FreeBytes != p.FreeBytes() {
				return fmt.Errorf("%w: page %#x: walk found %d free bytes, counter says %d",
					ErrVerify, uint64(p.chunk.Start), sum.FreeBytes, p.FreeBytes())
			}
		}
		capacity += p.AreaSize()
		allocated += p.AllocatedBytes()
		free += p.FreeBytes()
		wasted += p.WastedBytes()
	}

	if capacity != s.Capacity() || allocated != s.AllocatedBytes() ||
		free != s.FreeBytes() || wasted != s.WastedBytes() {
		return fmt.Errorf("%w: %s space: page sums (%d/%d/%d/%d) differ from totals (%d/%d/%d/%d)",
			ErrVerify, s.kind, capacity, allocated, free, wasted,
			s.Capacity(), s.AllocatedBytes(), s.FreeBytes(), s.WastedBytes())
	}
	return nil
}
