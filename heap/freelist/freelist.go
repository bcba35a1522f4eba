package freelist

import (
	"fmt"
	"math/bits"

	"github.com/joshuapare/heapkit/internal/format"
)

// Mode controls whether Add makes a category visible to allocation.
type Mode int

const (
	// LinkCategory links the receiving category into the free list (normal).
	LinkCategory Mode = iota

	// DoNotLinkCategory only records the node in its page category. Used by
	// concurrent sweepers: the page's categories are unlinked while it is
	// swept, and the owner relinks them later under its lock.
	DoNotLinkCategory
)

// FreeList tracks free byte ranges by size category.
//
// NOT thread-safe. The owning space guards every call with its lock, except
// Add in DoNotLinkCategory mode on a page whose categories are unlinked,
// which touches only that page.
type FreeList struct {
	table *sizeClassTable

	// Head of the linked category list per type.
	categories []*Category

	// Bit t set iff categories[t] != nil.
	nonEmpty uint64

	// Bytes in linked categories.
	available int
}

// New creates an empty free list. A nil config selects DefaultConfig.
func New(config *SizeClassConfig) (*FreeList, error) {
	if config == nil {
		config = &DefaultConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	table := newSizeClassTable(*config)
	return &FreeList{
		table:      table,
		categories: make([]*Category, table.numCategories()),
	}, nil
}

// NumCategories returns the number of size categories.
func (fl *FreeList) NumCategories() int { return fl.table.numCategories() }

// MinBlockSize returns the smallest range the free list will link.
func (fl *FreeList) MinBlockSize() int { return fl.table.config.MinBlockSize }

// CategoryLowerBound returns the smallest range size held by category t.
func (fl *FreeList) CategoryLowerBound(t int) int { return fl.table.lower[t] }

// Available returns the number of bytes reachable through linked categories.
func (fl *FreeList) Available() int { return fl.available }

// Config returns the size class configuration.
func (fl *FreeList) Config() SizeClassConfig { return fl.table.config }

// Add returns [start, start+size) on page p to the free list. Ranges
// smaller than MinBlockSize are overwritten with a filler and reported as
// wasted; otherwise the range becomes a free-space node in its page
// category and wasted is zero.
func (fl *FreeList) Add(p Page, start format.Address, size int, mode Mode) (wasted int) {
	if size < fl.table.config.MinBlockSize {
		if size > 0 {
			format.PutFiller(p.Mem(start, size), size)
		}
		return size
	}

	t := fl.table.categoryOf(size)
	c := p.FreeListCategory(t)
	if c == nil {
		c = &Category{typ: t, page: p}
		p.SetFreeListCategory(t, c)
	}
	c.push(start, size)

	if c.linked {
		fl.available += size
	} else if mode == LinkCategory {
		fl.link(c)
	}
	return 0
}

// Allocate unlinks a free range of at least minSize bytes and returns it
// whole; splitting is the caller's business. ok is false when no category
// has a candidate, which signals the caller to acquire a new page.
//
// The search starts with a first-fit walk of the category containing
// minSize, then takes the top node of the next non-empty larger category,
// where every node is guaranteed to fit.
func (fl *FreeList) Allocate(minSize int) (p Page, start format.Address, size int, ok bool) {
	minSize = max(minSize, fl.table.config.MinBlockSize)
	t := fl.table.categoryOf(minSize)

	// First fit within the size class.
	for c := fl.categories[t]; c != nil; c = c.next {
		if start, size, found := c.search(minSize); found {
			fl.consumed(c, size)
			return c.page, start, size, true
		}
	}

	// Guaranteed fit in any larger class.
	if t == fl.table.huge() {
		return nil, 0, 0, false
	}
	larger := fl.nonEmpty &^ (uint64(1)<<(t+1) - 1)
	if larger == 0 {
		return nil, 0, 0, false
	}
	c := fl.categories[bits.TrailingZeros64(larger)]
	start, size = c.pop()
	fl.consumed(c, size)
	return c.page, start, size, true
}

// CanServe reports in O(1) whether some category is certain to satisfy a
// request of minSize bytes without searching.
func (fl *FreeList) CanServe(minSize int) bool {
	minSize = max(minSize, fl.table.config.MinBlockSize)
	t := fl.table.categoryOf(minSize)
	if t == fl.table.huge() {
		return false
	}
	return fl.nonEmpty&^(uint64(1)<<(t+1)-1) != 0
}

// MayServe reports in O(1) whether a category at or above the class of
// minSize is non-empty. Unlike CanServe it includes the class of minSize
// itself, so Allocate can still miss when every node there is too small.
func (fl *FreeList) MayServe(minSize int) bool {
	minSize = max(minSize, fl.table.config.MinBlockSize)
	t := fl.table.categoryOf(minSize)
	return fl.nonEmpty&^(uint64(1)<<t-1) != 0
}

// consumed updates counters after a node left linked category c.
func (fl *FreeList) consumed(c *Category, size int) {
	fl.available -= size
	if c.IsEmpty() {
		fl.unlink(c)
	}
}

// RemoveCategoriesOf unlinks every category of page p, hiding its free
// ranges from allocation. Returns the number of bytes hidden.
func (fl *FreeList) RemoveCategoriesOf(p Page) int {
	hidden := 0
	for t := range fl.categories {
		if c := p.FreeListCategory(t); c != nil && c.linked {
			hidden += c.available
			fl.unlink(c)
		}
	}
	return hidden
}

// LinkCategoriesOf links every non-empty category of page p. Returns the
// number of bytes made available.
func (fl *FreeList) LinkCategoriesOf(p Page) int {
	added := 0
	for t := range fl.categories {
		if c := p.FreeListCategory(t); c != nil && !c.linked && !c.IsEmpty() {
			added += c.available
			fl.link(c)
		}
	}
	return added
}

// Merge moves every linked category of other into fl. Used when a
// compaction space's pages become part of a permanent space.
func (fl *FreeList) Merge(other *FreeList) {
	if fl.table.numCategories() != other.table.numCategories() {
		panic(fmt.Sprintf("freelist: merging %s into %s", other.table, fl.table))
	}
	for t := range other.categories {
		for c := other.categories[t]; c != nil; c = other.categories[t] {
			other.unlink(c)
			fl.link(c)
		}
	}
}

// Reset drops every category without touching page memory.
func (fl *FreeList) Reset() {
	for t := range fl.categories {
		for c := fl.categories[t]; c != nil; c = fl.categories[t] {
			fl.unlink(c)
		}
	}
}

// link prepends c to its type's category list.
func (fl *FreeList) link(c *Category) {
	if c.linked || c.IsEmpty() {
		return
	}
	head := fl.categories[c.typ]
	c.prev, c.next = nil, head
	if head != nil {
		head.prev = c
	}
	fl.categories[c.typ] = c
	c.linked = true
	fl.nonEmpty |= 1 << c.typ
	fl.available += c.available
}

// unlink removes c from its type's category list.
func (fl *FreeList) unlink(c *Category) {
	if !c.linked {
		return
	}
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		fl.categories[c.typ] = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	}
	c.prev, c.next = nil, nil
	c.linked = false
	if fl.categories[c.typ] == nil {
		fl.nonEmpty &^= 1 << c.typ
	}
	fl.available -= c.available
}

// Verify walks every linked category and checks the cached counters.
func (fl *FreeList) Verify() error {
	total := 0
	for t, head := range fl.categories {
		if (head != nil) != (fl.nonEmpty&(1<<t) != 0) {
			return fmt.Errorf("freelist: non-empty bit %d out of sync", t)
		}
		for c := head; c != nil; c = c.next {
			if !c.linked || c.typ != t {
				return fmt.Errorf("freelist: category %d linked under type %d", c.typ, t)
			}
			if err := c.verify(); err != nil {
				return err
			}
			total += c.available
		}
	}
	if total != fl.available {
		return fmt.Errorf("freelist: linked categories hold %d bytes, cached %d", total, fl.available)
	}
	return nil
}

// CategoryStat summarizes one category type across all pages.
type CategoryStat struct {
	Type       int
	LowerBound int
	Pages      int
	Nodes      int
	Available  int
}

// Stats returns per-type totals for linked categories.
func (fl *FreeList) Stats() []CategoryStat {
	out := make([]CategoryStat, len(fl.categories))
	for t, head := range fl.categories {
		out[t] = CategoryStat{Type: t, LowerBound: fl.table.lower[t]}
		for c := head; c != nil; c = c.next {
			out[t].Pages++
			out[t].Nodes += c.nodes
			out[t].Available += c.available
		}
	}
	return out
}
