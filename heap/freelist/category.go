package freelist

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Page is the memory a category's nodes are written into. Free-list nodes
// are intrusive: the node for a free range lives in the range itself, so
// the free list needs write access to page bytes.
type Page interface {
	// Mem returns the validated byte view of [start, start+size). It panics if
	// the range is outside the page area.
	Mem(start format.Address, size int) []byte

	// FreeListCategory returns the page's category of type t, or nil.
	FreeListCategory(t int) *Category

	// SetFreeListCategory installs the page's category of type t.
	SetFreeListCategory(t int, c *Category)
}

// Category is one size class of free ranges on one page. The free list links
// categories of the same type across pages; nodes inside a category form a
// singly linked list threaded through the free ranges themselves.
type Category struct {
	typ       int
	page      Page
	top       format.Address // first node, NullAddress when empty
	available int            // bytes in this category's nodes
	nodes     int

	// Links among linked categories of the same type.
	prev, next *Category
	linked     bool
}

// Type returns the category index.
func (c *Category) Type() int { return c.typ }

// Available returns the number of free bytes held by this category.
func (c *Category) Available() int { return c.available }

// Nodes returns the number of free ranges held by this category.
func (c *Category) Nodes() int { return c.nodes }

// IsEmpty reports whether the category holds no nodes.
func (c *Category) IsEmpty() bool { return c.top == format.NullAddress }

// IsLinked reports whether the category is visible to allocation.
func (c *Category) IsLinked() bool { return c.linked }

// push writes a free-space node over [start, start+size) and makes it the top.
func (c *Category) push(start format.Address, size int) {
	format.PutFreeSpace(c.page.Mem(start, size), size, c.top)
	c.top = start
	c.available += size
	c.nodes++
}

// pop unlinks the top node.
func (c *Category) pop() (format.Address, int) {
	start := c.top
	size, next := c.read(start)
	c.top = next
	c.available -= size
	c.nodes--
	return start, size
}

// search unlinks the first node of at least minSize bytes.
func (c *Category) search(minSize int) (format.Address, int, bool) {
	var prev format.Address
	for cur := c.top; cur != format.NullAddress; {
		size, next := c.read(cur)
		if size >= minSize {
			if prev == format.NullAddress {
				c.top = next
			} else {
				format.SetFreeSpaceNext(c.page.Mem(prev, format.FreeSpaceNodeSize), next)
			}
			c.available -= size
			c.nodes--
			return cur, size, true
		}
		prev, cur = cur, next
	}
	return 0, 0, false
}

// read decodes the node at start. A node that does not decode is heap
// corruption and aborts.
func (c *Category) read(start format.Address) (int, format.Address) {
	head := c.page.Mem(start, format.FreeSpaceNodeSize)
	r, err := format.DecodeRange(c.page.Mem(start, format.PeekSize(head)))
	if err != nil || r.Tag != format.TagFreeSpace {
		panic(fmt.Sprintf("freelist: corrupt node at %#x in category %d: %v (tag %s)",
			uint64(start), c.typ, err, r.Tag))
	}
	return r.Size, format.FreeSpaceNext(head)
}

// verify walks the node chain and checks the cached counters.
func (c *Category) verify() error {
	total, count := 0, 0
	for cur := c.top; cur != format.NullAddress; {
		size, next := c.read(cur)
		total += size
		count++
		cur = next
	}
	if total != c.available || count != c.nodes {
		return fmt.Errorf("freelist: category %d holds %d bytes in %d nodes, cached %d bytes in %d nodes",
			c.typ, total, count, c.available, c.nodes)
	}
	return nil
}
