package space

import (
	"sync"

	"github.com/google/btree"
)

// pageTableDegree is the B-tree degree of the page table.
const pageTableDegree = 16

// PageTable maps heap addresses to the page containing them. One table is
// shared by every space of a heap, including transient compaction spaces,
// so evacuation can read an object's bytes from its source page.
//
// Safe for concurrent use.
type PageTable struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[*Page]
}

// NewPageTable creates an empty page table.
func NewPageTable() *PageTable {
	return &PageTable{
		tree: btree.NewG(pageTableDegree, func(a, b *Page) bool {
			return a.chunk.Start < b.chunk.Start
		}),
	}
}

// Insert registers p.
func (t *PageTable) Insert(p *Page) {
	t.mu.Lock()
	t.tree.ReplaceOrInsert(p)
	t.mu.Unlock()
}

// Remove unregisters p.
func (t *PageTable) Remove(p *Page) {
	t.mu.Lock()
	t.tree.Delete(p)
	t.mu.Unlock()
}

// Lookup returns the page whose area contains addr.
func (t *PageTable) Lookup(addr Address) (*Page, bool) {
	pivot := &Page{}
	pivot.chunk.Start = addr

	var found *Page
	t.mu.RLock()
	t.tree.DescendLessOrEqual(pivot, func(p *Page) bool {
		found = p
		return false
	})
	t.mu.RUnlock()

	if found == nil || !found.Contains(addr) {
		return nil, false
	}
	return found, true
}

// Len returns the number of registered pages.
func (t *PageTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tree.Len()
}
