package freelist

import (
	"testing"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// testPage is a minimal Page over a byte slice mapped at base.
type testPage struct {
	base       format.Address
	mem        []byte
	categories map[int]*Category
}

func newTestPage(t testing.TB, base format.Address, size int) *testPage {
	t.Helper()
	return &testPage{base: base, mem: make([]byte, size), categories: make(map[int]*Category)}
}

func (p *testPage) Mem(start format.Address, size int) []byte {
	off := int(start - p.base)
	end, err := buf.CheckRange(off, size, 0, len(p.mem))
	if err != nil || start < p.base {
		panic("testPage: out of bounds")
	}
	return p.mem[off:end]
}

func (p *testPage) FreeListCategory(t int) *Category { return p.categories[t] }

func (p *testPage) SetFreeListCategory(t int, c *Category) { p.categories[t] = c }

func (p *testPage) addr(off int) format.Address { return p.base + format.Address(off) }

func newTestFreeList(t testing.TB, cfg *SizeClassConfig) *FreeList {
	t.Helper()
	fl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fl
}
