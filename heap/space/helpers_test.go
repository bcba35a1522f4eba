package space

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

// testAreaSize is the page area used by most tests.
const testAreaSize = 4096

const testPageSize = testAreaSize + format.PageHeaderSize

func newTestSpace(t testing.TB, kind Kind) *PagedSpace {
	t.Helper()
	s, err := NewPagedSpace(kind, Options{PageSize: testPageSize, Source: pagesrc.NewGoHeap(0)})
	require.NoError(t, err)
	return s
}

// carve takes a linear area and writes objects of the given sizes at its
// start, returning their addresses. The rest of the area goes back to the
// free list.
func carve(t testing.TB, s *PagedSpace, sizes ...int) (*Page, []Address) {
	t.Helper()
	total := 0
	for _, n := range sizes {
		total += n
	}
	lr, err := s.AllocateLinearArea(total)
	require.NoError(t, err)

	addrs := make([]Address, 0, len(sizes))
	top := lr.Start
	for _, n := range sizes {
		lr.Page.WriteObjectHeader(top, n)
		addrs = append(addrs, top)
		top += Address(n)
	}
	s.FreeLinearArea(lr.Page, top, lr.End)
	return lr.Page, addrs
}

func requireConserved(t testing.TB, s *PagedSpace) {
	t.Helper()
	st := s.Stats()
	require.True(t, st.Conserved(), "allocated %d + free %d + wasted %d != capacity %d",
		st.Allocated, st.Free, st.Wasted, st.Capacity)
	require.NoError(t, s.Verify(true))
}

func collect(p *Page) []Object {
	var out []Object
	for obj := range p.All() {
		out = append(out, obj)
	}
	return out
}
