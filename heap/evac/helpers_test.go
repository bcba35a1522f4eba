package evac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

const testAreaSize = 4096

// testHeap is a minimal Owner with one paged space per kind.
type testHeap struct {
	spaces   [space.NumKinds]*space.PagedSpace
	mutators [space.NumKinds]*alloc.MainAllocator
	ooms     []string
}

func newTestHeap(t testing.TB, src pagesrc.Source, kinds ...space.Kind) *testHeap {
	t.Helper()
	if src == nil {
		src = pagesrc.NewGoHeap(0)
	}
	table := space.NewPageTable()
	h := &testHeap{}
	for _, k := range kinds {
		s, err := space.NewPagedSpace(k, space.Options{
			PageSize: testAreaSize + format.PageHeaderSize,
			Source:   src,
			Table:    table,
		})
		require.NoError(t, err)
		h.spaces[k] = s
		h.mutators[k] = alloc.New(s, alloc.Regular)
	}
	return h
}

func (h *testHeap) Space(kind space.Kind) *space.PagedSpace { return h.spaces[kind] }

func (h *testHeap) MutatorLinearAreaActive(kind space.Kind) bool {
	return h.mutators[kind] != nil && h.mutators[kind].IsActive()
}

func (h *testHeap) HandleOOM(msg string) { h.ooms = append(h.ooms, msg) }

// allocObjects allocates objects of the given sizes through the mutator and
// stamps each payload with a recognizable byte.
func (h *testHeap) allocObjects(t testing.TB, kind space.Kind, sizes ...int) []space.Object {
	t.Helper()
	a := h.mutators[kind]
	out := make([]space.Object, 0, len(sizes))
	for i, n := range sizes {
		addr, err := a.AllocateRaw(n)
		require.NoError(t, err)
		p, ok := h.spaces[kind].PageOf(addr)
		require.True(t, ok)
		payload := p.Mem(addr+format.ObjectHeaderSize, n-format.ObjectHeaderSize)
		for j := range payload {
			payload[j] = byte(i + 1)
		}
		out = append(out, space.Object{Address: addr, Size: n})
	}
	return out
}
