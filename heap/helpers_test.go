package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/format"
)

const testAreaSize = 4096

func testConfig() *Config {
	return &Config{PageSize: testAreaSize + format.PageHeaderSize}
}

func newTestHeap(t testing.TB, cfg *Config) *Heap {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	h, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func mustAllocate(t testing.TB, h *Heap, kind Kind, size int) Address {
	t.Helper()
	addr, err := h.Allocate(kind, size)
	require.NoError(t, err)
	return addr
}

// fill writes b over the payload of the object at addr.
func fill(t testing.TB, h *Heap, addr Address, size int, b byte) {
	t.Helper()
	p, ok := h.PageTable().Lookup(addr)
	require.True(t, ok)
	payload := p.Mem(addr+format.ObjectHeaderSize, size-format.ObjectHeaderSize)
	for i := range payload {
		payload[i] = b
	}
}

func payloadOf(t testing.TB, h *Heap, addr Address, size int) []byte {
	t.Helper()
	p, ok := h.PageTable().Lookup(addr)
	require.True(t, ok)
	return p.Mem(addr+format.ObjectHeaderSize, size-format.ObjectHeaderSize)
}

func liveObjects(s *space.PagedSpace) (count, bytes int) {
	for _, p := range s.MemoryChunkList() {
		for obj := range p.All() {
			count++
			bytes += obj.Size
		}
	}
	return count, bytes
}
