//go:build unix

package pagesrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
)

func TestMmapAcquireRelease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mmap test in short mode")
	}
	src := NewMmap(0)

	c, err := src.Acquire(2 * format.OSPageSize)
	require.NoError(t, err)
	require.Len(t, c.Mem, 2*format.OSPageSize)
	for _, v := range c.Mem[:64] {
		require.Zero(t, v, "fresh mapping must be zeroed")
	}
	c.Mem[len(c.Mem)-1] = 0xAA

	require.NoError(t, src.Release(c))
	assert.Zero(t, src.InUse())
}

func TestMmapRejectsUnalignedSize(t *testing.T) {
	src := NewMmap(0)
	_, err := src.Acquire(4128)
	require.Error(t, err)
	assert.Zero(t, src.InUse())
}
