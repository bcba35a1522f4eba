package space

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

func TestLargeSpace_AllocateAndFree(t *testing.T) {
	src := pagesrc.NewGoHeap(0)
	s := NewLargeSpace(Options{Source: src})

	addr, err := s.Allocate(10000)
	require.NoError(t, err)

	p, ok := s.PageOf(addr)
	require.True(t, ok)
	assert.Equal(t, p.AreaStart(), addr)
	assert.Equal(t, LargeObjectSpace, p.Kind())
	assert.Equal(t, 10000, s.AllocatedBytes())
	assert.Equal(t, format.AlignOSPage(10000+format.PageHeaderSize)-format.PageHeaderSize, s.Capacity())
	assert.True(t, s.Stats().Conserved())

	objs := collect(p)
	require.Len(t, objs, 1)
	assert.Equal(t, 10000, objs[0].Size)

	_, err = VerifyPage(p)
	require.NoError(t, err)

	size, err := s.Free(addr)
	require.NoError(t, err)
	assert.Equal(t, 10000, size)
	assert.Zero(t, s.PageCount())
	assert.Zero(t, s.Capacity())
	assert.Zero(t, src.InUse())
}

func TestLargeSpace_OutOfMemory(t *testing.T) {
	s := NewLargeSpace(Options{Source: pagesrc.NewGoHeap(1)})
	_, err := s.Allocate(100)
	require.NoError(t, err)
	_, err = s.Allocate(100)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestLargeSpace_FreeInteriorPanics(t *testing.T) {
	s := NewLargeSpace(Options{})
	addr, err := s.Allocate(5000)
	require.NoError(t, err)
	assert.Panics(t, func() { _, _ = s.Free(addr + 8) })
}
