package space

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/freelist"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

func TestNewPagedSpace_RejectsBadOptions(t *testing.T) {
	_, err := NewPagedSpace(OldSpace, Options{PageSize: 36})
	require.Error(t, err)

	_, err = NewPagedSpace(OldSpace, Options{PageSize: format.PageHeaderSize + 20})
	require.Error(t, err)

	_, err = NewPagedSpace(LargeObjectSpace, Options{})
	require.Error(t, err)

	s, err := NewPagedSpace(CodeSpace, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, s.PageSize())
	assert.Equal(t, CodeSpace, s.Kind())
}

func TestAcquirePage_LinksWholeArea(t *testing.T) {
	s := newTestSpace(t, OldSpace)

	p, err := s.AcquirePage()
	require.NoError(t, err)

	assert.Equal(t, p.ChunkStart()+format.PageHeaderSize, p.AreaStart())
	assert.Equal(t, testAreaSize, p.AreaSize())
	assert.Equal(t, p, s.FirstPage())
	assert.Equal(t, p, s.LastPage())
	assert.Equal(t, &s.Space, p.Owner())

	st := s.Stats()
	assert.Equal(t, testAreaSize, st.Capacity)
	assert.Equal(t, testAreaSize, st.Free)
	assert.Equal(t, testAreaSize, st.Available)
	assert.Zero(t, st.Allocated)

	h, err := p.Header()
	require.NoError(t, err)
	assert.Equal(t, uint32(OldSpace), h.Kind)
	requireConserved(t, s)
}

func TestAcquirePage_OutOfMemory(t *testing.T) {
	s, err := NewPagedSpace(OldSpace, Options{PageSize: testPageSize, Source: pagesrc.NewGoHeap(1)})
	require.NoError(t, err)

	_, err = s.AcquirePage()
	require.NoError(t, err)
	_, err = s.AcquirePage()
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.ErrorIs(t, err, pagesrc.ErrPageLimit)
	assert.Equal(t, 1, s.PageCount())
}

func TestAllocateLinearArea_AcquiresOnMiss(t *testing.T) {
	s := newTestSpace(t, OldSpace)

	lr, err := s.AllocateLinearArea(64)
	require.NoError(t, err)
	assert.Equal(t, 1, s.PageCount())
	assert.Equal(t, lr.Page.AreaStart(), lr.Start)
	assert.Equal(t, lr.Page.AreaEnd(), lr.End)
	assert.Equal(t, testAreaSize, s.AllocatedBytes())
	assert.Zero(t, s.Available())

	s.FreeLinearArea(lr.Page, lr.Start, lr.End)
	assert.Equal(t, testAreaSize, s.Available())
	requireConserved(t, s)
}

func TestAllocateLinearArea_TooLarge(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	_, err := s.AllocateLinearArea(testAreaSize + 8)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, s.PageCount())
}

func TestFree_ReclaimsIntoFreeList(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	p, addrs := carve(t, s, 16, 24, 40)

	before := s.AllocatedBytes()
	reclaimed := s.Free(addrs[1], 24)
	assert.Equal(t, 24, reclaimed)
	assert.Equal(t, before-24, s.AllocatedBytes())

	var nodes int
	for _, c := range s.FreeListStats() {
		nodes += c.Nodes
	}
	assert.Equal(t, 2, nodes, "page tail plus the freed object")
	assert.Equal(t, testAreaSize-80+24, s.Available())

	objs := collect(p)
	require.Len(t, objs, 2)
	assert.Equal(t, addrs[0], objs[0].Address)
	assert.Equal(t, addrs[2], objs[1].Address)
	requireConserved(t, s)
}

func TestFree_SmallFragmentIsWasted(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	_, addrs := carve(t, s, 16, 8, 32)

	reclaimed := s.Free(addrs[1], 8)
	assert.Zero(t, reclaimed)
	assert.Equal(t, 8, s.WastedBytes())
	requireConserved(t, s)
}

func TestFree_PanicsOnForeignAddress(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	other := newTestSpace(t, OldSpace)
	_, addrs := carve(t, other, 16)

	assert.Panics(t, func() { s.Free(addrs[0], 16) })
	assert.Panics(t, func() { other.Free(addrs[0], 24) }, "size mismatch with header")
}

func TestTryAllocateFromFreeList_ReusesAndSplits(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	_, addrs := carve(t, s, 16, 64, 40)
	s.Free(addrs[1], 64)

	// Exhaust the page tail so only the freed node can serve.
	lr, err := s.AllocateLinearArea(s.Available() - 64)
	require.NoError(t, err)
	lr.Page.WriteObjectHeader(lr.Start, lr.Size())

	addr, ok := s.TryAllocateFromFreeList(24)
	require.True(t, ok)
	assert.Equal(t, addrs[1], addr)
	assert.Equal(t, 40, s.Available())

	_, ok = s.TryAllocateFromFreeList(48)
	assert.False(t, ok)
	requireConserved(t, s)
}

func TestSweeping_DeferredLink(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	p, addrs := carve(t, s, 32, 32, 32)
	tail := addrs[2] + 32

	s.StartSweeping(p)
	assert.True(t, p.IsSweeping())
	assert.Zero(t, s.Available(), "page categories must be hidden while sweeping")
	assert.Equal(t, testAreaSize, s.AllocatedBytes())

	assert.Equal(t, 32, s.FreeDuringSweep(addrs[1], 32))
	assert.Equal(t, int(p.AreaEnd()-tail), s.FreeDuringSweep(tail, int(p.AreaEnd()-tail)))
	assert.Zero(t, s.Available(), "DoNotLinkCategory must not link")

	s.FinishSweeping(p)
	assert.False(t, p.IsSweeping())
	assert.Equal(t, testAreaSize-64, s.Available())
	assert.Equal(t, 64, s.AllocatedBytes())
	requireConserved(t, s)
}

func TestFreeDuringSweep_RequiresSweepingPage(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	_, addrs := carve(t, s, 32)
	assert.Panics(t, func() { s.FreeDuringSweep(addrs[0], 32) })
}

func TestReleasePage(t *testing.T) {
	src := pagesrc.NewGoHeap(0)
	s, err := NewPagedSpace(OldSpace, Options{PageSize: testPageSize, Source: src})
	require.NoError(t, err)

	p1, err := s.AcquirePage()
	require.NoError(t, err)
	p2, err := s.AcquirePage()
	require.NoError(t, err)
	carveOn := p2.AreaStart()
	_, ok := s.PageOf(carveOn)
	require.True(t, ok)

	require.NoError(t, s.ReleasePage(p1))
	assert.Equal(t, 1, s.PageCount())
	assert.Equal(t, 1, src.InUse())
	assert.Equal(t, testAreaSize, s.Capacity())
	assert.Equal(t, testAreaSize, s.Available())
	_, ok = s.PageOf(p1.AreaStart())
	assert.False(t, ok)
	requireConserved(t, s)
}

func TestReleaseEmptyPages(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	_, err := s.AcquirePage()
	require.NoError(t, err)
	carve(t, s, 4096)
	_, err = s.AcquirePage()
	require.NoError(t, err)
	require.Equal(t, 2, s.PageCount())

	n, err := s.ReleaseEmptyPages()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.PageCount())
	assert.Equal(t, 4096, s.AllocatedBytes())
	requireConserved(t, s)
}

func TestMergeCompactionSpace(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	carve(t, s, 48)

	cs := s.NewCompactionSpace()
	require.True(t, cs.IsCompactionSpace())
	_, addrs := carve(t, cs, 64, 64, 72)
	cs.IncrementExternalBytes(ExternalArrayBuffer, 1000)

	before := s.AllocatedBytes()
	s.MergeCompactionSpace(cs)

	assert.Equal(t, 2, s.PageCount())
	assert.Zero(t, cs.PageCount())
	assert.Equal(t, before+200, s.AllocatedBytes())
	assert.Equal(t, 1000, s.ExternalBytes(ExternalArrayBuffer))
	assert.Zero(t, cs.ExternalBytes(ExternalArrayBuffer))
	p, ok := s.PageOf(addrs[0])
	require.True(t, ok)
	assert.Equal(t, &s.Space, p.Owner())
	assert.Equal(t, 2*(testAreaSize)-48-200, s.Available())
	requireConserved(t, s)

	assert.Panics(t, func() { s.MergeCompactionSpace(s) })
}

func TestSizeOfObjects_ExcludesLinearAreas(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	lr, err := s.AllocateLinearArea(100)
	require.NoError(t, err)

	la := &fakeArea{unused: lr.Size() - 40}
	s.AttachLinearArea(la)
	assert.Equal(t, 40, s.SizeOfObjects())
	s.DetachLinearArea(la)
	assert.Equal(t, lr.Size(), s.SizeOfObjects())
}

type fakeArea struct{ unused int }

func (f *fakeArea) Unused() int { return f.unused }

func TestExternalBytes(t *testing.T) {
	a := newTestSpace(t, OldSpace)
	b := newTestSpace(t, OldSpace)
	a.IncrementExternalBytes(ExternalString, 300)
	a.MoveExternalBytes(&b.Space, ExternalString, 100)
	assert.Equal(t, 200, a.ExternalBytes(ExternalString))
	assert.Equal(t, 100, b.ExternalBytes(ExternalString))
	assert.Panics(t, func() { b.DecrementExternalBytes(ExternalString, 101) })
}

func TestFreeListConfigIsHonoured(t *testing.T) {
	s, err := NewPagedSpace(OldSpace, Options{PageSize: testPageSize, FreeList: &freelist.ConfigCoarse})
	require.NoError(t, err)
	assert.Equal(t, freelist.ConfigCoarse.MinBlockSize, s.MinBlockSize())
	assert.Equal(t, "Coarse", s.NewCompactionSpace().freeList.Config().Name)
}
