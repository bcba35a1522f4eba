package space

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
)

func TestObjectIterator_SkipsFillers(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	p, addrs := carve(t, s, 16, 24, 40, 8, 32)
	s.Free(addrs[1], 24) // free node
	s.Free(addrs[3], 8)  // filler

	it := p.Objects()
	var got []Object
	for {
		obj, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, obj)
	}
	require.Equal(t, []Object{
		{Address: addrs[0], Size: 16},
		{Address: addrs[2], Size: 40},
		{Address: addrs[4], Size: 32},
	}, got)

	// Exhausted iterators stay exhausted.
	_, ok := it.Next()
	assert.False(t, ok)
}

func TestObjectIterator_IncreasingAndDisjoint(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	p, _ := carve(t, s, 8, 16, 24, 32, 40, 48, 56, 64)

	var prevEnd Address
	n := 0
	for obj := range p.All() {
		assert.GreaterOrEqual(t, obj.Address, prevEnd)
		prevEnd = obj.End()
		n++
	}
	assert.Equal(t, 8, n)
}

func TestObjectIterator_PanicsOnOverrun(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	p, addrs := carve(t, s, 16)

	// A size reaching past area_end is a broken invariant.
	format.PutObject(p.Mem(addrs[0], 16), testAreaSize+8)
	assert.Panics(t, func() { collect(p) })
}

func TestObjectIterator_PanicsOnZeroedMemory(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	lr, err := s.AllocateLinearArea(64)
	require.NoError(t, err)
	// The area still holds the free-node header; wipe it.
	clear(lr.Page.Mem(lr.Start, 16))
	assert.Panics(t, func() { collect(lr.Page) })
}

type sizeOnlyOracle struct{ calls int }

func (o *sizeOnlyOracle) Describe(mem []byte) (int, bool, error) {
	o.calls++
	r, err := format.DecodeRange(mem)
	if err != nil {
		return 0, false, errors.New("bad range")
	}
	return r.Size, r.Tag != format.TagObject, nil
}

func TestObjectIterator_UsesSpaceOracle(t *testing.T) {
	oracle := &sizeOnlyOracle{}
	s, err := NewPagedSpace(OldSpace, Options{PageSize: testPageSize, Oracle: oracle})
	require.NoError(t, err)
	p, _ := carve(t, s, 16, 16)

	assert.Len(t, collect(p), 2)
	assert.Equal(t, 3, oracle.calls, "two objects and the free tail")
}

func TestRanges_IncludesFillers(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	p, addrs := carve(t, s, 16, 8)
	s.Free(addrs[1], 8)

	var tags []format.Tag
	for r := range p.Ranges() {
		tags = append(tags, r.Tag)
	}
	assert.Equal(t, []format.Tag{format.TagObject, format.TagFiller, format.TagFreeSpace}, tags)
}
