package space

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageTable_Lookup(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	var pages []*Page
	for range 4 {
		p, err := s.AcquirePage()
		require.NoError(t, err)
		pages = append(pages, p)
	}
	table := s.Table()
	assert.Equal(t, 4, table.Len())

	for _, p := range pages {
		got, ok := table.Lookup(p.AreaStart())
		require.True(t, ok)
		assert.Same(t, p, got)

		got, ok = table.Lookup(p.AreaEnd() - 8)
		require.True(t, ok)
		assert.Same(t, p, got)

		// The header is not part of the area.
		_, ok = table.Lookup(p.ChunkStart())
		assert.False(t, ok)
	}

	_, ok := table.Lookup(1)
	assert.False(t, ok)

	table.Remove(pages[1])
	_, ok = table.Lookup(pages[1].AreaStart())
	assert.False(t, ok)
}

func TestPageTable_Concurrent(t *testing.T) {
	s := newTestSpace(t, OldSpace)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 4 {
				p, err := s.AcquirePage()
				if !assert.NoError(t, err) {
					return
				}
				got, ok := s.Table().Lookup(p.AreaStart() + 64)
				assert.True(t, ok)
				assert.Same(t, p, got)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, s.PageCount())
	requireConserved(t, s)
}

func TestPageList(t *testing.T) {
	var l PageList
	a, b, c := &Page{}, &Page{}, &Page{}
	l.PushBack(b)
	l.PushFront(a)
	l.PushBack(c)
	assert.Equal(t, []*Page{a, b, c}, l.Slice())

	l.Remove(b)
	assert.Equal(t, []*Page{a, c}, l.Slice())
	assert.Same(t, c, a.Next())
	assert.Same(t, a, c.Prev())

	l.Remove(a)
	l.Remove(c)
	assert.Zero(t, l.Len())
	assert.Nil(t, l.First())
	assert.Nil(t, l.Last())
}
