package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/joshuapare/heapkit/heap/freelist"
	"github.com/joshuapare/heapkit/heap/space"
)

func TestPrinter_Bytes(t *testing.T) {
	pr := New(&bytes.Buffer{}, Options{})
	assert.Equal(t, "512 B", pr.Bytes(512))
	assert.Equal(t, "256 KiB", pr.Bytes(256<<10))
	assert.Equal(t, "-1.0 KiB", pr.Bytes(-1024))

	exact := New(&bytes.Buffer{}, Options{Exact: true})
	assert.Equal(t, "1.5 MiB (1,572,864)", exact.Bytes(3<<19))
}

func TestPrinter_CountLocale(t *testing.T) {
	assert.Equal(t, "1,234,567", New(nil, Options{}).Count(1234567))
	assert.Equal(t, "1.234.567", New(nil, Options{Lang: language.German}).Count(1234567))
}

func TestPrinter_Spaces(t *testing.T) {
	var buf bytes.Buffer
	stats := []space.Stats{
		{Kind: space.OldSpace, Pages: 2, Capacity: 8192, Allocated: 4096, Free: 4000, Wasted: 96, SizeOfObjects: 4000},
		{Kind: space.CodeSpace, Pages: 1, Capacity: 4096, Allocated: 4096},
	}
	require.NoError(t, New(&buf, Options{}).Spaces(stats))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "allocated")
	assert.Contains(t, lines[1], "old")
	assert.Contains(t, lines[1], "50.0%")
	assert.Contains(t, lines[2], "100.0%")
	assert.Contains(t, lines[3], "total")
	assert.Contains(t, lines[3], "12 KiB")
}

func TestPrinter_FreeListSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	cats := []freelist.CategoryStat{
		{Type: 0, LowerBound: 24},
		{Type: 3, LowerBound: 120, Pages: 2, Nodes: 5, Available: 800},
	}
	require.NoError(t, New(&buf, Options{}).FreeList(cats))
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Contains(t, out, "800 B")
}

func TestPercent(t *testing.T) {
	assert.Zero(t, Percent(1, 0))
	assert.InDelta(t, 25.0, Percent(1, 4), 1e-9)
}
