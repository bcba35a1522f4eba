// Package pagesrc supplies raw page chunks to the heap. It abstracts the
// OS-level reservation of memory: a Source hands out byte buffers together
// with the heap address they are mapped at, and takes them back when a page
// is released.
package pagesrc

import (
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/joshuapare/heapkit/internal/format"
)

var (
	// ErrPageLimit indicates the source refused to hand out more pages.
	ErrPageLimit = stderrors.New("pagesrc: page limit reached")

	// ErrBadChunk indicates Release was called with a chunk this source did not hand out.
	ErrBadChunk = stderrors.New("pagesrc: unknown chunk")
)

// baseAddress is the first address handed out by every source. Address zero
// is reserved as the null free-list link.
const baseAddress = format.Address(0x10000)

// Chunk is a contiguous block of page memory mapped at Start.
type Chunk struct {
	Start format.Address
	Mem   []byte
}

// End returns the exclusive end address of the chunk.
func (c Chunk) End() format.Address {
	return c.Start + format.Address(len(c.Mem))
}

// Source is the virtual-memory page source consumed by spaces.
//
// Implementations must be safe for concurrent use: evacuation workers acquire
// pages in parallel.
type Source interface {
	// Acquire returns a zeroed chunk of exactly size bytes.
	Acquire(size int) (Chunk, error)

	// Release returns a chunk to the source. The memory must not be touched
	// afterwards.
	Release(c Chunk) error

	// InUse returns the number of chunks currently handed out.
	InUse() int
}

// reservation hands out non-overlapping address ranges and enforces the page
// limit shared by all implementations.
type reservation struct {
	next  atomic.Uint64
	mu    sync.Mutex
	live  map[format.Address]int
	limit int
}

func newReservation(limit int) *reservation {
	r := &reservation{
		live:  make(map[format.Address]int),
		limit: limit,
	}
	r.next.Store(uint64(baseAddress))
	return r
}

// reserve claims an address range of size bytes. Ranges are rounded to
// OS pages so neighbouring chunks never share a page.
func (r *reservation) reserve(size int) (format.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.live) >= r.limit {
		return 0, errors.WithStack(ErrPageLimit)
	}
	span := uint64(format.AlignOSPage(size))
	start := format.Address(r.next.Add(span) - span)
	r.live[start] = size
	return start, nil
}

// unreserve forgets a range. Addresses are never handed out twice.
func (r *reservation) unreserve(c Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	size, ok := r.live[c.Start]
	if !ok || size != len(c.Mem) {
		return errors.Wrapf(ErrBadChunk, "release %#x (%d bytes)", uint64(c.Start), len(c.Mem))
	}
	delete(r.live, c.Start)
	return nil
}

// cancel drops a reservation whose backing memory could not be obtained.
func (r *reservation) cancel(start format.Address) {
	r.mu.Lock()
	delete(r.live, start)
	r.mu.Unlock()
}

func (r *reservation) inUse() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// GoHeap is a Source backed by ordinary Go byte slices. It accepts any chunk
// size and is the default for tests and platforms without mmap.
type GoHeap struct {
	res *reservation
}

// NewGoHeap creates a GoHeap source. limit caps the number of chunks in use;
// zero means unlimited.
func NewGoHeap(limit int) *GoHeap {
	return &GoHeap{res: newReservation(limit)}
}

// Acquire implements Source.
func (g *GoHeap) Acquire(size int) (Chunk, error) {
	if size <= 0 {
		return Chunk{}, errors.Errorf("pagesrc: invalid chunk size %d", size)
	}
	start, err := g.res.reserve(size)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Start: start, Mem: make([]byte, size)}, nil
}

// Release implements Source.
func (g *GoHeap) Release(c Chunk) error {
	return g.res.unreserve(c)
}

// InUse implements Source.
func (g *GoHeap) InUse() int {
	return g.res.inUse()
}

var _ Source = (*GoHeap)(nil)
