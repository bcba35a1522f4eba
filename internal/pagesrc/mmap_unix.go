//go:build unix

package pagesrc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/joshuapare/heapkit/internal/format"
)

// Mmap is a Source backed by private anonymous memory mappings. Chunk sizes
// must be multiples of the OS page size.
type Mmap struct {
	res *reservation
}

// NewMmap creates an Mmap source. limit caps the number of chunks in use;
// zero means unlimited.
func NewMmap(limit int) *Mmap {
	return &Mmap{res: newReservation(limit)}
}

// Acquire implements Source.
func (m *Mmap) Acquire(size int) (Chunk, error) {
	if size <= 0 || size != format.AlignOSPage(size) {
		return Chunk{}, errors.Errorf("pagesrc: mmap chunk size %d is not a multiple of %d", size, format.OSPageSize)
	}
	start, err := m.res.reserve(size)
	if err != nil {
		return Chunk{}, err
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		m.res.cancel(start)
		return Chunk{}, errors.Wrapf(err, "pagesrc: mmap %d bytes", size)
	}
	return Chunk{Start: start, Mem: mem}, nil
}

// Release implements Source.
func (m *Mmap) Release(c Chunk) error {
	if err := m.res.unreserve(c); err != nil {
		return err
	}
	if err := unix.Munmap(c.Mem); err != nil {
		return errors.Wrapf(err, "pagesrc: munmap %#x", uint64(c.Start))
	}
	return nil
}

// InUse implements Source.
func (m *Mmap) InUse() int {
	return m.res.inUse()
}

var _ Source = (*Mmap)(nil)
