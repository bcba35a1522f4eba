package format

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// Address is a byte offset into the managed heap. Addresses are totally
// ordered and byte-granular; zero is never a valid range address.
type Address uint64

// NullAddress terminates free-space node chains.
const NullAddress Address = 0

// Range describes the range decoded at the start of b.
type Range struct {
	Size int
	Tag  Tag
}

// DecodeRange decodes the header at the start of b. b must extend at least to
// the end of the enclosing page area so the declared size can be validated.
func DecodeRange(b []byte) (Range, error) {
	if len(b) < ObjectHeaderSize {
		return Range{}, fmt.Errorf("range: %w", ErrTruncated)
	}
	size := int(buf.U32LE(b))
	tag := Tag(buf.U32LE(b[4:]))
	switch tag {
	case TagObject, TagFiller, TagFreeSpace:
	default:
		return Range{}, fmt.Errorf("range: %w (%#x)", ErrBadTag, uint32(tag))
	}
	if size < MinObjectSize || !IsAligned8(size) {
		return Range{}, fmt.Errorf("range: %w (%d)", ErrBadSize, size)
	}
	if tag == TagFreeSpace && size < FreeSpaceNodeSize {
		return Range{}, fmt.Errorf("range: free node %w (%d)", ErrBadSize, size)
	}
	if size > len(b) {
		return Range{}, fmt.Errorf("range: size %d overruns area (%d left): %w", size, len(b), ErrTruncated)
	}
	return Range{Size: size, Tag: tag}, nil
}

// PeekSize returns the declared size of the range at b without validating it.
func PeekSize(b []byte) int {
	return int(buf.U32LE(b))
}

// PutHeader writes a range header of the given size and tag at the start of b.
func PutHeader(b []byte, size int, tag Tag) {
	buf.PutU32LE(b, uint32(size))
	buf.PutU32LE(b[4:], uint32(tag))
}

// PutObject writes a live-object header. The payload is left untouched.
func PutObject(b []byte, size int) {
	PutHeader(b, size, TagObject)
}

// PutFiller writes a filler header over a dead range of the given size.
func PutFiller(b []byte, size int) {
	PutHeader(b, size, TagFiller)
}

// PutFreeSpace writes a free-space node with a link to next.
func PutFreeSpace(b []byte, size int, next Address) {
	PutHeader(b, size, TagFreeSpace)
	buf.PutU64LE(b[FreeSpaceNextOffset:], uint64(next))
}

// FreeSpaceNext reads the next-node link of the free-space node at b.
func FreeSpaceNext(b []byte) Address {
	return Address(buf.U64LE(b[FreeSpaceNextOffset:]))
}

// SetFreeSpaceNext rewrites the next-node link of the free-space node at b.
func SetFreeSpaceNext(b []byte, next Address) {
	buf.PutU64LE(b[FreeSpaceNextOffset:], uint64(next))
}
