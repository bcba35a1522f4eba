package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// PageHeader describes a page chunk. Each chunk begins with a 0x20-byte
// header with the following structure (little-endian):
//
//	Offset  Size  Field
//	0x00    4     'h' 'p' 'a' 'g'
//	0x04    4     Space kind
//	0x08    4     Chunk size including header
//	0x0C    4     Offset of the allocatable area from chunk start
//	0x10    8     Chunk start address
//	0x18    8     Reserved
type PageHeader struct {
	Kind       uint32
	ChunkSize  uint32
	AreaOffset uint32
	ChunkStart Address
}

// PutPageHeader writes h at the start of b.
func PutPageHeader(b []byte, h PageHeader) {
	copy(b[:4], PageSignature)
	buf.PutU32LE(b[PageKindOffset:], h.Kind)
	buf.PutU32LE(b[PageChunkSizeOffset:], h.ChunkSize)
	buf.PutU32LE(b[PageAreaOffset:], h.AreaOffset)
	buf.PutU64LE(b[PageChunkAddrOffset:], uint64(h.ChunkStart))
}

// ParsePageHeader validates the header at the start of b.
func ParsePageHeader(b []byte) (PageHeader, error) {
	if len(b) < PageHeaderSize {
		return PageHeader{}, fmt.Errorf("page: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:4], PageSignature) {
		return PageHeader{}, fmt.Errorf("page: %w", ErrSignatureMismatch)
	}
	h := PageHeader{
		Kind:       buf.U32LE(b[PageKindOffset:]),
		ChunkSize:  buf.U32LE(b[PageChunkSizeOffset:]),
		AreaOffset: buf.U32LE(b[PageAreaOffset:]),
		ChunkStart: Address(buf.U64LE(b[PageChunkAddrOffset:])),
	}
	if int(h.ChunkSize) != len(b) {
		return PageHeader{}, fmt.Errorf("page: chunk size %d does not match buffer %d", h.ChunkSize, len(b))
	}
	if h.AreaOffset < PageHeaderSize || h.AreaOffset > h.ChunkSize {
		return PageHeader{}, fmt.Errorf("page: invalid area offset %d", h.AreaOffset)
	}
	return h, nil
}
