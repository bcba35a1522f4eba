// Package format houses the byte-level layout shared by every page of the
// managed heap: the page header, the object header and the two synthetic
// range kinds (filler objects and free-space nodes) that keep a page
// walkable. Nothing above this package reads or writes page bytes directly.
package format

// PageSignature is the four-byte signature at the start of every page chunk.
// Layout:
//
//	0x00  'h' 'p' 'a' 'g'
var PageSignature = []byte{'h', 'p', 'a', 'g'}

const (
	// PageHeaderSize is the size of the page header in bytes. The allocatable
	// area of a page begins immediately after it.
	PageHeaderSize = 0x20

	// Page header field offsets (little-endian).
	PageKindOffset      = 0x04 // uint32 space kind
	PageChunkSizeOffset = 0x08 // uint32 total chunk size including header
	PageAreaOffset      = 0x0C // uint32 offset of area start from chunk start
	PageChunkAddrOffset = 0x10 // uint64 chunk start address

	// ObjectHeaderSize is the size of the header preceding every range on a
	// page, whether it holds a live object, a filler or a free-space node.
	//
	//	Offset  Size  Description
	//	0x00    4     Total size of the range including this header.
	//	0x04    4     Tag (see Tag).
	//	0x08    8     Next free-space node (TagFreeSpace only).
	ObjectHeaderSize = 8

	// FreeSpaceNextOffset is the offset of the next-node link inside a
	// free-space node.
	FreeSpaceNextOffset = 8

	// FreeSpaceNodeSize is the smallest range that can carry a next-node link.
	FreeSpaceNodeSize = 16

	// MinObjectSize is the smallest range that can be described at all.
	MinObjectSize = ObjectHeaderSize

	// ObjectAlignment is the required alignment of every range on a page.
	ObjectAlignment = 8

	// ObjectAlignmentMask is ObjectAlignment-1, for fast rounding.
	ObjectAlignmentMask = ObjectAlignment - 1

	// OSPageSize is the granularity used when rounding chunk sizes for
	// memory-mapped page sources.
	OSPageSize = 0x1000

	// OSPageSizeMask is OSPageSize-1.
	OSPageSizeMask = OSPageSize - 1
)

// Tag identifies what a range on a page currently is. A range is exactly one
// of these at any instant; zeroed memory (TagInvalid) is never a valid range
// and makes the page walk fail loudly.
type Tag uint32

const (
	TagInvalid   Tag = 0
	TagObject    Tag = 0x6a626f01 // live (or not yet swept) object
	TagFiller    Tag = 0x6c696602 // dead bytes kept walkable, never reused
	TagFreeSpace Tag = 0x65726603 // free-list node, reusable
)

// String returns a short name for the tag.
func (t Tag) String() string {
	switch t {
	case TagObject:
		return "object"
	case TagFiller:
		return "filler"
	case TagFreeSpace:
		return "free"
	default:
		return "invalid"
	}
}

// IsFiller reports whether the iterator must skip ranges with this tag.
// Free-space nodes are fillers as far as heap iteration is concerned.
func (t Tag) IsFiller() bool {
	return t == TagFiller || t == TagFreeSpace
}
