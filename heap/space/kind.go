package space

import "github.com/joshuapare/heapkit/internal/format"

// Address is a byte offset into the managed heap.
type Address = format.Address

// Kind identifies the allocation purpose of a space. It decides executability
// and barrier policy elsewhere; allocator mechanics are the same for all
// paged kinds.
type Kind uint8

const (
	NewSpace Kind = iota
	OldSpace
	CodeSpace
	SharedSpace
	TrustedSpace
	LargeObjectSpace

	// NumKinds is the number of space kinds.
	NumKinds = int(LargeObjectSpace) + 1
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case NewSpace:
		return "new"
	case OldSpace:
		return "old"
	case CodeSpace:
		return "code"
	case SharedSpace:
		return "shared"
	case TrustedSpace:
		return "trusted"
	case LargeObjectSpace:
		return "lo"
	default:
		return "unknown"
	}
}

// Executable reports whether pages of this kind hold machine code.
func (k Kind) Executable() bool {
	return k == CodeSpace
}

// IsPaged reports whether the kind is served by a PagedSpace.
func (k Kind) IsPaged() bool {
	return k < LargeObjectSpace
}

// ParseKind maps a name produced by String back to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k := range Kind(NumKinds) {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// ExternalBackingStoreType identifies memory held outside the heap on behalf
// of heap objects.
type ExternalBackingStoreType uint8

const (
	ExternalArrayBuffer ExternalBackingStoreType = iota
	ExternalString

	// NumExternalBackingStoreTypes is the number of external store types.
	NumExternalBackingStoreTypes = int(ExternalString) + 1
)
