package space

import "github.com/joshuapare/heapkit/internal/format"

// Oracle describes the range starting at the first byte of mem. mem extends
// to the end of the page area. It is the liveness/size collaborator of the
// page iterator: the allocator never interprets object contents itself.
type Oracle interface {
	Describe(mem []byte) (size int, filler bool, err error)
}

// HeaderOracle reads the range header written by the allocator.
type HeaderOracle struct{}

// Describe implements Oracle.
func (HeaderOracle) Describe(mem []byte) (int, bool, error) {
	r, err := format.DecodeRange(mem)
	if err != nil {
		return 0, false, err
	}
	return r.Size, r.Tag.IsFiller(), nil
}

// DefaultOracle is used by spaces created without an explicit oracle.
var DefaultOracle Oracle = HeaderOracle{}
