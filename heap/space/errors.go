package space

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates the page source could not provide a new page.
	ErrOutOfMemory = errors.New("space: out of memory")

	// ErrBadAddress indicates an address that does not belong to the space.
	ErrBadAddress = errors.New("space: address not in space")

	// ErrTooLarge indicates a request that can never fit on a page of this space.
	ErrTooLarge = errors.New("space: request exceeds page area")
)

// panicf aborts on a broken heap invariant. Invariant violations are
// programming errors; continuing would corrupt the heap.
func panicf(format string, args ...any) {
	panic(fmt.Sprintf("heap invariant violated: "+format, args...))
}
