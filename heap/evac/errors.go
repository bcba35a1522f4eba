package evac

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/space"
)

// FatalOOMError is the panic value raised when a compaction space cannot
// get a page and the owner's OOM handler returned. Evacuation has no retry
// point, so this is never returned as an error.
type FatalOOMError struct {
	Kind space.Kind
	Size int
	Err  error
}

func (e *FatalOOMError) Error() string {
	return fmt.Sprintf("evac: fatal out of memory: %d bytes in %s compaction space: %v", e.Size, e.Kind, e.Err)
}

func (e *FatalOOMError) Unwrap() error { return e.Err }
