//go:build !unix

package pagesrc

// Mmap falls back to Go-heap chunks where anonymous mappings are unavailable.
type Mmap struct {
	GoHeap
}

// NewMmap creates a fallback Mmap source.
func NewMmap(limit int) *Mmap {
	return &Mmap{GoHeap: GoHeap{res: newReservation(limit)}}
}
