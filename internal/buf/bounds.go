package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// CheckRange validates that [start, start+size) lies inside [lo, hi).
// Returns the exclusive end of the range.
//
// Used by the page layer to turn a freestanding (address, size) pair into a
// validated range before any byte of the page is touched:
//
//	end, err := buf.CheckRange(int(addr), size, int(p.AreaStart()), int(p.AreaEnd()))
//	if err != nil {
//	    panic(err)
//	}
func CheckRange(start, size, lo, hi int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("negative size: %d", size)
	}
	end, ok := AddOverflowSafe(start, size)
	if !ok {
		return 0, fmt.Errorf("overflow: start=%d + size=%d", start, size)
	}
	if start < lo || end > hi {
		return 0, fmt.Errorf("bounds: [%d, %d) outside [%d, %d)", start, end, lo, hi)
	}
	return end, nil
}
