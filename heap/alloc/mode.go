package alloc

// Mode selects the allocation policy. Both modes share one mechanism.
type Mode uint8

const (
	// Regular serves mutator requests. Free-list reuse is tried before
	// bumping, and exhaustion is returned to the caller, who may collect
	// garbage and retry.
	Regular Mode = iota

	// InGC serves evacuation during a collection. It bumps first and never
	// triggers a collection; exhaustion acquires a page or fails fatally
	// one level up.
	InGC
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Regular:
		return "regular"
	case InGC:
		return "gc"
	default:
		return "unknown"
	}
}
