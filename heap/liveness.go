package heap

import "github.com/joshuapare/heapkit/heap/space"

// Liveness decides which objects survive a collection. Marking is not part
// of this package; callers supply the result.
type Liveness interface {
	IsLive(obj space.Object) bool
}

// LivenessFunc adapts a function to Liveness.
type LivenessFunc func(obj space.Object) bool

// IsLive implements Liveness.
func (f LivenessFunc) IsLive(obj space.Object) bool { return f(obj) }

// LiveSet is a Liveness backed by a set of object addresses.
type LiveSet map[Address]struct{}

// IsLive implements Liveness.
func (s LiveSet) IsLive(obj space.Object) bool {
	_, ok := s[obj.Address]
	return ok
}

// Add marks addr live.
func (s LiveSet) Add(addr Address) { s[addr] = struct{}{} }
