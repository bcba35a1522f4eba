package evac

import "github.com/joshuapare/heapkit/heap/space"

// Owner is the heap an evacuation allocator works for.
type Owner interface {
	// Space returns the permanent paged space of kind, or nil when the heap
	// has none (shared space is optional).
	Space(kind space.Kind) *space.PagedSpace

	// MutatorLinearAreaActive reports whether the mutator currently holds a
	// linear allocation area in the space of kind.
	MutatorLinearAreaActive(kind space.Kind) bool

	// HandleOOM reports an unrecoverable allocation failure. It is expected
	// not to return.
	HandleOOM(msg string)
}

// targetKinds are the spaces every evacuation allocator can copy into.
var targetKinds = [...]space.Kind{space.OldSpace, space.CodeSpace, space.SharedSpace, space.TrustedSpace}

// CompactionSpaces holds one transient compaction space per target kind.
// The spaces share configuration and page table with their permanent
// counterparts and become part of them on merge.
type CompactionSpaces struct {
	spaces [space.NumKinds]*space.PagedSpace
}

// NewCompactionSpaces creates compaction spaces for every target kind the
// owner has, plus new space when withNew is set.
func NewCompactionSpaces(owner Owner, withNew bool) *CompactionSpaces {
	c := &CompactionSpaces{}
	for _, k := range targetKinds {
		if perm := owner.Space(k); perm != nil {
			c.spaces[k] = perm.NewCompactionSpace()
		}
	}
	if withNew {
		if perm := owner.Space(space.NewSpace); perm != nil {
			c.spaces[space.NewSpace] = perm.NewCompactionSpace()
		}
	}
	return c
}

// Get returns the compaction space of kind, or nil.
func (c *CompactionSpaces) Get(kind space.Kind) *space.PagedSpace {
	if int(kind) >= len(c.spaces) {
		return nil
	}
	return c.spaces[kind]
}

// Kinds returns the kinds that have a compaction space.
func (c *CompactionSpaces) Kinds() []space.Kind {
	var out []space.Kind
	for k, s := range c.spaces {
		if s != nil {
			out = append(out, space.Kind(k))
		}
	}
	return out
}
