package evac

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

// Address is a heap address.
type Address = space.Address

// EvacuationAllocator copies surviving objects into compaction spaces
// during a collection. Each GC worker owns one; instances are never shared,
// so allocation needs no synchronization beyond page acquisition.
type EvacuationAllocator struct {
	owner   Owner
	primary space.Kind
	spaces  *CompactionSpaces

	allocators [space.NumKinds]*alloc.MainAllocator

	objects   [space.NumKinds]int
	bytes     [space.NumKinds]int
	finalized bool
}

// New creates an evacuation allocator whose Evacuate targets kind. When kind
// is NewSpace, a new-space compaction space is included; the mutator must
// not hold a new-space linear area at that point.
func New(owner Owner, kind space.Kind) *EvacuationAllocator {
	withNew := kind == space.NewSpace
	if withNew && owner.MutatorLinearAreaActive(space.NewSpace) {
		panic("evac: new-space evacuation while the mutator's new-space linear area is live")
	}
	e := &EvacuationAllocator{
		owner:   owner,
		primary: kind,
		spaces:  NewCompactionSpaces(owner, withNew),
	}
	for _, k := range e.spaces.Kinds() {
		e.allocators[k] = alloc.New(e.spaces.Get(k), alloc.InGC)
	}
	if e.allocators[kind] == nil {
		panic(fmt.Sprintf("evac: heap has no %s space to evacuate into", kind))
	}
	return e
}

// Primary returns the kind Evacuate copies into.
func (e *EvacuationAllocator) Primary() space.Kind { return e.primary }

// CompactionSpaces returns the transient spaces.
func (e *EvacuationAllocator) CompactionSpaces() *CompactionSpaces { return e.spaces }

// Allocator returns the InGC allocator for kind, or nil.
func (e *EvacuationAllocator) Allocator(kind space.Kind) *alloc.MainAllocator {
	return e.allocators[kind]
}

// Allocate reserves size bytes in the compaction space of kind. Running out
// of pages is fatal.
func (e *EvacuationAllocator) Allocate(kind space.Kind, size int) Address {
	a := e.allocator(kind)
	if size <= 0 {
		panic(fmt.Sprintf("evac: allocation of %d bytes", size))
	}
	addr, err := a.AllocateRaw(size)
	if err != nil {
		e.fatal(kind, size, err)
	}
	e.objects[kind]++
	e.bytes[kind] += format.Align8(max(size, format.MinObjectSize))
	return addr
}

// Evacuate copies the object [object, object+size) into the primary
// compaction space and returns its new address.
func (e *EvacuationAllocator) Evacuate(object Address, size int) Address {
	return e.EvacuateTo(e.primary, object, size)
}

// EvacuateTo copies the object [object, object+size) into the compaction
// space of kind and returns its new address.
func (e *EvacuationAllocator) EvacuateTo(kind space.Kind, object Address, size int) Address {
	table := e.allocator(kind).Space().Table()
	src, ok := table.Lookup(object)
	if !ok {
		panic(fmt.Sprintf("evac: object %#x is not on any page", uint64(object)))
	}
	size = format.Align8(size)
	dst := e.Allocate(kind, size)
	dstPage, ok := table.Lookup(dst)
	if !ok {
		panic(fmt.Sprintf("evac: fresh copy %#x is not on any page", uint64(dst)))
	}
	copy(dstPage.Mem(dst, size), src.Mem(object, size))
	return dst
}

// FreeLast undoes the most recent allocation in kind's compaction space.
// When object is not the most recent allocation it is overwritten with a
// filler instead; the bytes are never offered to a free list mid-evacuation.
func (e *EvacuationAllocator) FreeLast(kind space.Kind, object Address, size int) {
	a := e.allocator(kind)
	size = format.Align8(size)
	if !a.TryFreeLast(object, size) {
		cs := a.Space()
		p, ok := cs.PageOf(object)
		if !ok {
			panic(fmt.Sprintf("evac: FreeLast of %#x outside the %s compaction space", uint64(object), kind))
		}
		p.WriteFiller(object, size)
		cs.MarkWasted(p, size)
	}
	e.objects[kind]--
	e.bytes[kind] -= size
}

// Finalize flushes every linear area and merges the compaction spaces into
// the permanent spaces. The caller guarantees that nothing allocates into
// the permanent spaces meanwhile. The allocator cannot be used afterwards.
func (e *EvacuationAllocator) Finalize() {
	if e.finalized {
		panic("evac: Finalize called twice")
	}
	e.finalized = true
	for _, k := range e.spaces.Kinds() {
		e.allocators[k].Close()
		e.owner.Space(k).MergeCompactionSpace(e.spaces.Get(k))
		if e.objects[k] > 0 {
			logger.Debug("evacuation finalized", "space", k, "objects", e.objects[k], "bytes", e.bytes[k])
		}
	}
}

// Evacuated returns the objects and bytes allocated in kind's compaction
// space and not undone by FreeLast.
func (e *EvacuationAllocator) Evacuated(kind space.Kind) (objects, bytes int) {
	return e.objects[kind], e.bytes[kind]
}

func (e *EvacuationAllocator) allocator(kind space.Kind) *alloc.MainAllocator {
	if e.finalized {
		panic("evac: allocator used after Finalize")
	}
	if int(kind) >= len(e.allocators) || e.allocators[kind] == nil {
		panic(fmt.Sprintf("evac: no %s compaction space", kind))
	}
	return e.allocators[kind]
}

func (e *EvacuationAllocator) fatal(kind space.Kind, size int, err error) {
	msg := fmt.Sprintf("evacuation: out of memory allocating %d bytes in %s space: %v", size, kind, err)
	logger.Error("fatal out of memory during evacuation", "space", kind, "size", size, "err", err)
	e.owner.HandleOOM(msg)
	panic(&FatalOOMError{Kind: kind, Size: size, Err: err})
}
