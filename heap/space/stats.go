package space

// Stats is a point-in-time snapshot of a space's accounting counters.
// Capacity == Allocated + Free + Wasted whenever no sweeper or allocator is
// mid-update.
type Stats struct {
	Kind          Kind
	Pages         int
	Capacity      int
	Allocated     int
	Free          int
	Wasted        int
	Available     int
	SizeOfObjects int
	External      [NumExternalBackingStoreTypes]int
}

// Conserved reports whether the accounting identity holds.
func (s Stats) Conserved() bool {
	return s.Allocated+s.Free+s.Wasted == s.Capacity
}

// add folds o into s. Used to aggregate spaces.
func (s *Stats) add(o Stats) {
	s.Pages += o.Pages
	s.Capacity += o.Capacity
	s.Allocated += o.Allocated
	s.Free += o.Free
	s.Wasted += o.Wasted
	s.Available += o.Available
	s.SizeOfObjects += o.SizeOfObjects
	for i := range s.External {
		s.External[i] += o.External[i]
	}
}

// Sum aggregates snapshots. The Kind of the result is that of the first.
func Sum(all ...Stats) Stats {
	var out Stats
	if len(all) > 0 {
		out.Kind = all[0].Kind
	}
	for _, s := range all {
		out.add(s)
	}
	return out
}
