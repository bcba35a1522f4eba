package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/format"
)

// workload describes a synthetic allocation sequence.
type workload struct {
	Objects   int     `json:"objects"`
	MinSize   int     `json:"min_size"`
	MaxSize   int     `json:"max_size"`
	FreeRatio float64 `json:"free_ratio"`
	Seed      int64   `json:"seed"`
	Spaces    string  `json:"spaces"`
}

var wl = workload{
	Objects:   10000,
	MinSize:   16,
	MaxSize:   512,
	FreeRatio: 0.3,
	Seed:      42,
	Spaces:    "old",
}

// addWorkloadFlags registers the workload flags on cmd.
func addWorkloadFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&wl.Objects, "objects", wl.Objects, "Number of allocations")
	cmd.Flags().IntVar(&wl.MinSize, "min-size", wl.MinSize, "Smallest object size in bytes")
	cmd.Flags().IntVar(&wl.MaxSize, "max-size", wl.MaxSize, "Largest object size in bytes")
	cmd.Flags().Float64Var(&wl.FreeRatio, "free-ratio", wl.FreeRatio, "Probability that an allocation is followed by a free")
	cmd.Flags().Int64Var(&wl.Seed, "seed", wl.Seed, "Random seed")
	cmd.Flags().StringVar(&wl.Spaces, "spaces", wl.Spaces, "Comma-separated spaces to allocate in (new, old, code, trusted)")
}

type object struct {
	addr heap.Address
	kind heap.Kind
	size int
}

// workloadResult is what a workload leaves behind.
type workloadResult struct {
	Allocated int `json:"allocated"`
	Freed     int `json:"freed"`
	Failed    int `json:"failed"`
	Bytes     int `json:"bytes"`

	survivors []object
}

func (w workload) kinds() ([]heap.Kind, error) {
	var out []heap.Kind
	for name := range strings.SplitSeq(w.Spaces, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		k, ok := space.ParseKind(name)
		if !ok || !k.IsPaged() || k == heap.SharedSpace {
			return nil, fmt.Errorf("unknown space %q", name)
		}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no spaces selected")
	}
	return out, nil
}

func (w workload) validate() error {
	if w.Objects < 0 {
		return fmt.Errorf("objects must not be negative")
	}
	if w.MinSize <= 0 || w.MaxSize < w.MinSize {
		return fmt.Errorf("invalid size range [%d, %d]", w.MinSize, w.MaxSize)
	}
	if w.FreeRatio < 0 || w.FreeRatio > 1 {
		return fmt.Errorf("free ratio %.2f outside [0, 1]", w.FreeRatio)
	}
	return nil
}

// run allocates w.Objects objects, freeing a random earlier object after
// each allocation with probability FreeRatio. Out-of-memory failures are
// counted, not fatal.
func (w workload) run(h *heap.Heap) (workloadResult, error) {
	var res workloadResult
	if err := w.validate(); err != nil {
		return res, err
	}
	kinds, err := w.kinds()
	if err != nil {
		return res, err
	}
	rng := rand.New(rand.NewSource(w.Seed))
	span := w.MaxSize - w.MinSize + 1

	for range w.Objects {
		kind := kinds[rng.Intn(len(kinds))]
		size := w.MinSize + rng.Intn(span)
		addr, err := h.Allocate(kind, size)
		if err != nil {
			res.Failed++
			printVerbose("allocation of %d bytes in %s failed: %v\n", size, kind, err)
			continue
		}
		res.Allocated++
		res.survivors = append(res.survivors, object{addr, kind, format.Align8(size)})

		if len(res.survivors) > 0 && rng.Float64() < w.FreeRatio {
			i := rng.Intn(len(res.survivors))
			o := res.survivors[i]
			h.Free(o.kind, o.addr, o.size)
			res.survivors[i] = res.survivors[len(res.survivors)-1]
			res.survivors = res.survivors[:len(res.survivors)-1]
			res.Freed++
		}
	}
	for _, o := range res.survivors {
		res.Bytes += o.size
	}
	return res, nil
}

// pickLive returns a live set holding each survivor of kind with
// probability ratio.
func pickLive(survivors []object, kind heap.Kind, ratio float64, seed int64) heap.LiveSet {
	rng := rand.New(rand.NewSource(seed))
	live := heap.LiveSet{}
	for _, o := range survivors {
		if o.kind == kind && rng.Float64() < ratio {
			live.Add(o.addr)
		}
	}
	return live
}

type spaceReport struct {
	Space         string `json:"space"`
	Pages         int    `json:"pages"`
	Capacity      int    `json:"capacity"`
	Allocated     int    `json:"allocated"`
	Free          int    `json:"free"`
	Wasted        int    `json:"wasted"`
	Available     int    `json:"available"`
	SizeOfObjects int    `json:"size_of_objects"`
}

func reportSpaces(stats []space.Stats) []spaceReport {
	out := make([]spaceReport, 0, len(stats))
	for _, s := range stats {
		out = append(out, spaceReport{
			Space:         s.Kind.String(),
			Pages:         s.Pages,
			Capacity:      s.Capacity,
			Allocated:     s.Allocated,
			Free:          s.Free,
			Wasted:        s.Wasted,
			Available:     s.Available,
			SizeOfObjects: s.SizeOfObjects,
		})
	}
	return out
}
