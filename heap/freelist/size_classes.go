package freelist

import (
	"fmt"
	"math"
	"sort"

	"github.com/joshuapare/heapkit/internal/format"
)

// MaxCategories is the largest number of categories a table may define. The
// non-empty category set is kept in a single uint64.
const MaxCategories = 64

// SizeClassConfig defines the free-list category strategy.
// Category boundaries are a tuning knob; correctness does not depend on them.
type SizeClassConfig struct {
	// Name for this configuration (for reports and benchmarks)
	Name string

	// MinBlockSize is the smallest range worth linking. Anything smaller is
	// reported as waste and turned into a filler.
	MinBlockSize int

	// Small category settings (linear increments)
	SmallMax       int // Upper end of the linear section
	SmallIncrement int // Width of each small category

	// Medium categories grow geometrically up to MediumMax; everything at or
	// above MediumMax lands in the final "huge" category.
	MediumMax    int
	GrowthFactor float64
}

// Predefined configurations.
var (
	// ConfigFine: many small categories, tight reuse for object-heavy workloads.
	// 24-256 step 8 (29 categories) + 256-16K x1.5 (~11) + huge.
	ConfigFine = SizeClassConfig{
		Name:           "Fine",
		MinBlockSize:   24,
		SmallMax:       256,
		SmallIncrement: 8,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// ConfigBalanced: good balance between per-page category overhead and fit quality.
	// 24-536 step 32 (16 categories) + 536-32K x2 (~6) + huge.
	ConfigBalanced = SizeClassConfig{
		Name:           "Balanced",
		MinBlockSize:   24,
		SmallMax:       536,
		SmallIncrement: 32,
		MediumMax:      32768,
		GrowthFactor:   2.0,
	}

	// ConfigCoarse: few categories, cheapest bookkeeping, loosest fit.
	// 24-64K x2 (~12) + huge.
	ConfigCoarse = SizeClassConfig{
		Name:           "Coarse",
		MinBlockSize:   24,
		SmallMax:       24,
		SmallIncrement: 8,
		MediumMax:      65536,
		GrowthFactor:   2.0,
	}

	// DefaultConfig is used when none is specified.
	DefaultConfig = ConfigBalanced
)

// Validate checks that the configuration yields a usable table.
func (c SizeClassConfig) Validate() error {
	if c.MinBlockSize < format.FreeSpaceNodeSize || !format.IsAligned8(c.MinBlockSize) {
		return fmt.Errorf("freelist: MinBlockSize %d must be 8-aligned and >= %d",
			c.MinBlockSize, format.FreeSpaceNodeSize)
	}
	if c.SmallIncrement <= 0 || !format.IsAligned8(c.SmallIncrement) {
		return fmt.Errorf("freelist: SmallIncrement %d must be a positive multiple of 8", c.SmallIncrement)
	}
	if c.SmallMax < c.MinBlockSize || c.MediumMax < c.SmallMax {
		return fmt.Errorf("freelist: need MinBlockSize <= SmallMax <= MediumMax (%d, %d, %d)",
			c.MinBlockSize, c.SmallMax, c.MediumMax)
	}
	if c.GrowthFactor <= 1 {
		return fmt.Errorf("freelist: GrowthFactor %.2f must exceed 1", c.GrowthFactor)
	}
	if n := len(newSizeClassTable(c).lower); n > MaxCategories {
		return fmt.Errorf("freelist: %s yields %d categories (max %d)", c.Name, n, MaxCategories)
	}
	return nil
}

// sizeClassTable holds the computed category lower bounds. Category t holds
// ranges with lower[t] <= size < lower[t+1]; the last category is unbounded.
type sizeClassTable struct {
	config SizeClassConfig
	lower  []int
}

// newSizeClassTable computes category boundaries from config.
func newSizeClassTable(config SizeClassConfig) *sizeClassTable {
	table := &sizeClassTable{
		config: config,
		lower:  make([]int, 0, MaxCategories),
	}

	// Phase 1: small categories (linear increments)
	size := config.MinBlockSize
	for ; size < config.SmallMax; size += config.SmallIncrement {
		table.lower = append(table.lower, size)
	}

	// Phase 2: medium categories (geometric growth), rounded to 8 bytes
	for size < config.MediumMax {
		table.lower = append(table.lower, size)
		next := format.Align8(int(math.Ceil(float64(size) * config.GrowthFactor)))
		if next <= size {
			next = size + format.ObjectAlignment // Ensure progress
		}
		size = next
	}

	// Phase 3: huge category
	table.lower = append(table.lower, max(size, config.MediumMax))
	return table
}

// categoryOf returns the category whose range contains size.
// size must be >= MinBlockSize.
func (t *sizeClassTable) categoryOf(size int) int {
	// First category whose lower bound exceeds size, minus one.
	return sort.SearchInts(t.lower, size+1) - 1
}

// numCategories returns the number of categories including the huge one.
func (t *sizeClassTable) numCategories() int {
	return len(t.lower)
}

// huge returns the index of the unbounded category.
func (t *sizeClassTable) huge() int {
	return len(t.lower) - 1
}

// String returns the configuration name.
func (t *sizeClassTable) String() string {
	return t.config.Name
}
