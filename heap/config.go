package heap

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/freelist"
	"github.com/joshuapare/heapkit/heap/space"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

// Config controls heap construction. Pass nil to New for DefaultConfig.
type Config struct {
	// PageSize is the chunk size of regular pages, page header included.
	PageSize int

	// MaxRegularObjectSize is the largest request served by a paged space;
	// larger requests go to the large object space. Zero selects half the
	// page area.
	MaxRegularObjectSize int

	// FreeList selects the free-list size classes. The zero value selects
	// freelist.DefaultConfig.
	FreeList freelist.SizeClassConfig

	// PageSource supplies page memory. Nil selects a pagesrc.GoHeap limited
	// to MaxPages chunks.
	PageSource pagesrc.Source

	// MaxPages caps the default page source. Zero means unlimited.
	MaxPages int

	// Shared creates a shared space.
	Shared bool

	// Oracle describes ranges for the page iterator. Nil selects the
	// allocator's own header format.
	Oracle space.Oracle

	// OOMHandler is called with a diagnostic on unrecoverable allocation
	// failure during evacuation. It should not return; if it does, the
	// evacuating goroutine panics with *evac.FatalOOMError.
	OOMHandler func(msg string)

	// OnAllocationFailure is called when a mutator allocation finds no page.
	// It typically runs a collection. Returning true retries the allocation
	// once.
	OnAllocationFailure func(h *Heap, kind space.Kind, size int) bool
}

// DefaultConfig is used when New receives nil.
var DefaultConfig = Config{
	PageSize: space.DefaultPageSize,
	FreeList: freelist.DefaultConfig,
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.PageSize < format.PageHeaderSize+c.FreeList.MinBlockSize {
		return fmt.Errorf("heap: page size %d cannot hold a page header and one %d-byte block",
			c.PageSize, c.FreeList.MinBlockSize)
	}
	if c.MaxRegularObjectSize < format.MinObjectSize || c.MaxRegularObjectSize > c.PageSize-format.PageHeaderSize {
		return fmt.Errorf("heap: max regular object size %d outside [%d, %d]",
			c.MaxRegularObjectSize, format.MinObjectSize, c.PageSize-format.PageHeaderSize)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("heap: negative page limit %d", c.MaxPages)
	}
	if err := c.FreeList.Validate(); err != nil {
		return fmt.Errorf("heap: %w", err)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.PageSize == 0 {
		c.PageSize = DefaultConfig.PageSize
	}
	if c.FreeList == (freelist.SizeClassConfig{}) {
		c.FreeList = freelist.DefaultConfig
	}
	if c.MaxRegularObjectSize == 0 {
		c.MaxRegularObjectSize = (c.PageSize - format.PageHeaderSize) / 2 &^ format.ObjectAlignmentMask
	}
	return c
}
