// Package printer renders heap statistics for people.
//
// Byte quantities are shown in IEC units via go-humanize, counts are grouped
// by the locale's thousands separator via golang.org/x/text/message.
package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/heap/freelist"
	"github.com/joshuapare/heapkit/heap/space"
)

// Options controls rendering.
type Options struct {
	// Lang selects number formatting. Zero value means English.
	Lang language.Tag

	// Exact prints raw byte counts next to the IEC size.
	Exact bool
}

// Printer formats statistics onto a writer.
type Printer struct {
	w     io.Writer
	p     *message.Printer
	exact bool
}

// New returns a Printer writing to w.
func New(w io.Writer, opts Options) *Printer {
	lang := opts.Lang
	if lang == language.Und {
		lang = language.English
	}
	return &Printer{w: w, p: message.NewPrinter(lang), exact: opts.Exact}
}

// Bytes formats n as an IEC size, for example "12 KiB".
func (pr *Printer) Bytes(n int) string {
	if n < 0 {
		return "-" + pr.Bytes(-n)
	}
	s := humanize.IBytes(uint64(n))
	if pr.exact {
		s = pr.p.Sprintf("%s (%d)", s, n)
	}
	return s
}

// Count formats n with grouping separators.
func (pr *Printer) Count(n int) string {
	return pr.p.Sprintf("%d", n)
}

// Percent returns part as a percentage of whole.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// Spaces writes one row per space and a total row.
func (pr *Printer) Spaces(stats []space.Stats) error {
	tw := tabwriter.NewWriter(pr.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "space\tpages\tcapacity\tallocated\tfree\twasted\tobjects\tused\t")
	row := func(name string, s space.Stats) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%.1f%%\t\n",
			name, pr.Count(s.Pages), pr.Bytes(s.Capacity), pr.Bytes(s.Allocated),
			pr.Bytes(s.Free), pr.Bytes(s.Wasted), pr.Bytes(s.SizeOfObjects),
			Percent(s.Allocated, s.Capacity))
	}
	for _, s := range stats {
		row(s.Kind.String(), s)
	}
	if len(stats) > 1 {
		row("total", space.Sum(stats...))
	}
	return tw.Flush()
}

// FreeList writes the non-empty categories of a free list.
func (pr *Printer) FreeList(cats []freelist.CategoryStat) error {
	tw := tabwriter.NewWriter(pr.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "category\t>=\tpages\tnodes\tavailable\t")
	for _, c := range cats {
		if c.Nodes == 0 {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", c.Type, pr.Bytes(c.LowerBound),
			pr.Count(c.Pages), pr.Count(c.Nodes), pr.Bytes(c.Available))
	}
	return tw.Flush()
}
