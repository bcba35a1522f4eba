package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/internal/pagesrc"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	pageSize int
	useMmap  bool
	maxPages int
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Drive synthetic workloads against a paged heap",
	Long: `heapctl builds a paged heap, runs a synthetic allocation workload on it
and reports space accounting. It can also evacuate fragmented pages and run
the parallel sweeper, which makes it a quick way to watch free-list reuse,
compaction and sweeping on realistic object size mixes.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{Enabled: verbose, Level: slog.LevelDebug, JSON: jsonOut})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().IntVar(&pageSize, "page-size", heap.DefaultConfig.PageSize, "Page size in bytes")
	rootCmd.PersistentFlags().BoolVar(&useMmap, "mmap", false, "Back pages with anonymous mappings")
	rootCmd.PersistentFlags().IntVar(&maxPages, "max-pages", 0, "Page limit (0 = unlimited)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newHeap builds a heap from the global flags.
func newHeap() (*heap.Heap, error) {
	cfg := heap.DefaultConfig
	cfg.PageSize = pageSize
	cfg.MaxRegularObjectSize = 0
	cfg.MaxPages = maxPages
	if useMmap {
		cfg.PageSource = pagesrc.NewMmap(maxPages)
	}
	h, err := heap.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create heap: %w", err)
	}
	printVerbose("Heap: page size %d, max regular object %d\n", cfg.PageSize, h.Config().MaxRegularObjectSize)
	return h, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
