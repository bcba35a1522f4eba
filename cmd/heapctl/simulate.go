package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/printer"
)

var simulateFreeList bool

func init() {
	cmd := newSimulateCmd()
	addWorkloadFlags(cmd)
	cmd.Flags().BoolVar(&simulateFreeList, "free-list", false, "Show free-list categories per space")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Run an allocation workload and report space accounting",
		Long: `The simulate command allocates random-sized objects, freeing a share of
them as it goes, and prints the resulting space statistics.

Example:
  heapctl simulate --objects 50000 --min-size 16 --max-size 256
  heapctl simulate --spaces old,code --free-ratio 0.5 --json
  heapctl simulate --page-size 65536 --mmap --free-list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
}

type simulateReport struct {
	Workload workload       `json:"workload"`
	Result   workloadResult `json:"result"`
	Spaces   []spaceReport  `json:"spaces"`
}

func runSimulate() error {
	h, err := newHeap()
	if err != nil {
		return err
	}
	defer h.Close()

	res, err := wl.run(h)
	if err != nil {
		return err
	}
	if err := h.Verify(); err != nil {
		return fmt.Errorf("heap verification failed: %w", err)
	}

	stats := h.Stats()
	if jsonOut {
		return printJSON(simulateReport{Workload: wl, Result: res, Spaces: reportSpaces(stats)})
	}
	if quiet {
		return nil
	}

	pr := printer.New(os.Stdout, printer.Options{})
	printInfo("Workload: %s allocations, %s frees, %s failed, %s live\n\n",
		pr.Count(res.Allocated), pr.Count(res.Freed), pr.Count(res.Failed), pr.Bytes(res.Bytes))
	if err := pr.Spaces(stats); err != nil {
		return err
	}
	if simulateFreeList {
		kinds, _ := wl.kinds()
		for _, k := range kinds {
			printInfo("\nFree list (%s):\n", k)
			if err := pr.FreeList(h.Space(k).FreeListStats()); err != nil {
				return err
			}
		}
	}
	return nil
}
