package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/joshuapare/heapkit/heap"
)

// resetFlags restores every global flag to a small, fast configuration.
func resetFlags(t *testing.T) {
	t.Helper()
	verbose, quiet, jsonOut, useMmap = false, false, false, false
	pageSize = 8192 + 32
	maxPages = 0
	wl = workload{Objects: 2000, MinSize: 16, MaxSize: 256, FreeRatio: 0.3, Seed: 42, Spaces: "old"}
	simulateFreeList = false
	compactSpace, compactLiveRatio, compactThreshold, compactWorkers = "old", 0.3, 0.5, 2
	sweepSpace, sweepLiveRatio, sweepWorkers, sweepRelease = "old", 0.5, 2, false
	t.Cleanup(func() { pageSize = heap.DefaultConfig.PageSize })
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	// Save original stdout
	origStdout := os.Stdout

	// Create a pipe to capture output
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	// Redirect stdout to pipe
	os.Stdout = w

	// Drain concurrently so large reports cannot fill the pipe
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	// Run function
	fnErr := fn()

	// Close write end and restore stdout
	w.Close()
	os.Stdout = origStdout
	<-done

	return buf.String(), fnErr
}

// decodeJSON unmarshals output into v, failing the test on error
func decodeJSON(t *testing.T, output string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// findSpace returns the report row for name
func findSpace(t *testing.T, rows []spaceReport, name string) spaceReport {
	t.Helper()
	for _, r := range rows {
		if r.Space == name {
			return r
		}
	}
	t.Fatalf("no %s space in report", name)
	return spaceReport{}
}
