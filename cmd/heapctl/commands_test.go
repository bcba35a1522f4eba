package main

import (
	"context"
	"testing"
)

func TestSimulateCommand(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "default workload",
			wantContain: []string{"Workload:", "space", "old", "total"},
		},
		{
			name: "two spaces with free list",
			setup: func() {
				wl.Spaces = "old,code"
				simulateFreeList = true
			},
			wantContain: []string{"code", "Free list (old)", "Free list (code)", "category"},
		},
		{
			name:    "unknown space",
			setup:   func() { wl.Spaces = "nursery" },
			wantErr: true,
		},
		{
			name:    "inverted size range",
			setup:   func() { wl.MinSize, wl.MaxSize = 64, 32 },
			wantErr: true,
		},
		{
			name:    "page too small",
			setup:   func() { pageSize = 40 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			if tt.setup != nil {
				tt.setup()
			}
			output, err := captureOutput(t, runSimulate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("runSimulate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				assertContains(t, output, tt.wantContain)
			}
		})
	}
}

func TestSimulateCommand_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true

	output, err := captureOutput(t, runSimulate)
	if err != nil {
		t.Fatalf("runSimulate() error = %v", err)
	}
	var report struct {
		Result struct {
			Allocated int `json:"allocated"`
			Freed     int `json:"freed"`
		} `json:"result"`
		Spaces []spaceReport `json:"spaces"`
	}
	decodeJSON(t, output, &report)

	if report.Result.Allocated != wl.Objects {
		t.Errorf("allocated = %d, want %d", report.Result.Allocated, wl.Objects)
	}
	if report.Result.Freed == 0 {
		t.Error("expected some frees with free ratio 0.3")
	}
	for _, s := range report.Spaces {
		if s.Allocated+s.Free+s.Wasted != s.Capacity {
			t.Errorf("%s space not conserved: %+v", s.Space, s)
		}
	}
}

func TestSimulateCommand_Quiet(t *testing.T) {
	resetFlags(t)
	quiet = true
	output, err := captureOutput(t, runSimulate)
	if err != nil {
		t.Fatalf("runSimulate() error = %v", err)
	}
	if output != "" {
		t.Errorf("quiet mode printed %q", output)
	}
}

func TestCompactCommand(t *testing.T) {
	resetFlags(t)
	wl.FreeRatio = 0
	jsonOut = true

	output, err := captureOutput(t, func() error { return runCompact(context.Background()) })
	if err != nil {
		t.Fatalf("runCompact() error = %v", err)
	}
	var report compactReport
	decodeJSON(t, output, &report)

	if report.Pages == 0 {
		t.Fatal("expected sparse pages with live ratio 0.3")
	}
	if report.Objects == 0 || report.Bytes == 0 {
		t.Errorf("nothing moved: %+v", report)
	}
	if got, want := findSpace(t, report.After, "old").Pages, findSpace(t, report.Before, "old").Pages; got >= want {
		t.Errorf("old space pages after compaction = %d, want fewer than %d", got, want)
	}
}

func TestCompactCommand_Text(t *testing.T) {
	resetFlags(t)
	output, err := captureOutput(t, func() error { return runCompact(context.Background()) })
	if err != nil {
		t.Fatalf("runCompact() error = %v", err)
	}
	assertContains(t, output, []string{"Evacuated", "Before:", "After:"})
}

func TestCompactCommand_BadSpace(t *testing.T) {
	resetFlags(t)
	compactSpace = "lo"
	if _, err := captureOutput(t, func() error { return runCompact(context.Background()) }); err == nil {
		t.Fatal("expected error for large object space")
	}
}

func TestSweepCommand(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	sweepRelease = true
	sweepLiveRatio = 0

	output, err := captureOutput(t, func() error { return runSweep(context.Background()) })
	if err != nil {
		t.Fatalf("runSweep() error = %v", err)
	}
	var report sweepReport
	decodeJSON(t, output, &report)

	if report.Freed == 0 {
		t.Error("sweeping with no live objects freed nothing")
	}
	if report.Released == 0 {
		t.Error("expected empty pages to be released")
	}
	if old := findSpace(t, report.After, "old"); old.Allocated != 0 {
		t.Errorf("old space still allocated %d bytes", old.Allocated)
	}
}

func TestSweepCommand_Cancelled(t *testing.T) {
	resetFlags(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := captureOutput(t, func() error { return runSweep(ctx) }); err == nil {
		t.Fatal("expected error from cancelled sweep")
	}
}

func TestVersionCommand(t *testing.T) {
	output, err := captureOutput(t, func() error {
		versionCmd.Run(versionCmd, nil)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, output, []string{"heapctl dev", "commit: none"})
}
