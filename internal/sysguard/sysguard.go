// Package sysguard samples host resources before and during job processing.
// The guard is advisory by default: an unsafe reading is logged and surfaced
// but only blocks admission when enforcement is switched on.
package sysguard

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sys/unix"

	"reelsmith/internal/config"
)

const bytesPerGB = 1024 * 1024 * 1024

// cpuSampleInterval bounds how long a single CPU sample blocks the caller.
const cpuSampleInterval = 250 * time.Millisecond

// Snapshot is one sampling of host resources.
type Snapshot struct {
	CPUPercent float64
	RAMPercent float64
	FreeRAMGB  float64
	DiskFreeGB float64
	SampledAt  time.Time
}

// Report is the guard's verdict over a snapshot. Safe reflects the hard
// thresholds (disk and memory); CPU pressure is advisory and only ever adds
// a reason without flipping Safe.
type Report struct {
	Safe     bool
	Reasons  []string
	Snapshot Snapshot
}

// Guard checks host resources against configured thresholds.
type Guard struct {
	thresholds config.Guard
	diskPath   string
}

// New constructs a guard that measures free disk space at diskPath, normally
// the output root.
func New(thresholds config.Guard, diskPath string) *Guard {
	return &Guard{thresholds: thresholds, diskPath: diskPath}
}

// Enforced reports whether an unsafe reading blocks job admission.
func (g *Guard) Enforced() bool { return g.thresholds.Enforce }

// Check samples the host and evaluates the thresholds. Sampling failures
// degrade to a safe verdict with the failure noted; the guard must never be
// the reason the pipeline stalls.
func (g *Guard) Check(ctx context.Context) Report {
	snapshot, sampleErrs := g.sample(ctx)
	return g.evaluate(snapshot, sampleErrs)
}

func (g *Guard) evaluate(snapshot Snapshot, sampleErrs []error) Report {
	report := Report{Safe: true, Snapshot: snapshot}
	for _, err := range sampleErrs {
		report.Reasons = append(report.Reasons, fmt.Sprintf("sample failed: %v", err))
	}

	if g.thresholds.MinDiskFreeGB > 0 && snapshot.DiskFreeGB > 0 && snapshot.DiskFreeGB < g.thresholds.MinDiskFreeGB {
		report.Safe = false
		report.Reasons = append(report.Reasons,
			fmt.Sprintf("disk free %.1f GB below %.1f GB minimum", snapshot.DiskFreeGB, g.thresholds.MinDiskFreeGB))
	}
	if g.thresholds.MinMemoryFreeGB > 0 && snapshot.FreeRAMGB > 0 && snapshot.FreeRAMGB < g.thresholds.MinMemoryFreeGB {
		report.Safe = false
		report.Reasons = append(report.Reasons,
			fmt.Sprintf("memory free %.1f GB below %.1f GB minimum", snapshot.FreeRAMGB, g.thresholds.MinMemoryFreeGB))
	}
	if g.thresholds.MaxCPUPercent > 0 && snapshot.CPUPercent > g.thresholds.MaxCPUPercent {
		// CPU pressure is transient by nature, so it never flips Safe.
		report.Reasons = append(report.Reasons,
			fmt.Sprintf("cpu at %.0f%% above %.0f%% advisory ceiling", snapshot.CPUPercent, g.thresholds.MaxCPUPercent))
	}
	return report
}

func (g *Guard) sample(ctx context.Context) (Snapshot, []error) {
	snapshot := Snapshot{SampledAt: time.Now().UTC()}
	var errs []error

	if percents, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false); err != nil {
		errs = append(errs, fmt.Errorf("cpu: %w", err))
	} else if len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		snapshot.RAMPercent = vm.UsedPercent
		snapshot.FreeRAMGB = float64(vm.Available) / bytesPerGB
	}

	if free, err := diskFreeGB(g.diskPath); err != nil {
		errs = append(errs, fmt.Errorf("disk: %w", err))
	} else {
		snapshot.DiskFreeGB = free
	}

	return snapshot, errs
}

func diskFreeGB(path string) (float64, error) {
	if path == "" {
		return 0, fmt.Errorf("no disk path configured")
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return float64(stat.Bavail) * float64(stat.Bsize) / bytesPerGB, nil
}
