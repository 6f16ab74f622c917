// Package resources provides process memory monitoring and reclamation
package resources

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/types"
)

// A single GC pass may not release cyclic or deferred-free memory back
// to the OS, so reclamation runs several passes.
const reclaimPasses = 3

const bytesPerMB = 1024 * 1024

// Monitor samples process and system memory. Sampling is stateless and
// safe for concurrent use.
type Monitor struct {
	logger logger.Logger
	pid    int32
}

// NewMonitor creates a monitor for the current process
func NewMonitor(log logger.Logger) *Monitor {
	return &Monitor{
		logger: log,
		pid:    int32(os.Getpid()),
	}
}

// Sample reads current process and system memory. It never fails: on a
// read error it returns a sample flagged as unavailable.
func (m *Monitor) Sample() types.ResourceSample {
	sample := types.ResourceSample{Taken: time.Now()}

	proc, err := process.NewProcess(m.pid)
	if err != nil {
		sample.Unavailable = true
		return sample
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil || memInfo == nil {
		sample.Unavailable = true
		return sample
	}

	sample.ResidentMB = float64(memInfo.RSS) / bytesPerMB
	sample.VirtualMB = float64(memInfo.VMS) / bytesPerMB

	sysMem, err := mem.VirtualMemory()
	if err != nil || sysMem == nil || sysMem.Total == 0 {
		// Process numbers are still usable without the system view
		return sample
	}

	sample.SystemAvailableMB = float64(sysMem.Available) / bytesPerMB
	sample.PercentOfSystem = float64(memInfo.RSS) / float64(sysMem.Total) * 100

	return sample
}

// WithinLimit reports whether resident memory is at or below the
// configured ceiling. Pure predicate; the system-available figure does
// not influence the verdict.
func (m *Monitor) WithinLimit(sample types.ResourceSample, ceilingMB int) bool {
	return sample.ResidentMB <= float64(ceilingMB)
}

// Reclaim requests garbage collection and returns freed pages to the
// OS. Best-effort: it never fails the caller.
func (m *Monitor) Reclaim() {
	before := m.Sample()

	for i := 0; i < reclaimPasses; i++ {
		runtime.GC()
		debug.FreeOSMemory()
	}

	after := m.Sample()
	m.logger.Info("Memory reclamation pass complete",
		logger.WithField("before_mb", fmt.Sprintf("%.1f", before.ResidentMB)),
		logger.WithField("after_mb", fmt.Sprintf("%.1f", after.ResidentMB)))
}

// MonitoredSection samples on entry, runs body, and samples on exit
// regardless of how body exits, reporting the resident-memory delta.
// A failure inside body must not suppress the exit accounting.
func (m *Monitor) MonitoredSection(label string, body func() error) error {
	entry := m.Sample()
	m.logger.Debug("Entering monitored section",
		logger.WithField("section", label),
		logger.WithField("resident_mb", fmt.Sprintf("%.1f", entry.ResidentMB)))

	defer func() {
		exit := m.Sample()
		m.logger.Info("Monitored section complete",
			logger.WithField("section", label),
			logger.WithField("entry_mb", fmt.Sprintf("%.1f", entry.ResidentMB)),
			logger.WithField("exit_mb", fmt.Sprintf("%.1f", exit.ResidentMB)),
			logger.WithField("delta_mb", fmt.Sprintf("%+.1f", exit.ResidentMB-entry.ResidentMB)))
	}()

	return body()
}

// DiskFreeMB returns the free space of the filesystem containing path
func (m *Monitor) DiskFreeMB(path string) (float64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage for %s: %w", path, err)
	}
	return float64(usage.Free) / bytesPerMB, nil
}
