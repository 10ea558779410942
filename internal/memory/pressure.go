package memory

import (
	"github.com/shirou/gopsutil/v4/mem"

	"ghosthub/internal/logging"
)

// DefaultPressureThreshold is the system memory usage percentage above
// which the cleanup sweep clears caches instead of just pruning them.
const DefaultPressureThreshold = 90.0

// Monitor reports system memory pressure.
type Monitor struct {
	threshold float64

	// usedPercent allows tests to stub out the gopsutil call
	usedPercent func() (float64, error)
}

// NewMonitor creates a Monitor that reports pressure when system memory
// usage meets or exceeds threshold percent. A threshold outside (0, 100]
// falls back to the default.
func NewMonitor(threshold float64) *Monitor {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultPressureThreshold
	}
	return &Monitor{
		threshold:   threshold,
		usedPercent: systemUsedPercent,
	}
}

func systemUsedPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// Threshold returns the configured pressure threshold in percent.
func (m *Monitor) Threshold() float64 {
	return m.threshold
}

// Usage returns the current system memory usage in percent.
func (m *Monitor) Usage() (float64, error) {
	return m.usedPercent()
}

// UnderPressure returns true when system memory usage is at or above the
// threshold. Probe failures are logged and treated as no pressure, since
// acting on a bad reading would clear caches for no reason.
func (m *Monitor) UnderPressure() bool {
	used, err := m.usedPercent()
	if err != nil {
		logging.Warn("memory pressure probe failed: %v", err)
		return false
	}

	if used >= m.threshold {
		logging.Info("Memory pressure detected: %.1f%% used (threshold %.1f%%)", used, m.threshold)
		return true
	}

	logging.Debug("Memory usage: %.1f%% (threshold %.1f%%)", used, m.threshold)
	return false
}
