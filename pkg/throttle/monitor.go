// Package throttle pauses run intake while the host is short on memory,
// CPU headroom, or thermal margin. Video work is bursty and heavy; starting
// a run on a starved box only produces a failed run.
package throttle

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"
)

// ResourceSnapshot is one sample of host resource pressure.
type ResourceSnapshot struct {
	MemoryUsedBytes  uint64
	MemoryTotalBytes uint64

	// CPULoadPercent is the 1-minute load average normalized by core
	// count, scaled to 0-100.
	CPULoadPercent float64

	// TemperatureCelsius is the hottest sensor reading, nil when the host
	// exposes no thermal sensors.
	TemperatureCelsius *float64
}

// Monitor samples host resources.
type Monitor interface {
	Sample(ctx context.Context) (*ResourceSnapshot, error)
}

// SystemMonitor reads live host metrics.
type SystemMonitor struct{}

// NewSystemMonitor creates a monitor backed by the running host.
func NewSystemMonitor() *SystemMonitor {
	return &SystemMonitor{}
}

// Sample reads memory, load, and temperature in one pass. A missing
// temperature sensor is not an error; a failed memory or load read is.
func (m *SystemMonitor) Sample(ctx context.Context) (*ResourceSnapshot, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &ResourceSnapshot{
		MemoryUsedBytes:  vm.Used,
		MemoryTotalBytes: vm.Total,
		CPULoadPercent:   avg.Load1 / float64(runtime.NumCPU()) * 100,
	}

	if temps, err := sensors.TemperaturesWithContext(ctx); err == nil {
		for _, t := range temps {
			if t.Temperature <= 0 {
				continue
			}
			if snapshot.TemperatureCelsius == nil || t.Temperature > *snapshot.TemperatureCelsius {
				v := t.Temperature
				snapshot.TemperatureCelsius = &v
			}
		}
	}

	return snapshot, nil
}
