package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Built-in throttle ceilings.
const (
	DefaultMaxMemoryUsed  = uint64(3 * 1024 * 1024 * 1024)
	DefaultMaxCPUPercent  = 80.0
	DefaultMaxTemperature = 80.0
	DefaultCheckInterval  = 30 * time.Second
)

// Notifier delivers the pause announcement. May be a nil-safe no-op.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Throttler blocks until the host can afford another run.
type Throttler struct {
	monitor       Monitor
	notifier      Notifier
	maxMemoryUsed uint64
	maxCPU        float64
	maxTemp       float64
	interval      time.Duration
	logger        *slog.Logger
}

// NewThrottler builds a throttler; zero thresholds fall back to the
// package defaults.
func NewThrottler(monitor Monitor, notifier Notifier, maxMemoryUsed uint64, maxCPU, maxTemp float64, interval time.Duration, logger *slog.Logger) *Throttler {
	if maxMemoryUsed == 0 {
		maxMemoryUsed = DefaultMaxMemoryUsed
	}
	if maxCPU <= 0 {
		maxCPU = DefaultMaxCPUPercent
	}
	if maxTemp <= 0 {
		maxTemp = DefaultMaxTemperature
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Throttler{
		monitor:       monitor,
		notifier:      notifier,
		maxMemoryUsed: maxMemoryUsed,
		maxCPU:        maxCPU,
		maxTemp:       maxTemp,
		interval:      interval,
		logger:        logger.With("component", "throttler"),
	}
}

// Wait blocks until every ceiling clears or ctx is canceled. Sampling
// failures fail open: an unobservable host must not wedge the pipeline.
// The user is notified once per pause, and resume is silent.
func (t *Throttler) Wait(ctx context.Context) error {
	notified := false
	for {
		snapshot, err := t.monitor.Sample(ctx)
		if err != nil {
			t.logger.Warn("Resource sampling failed, proceeding without throttle", "error", err)
			return nil
		}

		reason := t.breach(snapshot)
		if reason == "" {
			if notified {
				t.logger.Info("Resource pressure cleared, resuming intake")
			}
			return nil
		}

		if !notified {
			notified = true
			t.logger.Warn("Pausing run intake", "reason", reason)
			if err := t.notifier.Notify(ctx, "Paused: "+reason); err != nil {
				t.logger.Warn("Failed to send pause notification", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.interval):
		}
	}
}

// breach names the first exceeded ceiling, or "" when the host is fine.
func (t *Throttler) breach(s *ResourceSnapshot) string {
	if s.MemoryUsedBytes > t.maxMemoryUsed {
		return fmt.Sprintf("memory used %.1f GiB above %.1f GiB ceiling",
			float64(s.MemoryUsedBytes)/(1<<30), float64(t.maxMemoryUsed)/(1<<30))
	}
	if s.CPULoadPercent > t.maxCPU {
		return fmt.Sprintf("CPU load %.0f%% above %.0f%% ceiling", s.CPULoadPercent, t.maxCPU)
	}
	if s.TemperatureCelsius != nil && *s.TemperatureCelsius > t.maxTemp {
		return fmt.Sprintf("temperature %.0f°C above %.0f°C ceiling", *s.TemperatureCelsius, t.maxTemp)
	}
	return ""
}
