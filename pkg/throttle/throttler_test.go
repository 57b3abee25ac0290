package throttle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedMonitor struct {
	mu        sync.Mutex
	snapshots []*ResourceSnapshot
	err       error
	calls     int
}

func (m *scriptedMonitor) Sample(context.Context) (*ResourceSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.snapshots) == 0 {
		return healthySnapshot(), nil
	}
	next := m.snapshots[0]
	if len(m.snapshots) > 1 {
		m.snapshots = m.snapshots[1:]
	}
	return next, nil
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *captureNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func healthySnapshot() *ResourceSnapshot {
	return &ResourceSnapshot{
		MemoryUsedBytes:  1 << 30,
		MemoryTotalBytes: 16 << 30,
		CPULoadPercent:   25,
	}
}

func newTestThrottler(monitor Monitor, notifier Notifier) *Throttler {
	return NewThrottler(monitor, notifier, 3<<30, 80, 80, 5*time.Millisecond, slog.Default())
}

func TestThrottler_HealthyHostPassesImmediately(t *testing.T) {
	monitor := &scriptedMonitor{}
	notifier := &captureNotifier{}

	err := newTestThrottler(monitor, notifier).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, monitor.calls)
	assert.Empty(t, notifier.all())
}

func TestThrottler_HighMemoryUsePausesUntilCleared(t *testing.T) {
	pressured := healthySnapshot()
	pressured.MemoryUsedBytes = 8 << 30
	monitor := &scriptedMonitor{snapshots: []*ResourceSnapshot{pressured, pressured, healthySnapshot()}}
	notifier := &captureNotifier{}

	err := newTestThrottler(monitor, notifier).Wait(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, monitor.calls, 3)
	messages := notifier.all()
	require.Len(t, messages, 1, "pause is announced exactly once")
	assert.Contains(t, messages[0], "Paused: ")
	assert.Contains(t, messages[0], "memory used")
}

func TestThrottler_UsageAtCeilingPasses(t *testing.T) {
	// The ceiling itself is affordable; only exceeding it pauses.
	atLimit := healthySnapshot()
	atLimit.MemoryUsedBytes = 3 << 30
	monitor := &scriptedMonitor{snapshots: []*ResourceSnapshot{atLimit}}
	notifier := &captureNotifier{}

	err := newTestThrottler(monitor, notifier).Wait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notifier.all())
}

func TestThrottler_HighCPUPauses(t *testing.T) {
	hot := healthySnapshot()
	hot.CPULoadPercent = 95
	monitor := &scriptedMonitor{snapshots: []*ResourceSnapshot{hot, healthySnapshot()}}
	notifier := &captureNotifier{}

	err := newTestThrottler(monitor, notifier).Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, notifier.all(), 1)
	assert.Contains(t, notifier.all()[0], "CPU load")
}

func TestThrottler_HighTemperaturePauses(t *testing.T) {
	temp := 91.0
	hot := healthySnapshot()
	hot.TemperatureCelsius = &temp
	monitor := &scriptedMonitor{snapshots: []*ResourceSnapshot{hot, healthySnapshot()}}
	notifier := &captureNotifier{}

	err := newTestThrottler(monitor, notifier).Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, notifier.all(), 1)
	assert.Contains(t, notifier.all()[0], "temperature")
}

func TestThrottler_MissingTemperatureSensorIsFine(t *testing.T) {
	snapshot := healthySnapshot()
	snapshot.TemperatureCelsius = nil
	monitor := &scriptedMonitor{snapshots: []*ResourceSnapshot{snapshot}}

	err := newTestThrottler(monitor, &captureNotifier{}).Wait(context.Background())
	assert.NoError(t, err)
}

func TestThrottler_SamplingFailureFailsOpen(t *testing.T) {
	monitor := &scriptedMonitor{err: errors.New("procfs unavailable")}
	notifier := &captureNotifier{}

	err := newTestThrottler(monitor, notifier).Wait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notifier.all())
}

func TestThrottler_ContextCancellationUnblocks(t *testing.T) {
	pressured := healthySnapshot()
	pressured.MemoryUsedBytes = 15 << 30
	monitor := &scriptedMonitor{snapshots: []*ResourceSnapshot{pressured}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	throttler := NewThrottler(monitor, &captureNotifier{}, 3<<30, 80, 80, time.Hour, slog.Default())
	err := throttler.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestThrottler_ZeroThresholdsUseDefaults(t *testing.T) {
	throttler := NewThrottler(&scriptedMonitor{}, &captureNotifier{}, 0, 0, 0, 0, slog.Default())
	assert.Equal(t, DefaultMaxMemoryUsed, throttler.maxMemoryUsed)
	assert.Equal(t, DefaultMaxCPUPercent, throttler.maxCPU)
	assert.Equal(t, DefaultMaxTemperature, throttler.maxTemp)
	assert.Equal(t, DefaultCheckInterval, throttler.interval)
}
