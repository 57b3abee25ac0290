package config

import "time"

// ThrottleConfig sets the resource ceilings that pause run intake. The
// box doing the video work is usually also rendering; the throttler keeps
// clipforge from starting a run the machine cannot afford.
type ThrottleConfig struct {
	// MaxMemoryUsedBytes pauses intake while host memory use exceeds it.
	MaxMemoryUsedBytes uint64 `yaml:"max_memory_used_bytes"`

	// MaxCPUPercent is the normalized 1-minute load ceiling, 0-100.
	MaxCPUPercent float64 `yaml:"max_cpu_percent"`

	// MaxTemperatureCelsius pauses intake when any sensor exceeds it.
	MaxTemperatureCelsius float64 `yaml:"max_temperature_celsius"`

	// CheckInterval is how often a paused loop re-samples.
	CheckInterval time.Duration `yaml:"check_interval"`
}

// DefaultThrottleConfig returns the built-in throttle defaults.
func DefaultThrottleConfig() *ThrottleConfig {
	return &ThrottleConfig{
		MaxMemoryUsedBytes:    3 * 1024 * 1024 * 1024,
		MaxCPUPercent:         80,
		MaxTemperatureCelsius: 80,
		CheckInterval:         30 * time.Second,
	}
}
