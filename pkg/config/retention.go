package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// CompletedQueueTTL is how long processed queue files stay in the
	// completed/ directory before deletion.
	CompletedQueueTTL time.Duration `yaml:"completed_queue_ttl"`

	// WorkspaceRetentionDays is how many days a terminal run's workspace
	// is kept before the sweeper removes it.
	WorkspaceRetentionDays int `yaml:"workspace_retention_days"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		CompletedQueueTTL:      7 * 24 * time.Hour,
		WorkspaceRetentionDays: 30,
		CleanupInterval:        12 * time.Hour,
	}
}
