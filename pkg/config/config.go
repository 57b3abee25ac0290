// Package config loads, merges, and validates clipforge configuration:
// built-in defaults, an optional clipforge.yaml, and environment overrides,
// in that order of precedence (later wins).
package config

import (
	"github.com/clipforge/clipforge/pkg/models"
)

// Config is the umbrella configuration object returned by Initialize()
// and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// WorkspaceDir is the root under which per-run workspaces and the
	// runs/ state directory live.
	WorkspaceDir string `yaml:"workspace_dir"`

	// QueueDir holds the inbox/, processing/, and completed/ queue
	// directories.
	QueueDir string `yaml:"queue_dir"`

	// WorkflowsDir holds the stage, persona, and gate definition files.
	WorkflowsDir string `yaml:"workflows_dir"`

	// HTTPPort is the ops API listen port.
	HTTPPort string `yaml:"http_port"`

	Agent     *AgentConfig     `yaml:"agent"`
	Chat      *ChatConfig      `yaml:"chat"`
	Throttle  *ThrottleConfig  `yaml:"throttle"`
	Retention *RetentionConfig `yaml:"retention"`

	// ExtendedStages inserts the veo3_await stage into the processing
	// sequence for deployments that generate supplementary AI footage.
	ExtendedStages bool `yaml:"extended_stages"`
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Sequence returns the stage sequence this deployment runs.
func (c *Config) Sequence() []models.Stage {
	if c.ExtendedStages {
		return models.ExtendedSequence
	}
	return models.BaseSequence
}
