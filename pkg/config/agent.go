package config

import "time"

// Minimum enforced agent timeout. Agent stages routinely download and
// transcode video; anything shorter than this cannot finish real work.
const MinAgentTimeout = 30 * time.Second

// AgentConfig controls how agent subprocesses are launched and how their
// output is judged.
type AgentConfig struct {
	// Bin is the agent CLI executable invoked once per stage execution.
	Bin string `yaml:"bin"`

	// Timeout is the wall-clock budget for a single agent execution.
	// Values below MinAgentTimeout are raised to it.
	Timeout time.Duration `yaml:"timeout"`

	// MaxAttempts is the Generator-Critic attempt budget per stage.
	MaxAttempts int `yaml:"max_attempts"`

	// MinQAScore is the best-of-N floor: when no attempt passes, the best
	// attempt is accepted only at or above this score.
	MinQAScore int `yaml:"min_qa_score"`
}

// DefaultAgentConfig returns the built-in agent defaults.
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		Bin:         "clipforge-agent",
		Timeout:     5 * time.Minute,
		MaxAttempts: 3,
		MinQAScore:  40,
	}
}
