package config

import (
	"fmt"
	"os"
)

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	if cfg.WorkspaceDir == "" {
		return NewValidationError("paths", "workspace_dir", ErrMissingRequiredField)
	}
	if cfg.QueueDir == "" {
		return NewValidationError("paths", "queue_dir", ErrMissingRequiredField)
	}
	if cfg.WorkflowsDir == "" {
		return NewValidationError("paths", "workflows_dir", ErrMissingRequiredField)
	}

	if cfg.Agent.Bin == "" {
		return NewValidationError("agent", "bin", ErrMissingRequiredField)
	}
	if cfg.Agent.MaxAttempts <= 0 {
		return NewValidationError("agent", "max_attempts",
			fmt.Errorf("%w: must be positive, got %d", ErrInvalidValue, cfg.Agent.MaxAttempts))
	}
	if cfg.Agent.MinQAScore < 0 || cfg.Agent.MinQAScore > 100 {
		return NewValidationError("agent", "min_qa_score",
			fmt.Errorf("%w: must be 0-100, got %d", ErrInvalidValue, cfg.Agent.MinQAScore))
	}

	if cfg.Throttle.MaxCPUPercent <= 0 || cfg.Throttle.MaxCPUPercent > 100 {
		return NewValidationError("throttle", "max_cpu_percent",
			fmt.Errorf("%w: must be in (0, 100], got %g", ErrInvalidValue, cfg.Throttle.MaxCPUPercent))
	}
	if cfg.Throttle.CheckInterval <= 0 {
		return NewValidationError("throttle", "check_interval",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	// A token without a chat id (or the reverse) is a misconfiguration,
	// not a disabled bot: fail loudly instead of half-working.
	token := os.Getenv(cfg.Chat.TokenEnv)
	if (token != "") != (cfg.Chat.ChatID != "") {
		return NewValidationError("chat", "",
			fmt.Errorf("%w: %s and CHAT_CHAT_ID must be set together", ErrInvalidValue, cfg.Chat.TokenEnv))
	}

	return nil
}
