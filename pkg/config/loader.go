package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const configFileName = "clipforge.yaml"

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Start from built-in defaults
//  2. Merge clipforge.yaml from configDir (optional; env vars expanded)
//  3. Apply environment variable overrides
//  4. Derive the chat enablement flag
//  5. Validate and return
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg := defaultConfig(configDir)

	// 2. Merge the optional YAML file on top of defaults
	if err := mergeYAML(cfg, configDir); err != nil {
		return nil, NewLoadError(configFileName, err)
	}

	// 3. Environment overrides win over both
	applyEnvOverrides(cfg)

	// 4. Chat is on only when both the token and the chat id resolve
	token := os.Getenv(cfg.Chat.TokenEnv)
	cfg.Chat.Enabled = token != "" && cfg.Chat.ChatID != ""

	// 5. Validate
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	if cfg.Agent.Timeout < MinAgentTimeout {
		log.Warn("Agent timeout below minimum, raising",
			"configured", cfg.Agent.Timeout, "minimum", MinAgentTimeout)
		cfg.Agent.Timeout = MinAgentTimeout
	}

	log.Info("Configuration initialized successfully",
		"workspace_dir", cfg.WorkspaceDir,
		"queue_dir", cfg.QueueDir,
		"chat_enabled", cfg.Chat.Enabled,
		"extended_stages", cfg.ExtendedStages)

	return cfg, nil
}

func defaultConfig(configDir string) *Config {
	return &Config{
		configDir:    configDir,
		WorkspaceDir: "./workspace",
		QueueDir:     "./workspace/queue",
		WorkflowsDir: "./workflows",
		HTTPPort:     "8080",
		Agent:        DefaultAgentConfig(),
		Chat:         DefaultChatConfig(),
		Throttle:     DefaultThrottleConfig(),
		Retention:    DefaultRetentionConfig(),
	}
}

// mergeYAML overlays clipforge.yaml onto cfg. A missing file is fine; the
// defaults plus environment overrides are a complete configuration.
func mergeYAML(cfg *Config, configDir string) error {
	path := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No configuration file found, using defaults", "path", path)
			return nil
		}
		return err
	}

	data = ExpandEnv(data)

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	// Merge user-provided config into defaults (non-zero values override)
	if err := mergo.Merge(cfg, &fileCfg, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies flat environment variable overrides. These
// take precedence over both defaults and the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WORKSPACE_DIR"); v != "" {
		cfg.WorkspaceDir = v
	}
	if v := os.Getenv("QUEUE_DIR"); v != "" {
		cfg.QueueDir = v
	}
	if v := os.Getenv("WORKFLOWS_DIR"); v != "" {
		cfg.WorkflowsDir = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("AGENT_BIN"); v != "" {
		cfg.Agent.Bin = v
	}
	if v := os.Getenv("AGENT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.Timeout = time.Duration(n) * time.Second
		} else {
			slog.Warn("Invalid AGENT_TIMEOUT_SECONDS, keeping configured value",
				"value", v, "error", err)
		}
	}
	if v := os.Getenv("MIN_QA_SCORE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MinQAScore = n
		} else {
			slog.Warn("Invalid MIN_QA_SCORE, keeping configured value",
				"value", v, "error", err)
		}
	}
	if v := os.Getenv("CHAT_CHAT_ID"); v != "" {
		cfg.Chat.ChatID = v
	}
	if v := os.Getenv("EXTENDED_STAGES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ExtendedStages = b
		}
	}
}
