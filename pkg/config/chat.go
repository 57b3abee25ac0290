package config

import "time"

// ChatConfig holds Telegram bot settings. The bot is the submission and
// notification surface; the pipeline runs fine without it.
type ChatConfig struct {
	// Enabled is derived: true only when both TokenEnv's variable and
	// ChatID resolve to non-empty values.
	Enabled bool `yaml:"enabled"`

	// TokenEnv names the environment variable holding the bot token.
	TokenEnv string `yaml:"token_env"`

	// ChatID is the Telegram chat the bot listens to and notifies.
	ChatID string `yaml:"chat_id"`

	// PollInterval is how often pending bot updates are fetched.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DefaultChatConfig returns the built-in chat defaults.
func DefaultChatConfig() *ChatConfig {
	return &ChatConfig{
		Enabled:      false,
		TokenEnv:     "CHAT_TOKEN",
		PollInterval: 5 * time.Second,
	}
}
