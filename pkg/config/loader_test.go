package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/models"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))
	return dir
}

func TestInitialize_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "./workspace", cfg.WorkspaceDir)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.Agent.Timeout)
	assert.Equal(t, 3, cfg.Agent.MaxAttempts)
	assert.Equal(t, 40, cfg.Agent.MinQAScore)
	assert.Equal(t, uint64(3*1024*1024*1024), cfg.Throttle.MaxMemoryUsedBytes)
	assert.False(t, cfg.Chat.Enabled)
	assert.Equal(t, models.BaseSequence, cfg.Sequence())
}

func TestInitialize_YAMLOverridesDefaults(t *testing.T) {
	dir := writeConfigFile(t, `
workspace_dir: /data/clipforge
agent:
  bin: /usr/local/bin/cf-agent
  timeout: 10m
extended_stages: true
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "/data/clipforge", cfg.WorkspaceDir)
	assert.Equal(t, "/usr/local/bin/cf-agent", cfg.Agent.Bin)
	assert.Equal(t, 10*time.Minute, cfg.Agent.Timeout)
	assert.Equal(t, 3, cfg.Agent.MaxAttempts, "unset fields keep defaults")
	assert.Equal(t, models.ExtendedSequence, cfg.Sequence())
}

func TestInitialize_EnvOverridesYAML(t *testing.T) {
	dir := writeConfigFile(t, `
workspace_dir: /data/clipforge
http_port: "9000"
`)
	t.Setenv("WORKSPACE_DIR", "/mnt/fast/clipforge")
	t.Setenv("MIN_QA_SCORE", "55")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "/mnt/fast/clipforge", cfg.WorkspaceDir)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, 55, cfg.Agent.MinQAScore)
}

func TestInitialize_ExpandsEnvTemplates(t *testing.T) {
	t.Setenv("CLIPFORGE_BASE", "/srv/media")
	dir := writeConfigFile(t, `
workspace_dir: "{{.CLIPFORGE_BASE}}/workspace"
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/media/workspace", cfg.WorkspaceDir)
}

func TestInitialize_AgentTimeoutSecondsOverride(t *testing.T) {
	t.Setenv("AGENT_TIMEOUT_SECONDS", "300")

	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, cfg.Agent.Timeout)
}

func TestInitialize_AgentTimeoutFloor(t *testing.T) {
	t.Setenv("AGENT_TIMEOUT_SECONDS", "5")

	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, MinAgentTimeout, cfg.Agent.Timeout)
}

func TestInitialize_ChatEnabledOnlyWithBothValues(t *testing.T) {
	t.Setenv("CHAT_TOKEN", "123456:bot-token")
	t.Setenv("CHAT_CHAT_ID", "-1001234")

	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.Chat.Enabled)
	assert.Equal(t, "-1001234", cfg.Chat.ChatID)
}

func TestInitialize_PartialChatConfigFails(t *testing.T) {
	t.Setenv("CHAT_TOKEN", "123456:bot-token")

	_, err := Initialize(context.Background(), t.TempDir())
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "chat", validationErr.Component)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestInitialize_InvalidYAMLFails(t *testing.T) {
	dir := writeConfigFile(t, "workspace_dir: [not: closed")

	_, err := Initialize(context.Background(), dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, configFileName, loadErr.File)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestInitialize_InvalidQAScoreFails(t *testing.T) {
	t.Setenv("MIN_QA_SCORE", "250")

	_, err := Initialize(context.Background(), t.TempDir())
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "min_qa_score", validationErr.Field)
}

func TestInitialize_InvalidThrottleCeilingFails(t *testing.T) {
	dir := writeConfigFile(t, `
throttle:
  max_cpu_percent: 180
`)

	_, err := Initialize(context.Background(), dir)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "throttle", validationErr.Component)
}

func TestValidationError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewValidationError("agent", "bin", inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "agent")
	assert.Contains(t, err.Error(), "bin")
}
