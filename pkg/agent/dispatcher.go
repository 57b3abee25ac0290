package agent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// CLIDispatcher sends one-shot prompts through the agent CLI's prompt
// mode. The reflection loop uses it for QA grading, keeping model access
// behind the same binary as stage execution.
type CLIDispatcher struct {
	bin     string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCLIDispatcher creates a dispatcher for the given binary.
func NewCLIDispatcher(bin string, timeout time.Duration) *CLIDispatcher {
	return &CLIDispatcher{
		bin:     bin,
		timeout: timeout,
		logger:  slog.Default().With("component", "agent-dispatcher"),
	}
}

// Dispatch sends prompt to the model behind role and returns the raw
// response text. An empty model selects the CLI's default.
func (d *CLIDispatcher) Dispatch(ctx context.Context, role, prompt, model string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	args := []string{"prompt", "--role", role}
	if model != "" {
		args = append(args, "--model", model)
	}

	cmd := exec.CommandContext(runCtx, d.bin, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("prompt dispatch timed out after %s: %w", d.timeout, runCtx.Err())
		}
		d.logger.Error("Prompt dispatch failed",
			"role", role, "stderr", excerpt(stderr.String()), "error", err)
		return "", fmt.Errorf("prompt dispatch failed: %w", err)
	}

	return stdout.String(), nil
}
