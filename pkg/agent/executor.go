// Package agent launches the external AI agent CLI. Each stage execution
// is one subprocess: the request goes in as JSON on stdin, the result
// comes back as JSON on stdout. The subprocess owns all model access; the
// orchestrator only supervises.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/clipforge/clipforge/pkg/models"
	"github.com/clipforge/clipforge/pkg/pipeline"
)

// stderrExcerptLimit bounds how much subprocess stderr ends up in error
// messages and logs.
const stderrExcerptLimit = 2048

// CLIExecutor runs agent invocations through the configured CLI binary.
type CLIExecutor struct {
	bin     string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCLIExecutor creates an executor for the given binary and per-run
// timeout.
func NewCLIExecutor(bin string, timeout time.Duration) *CLIExecutor {
	return &CLIExecutor{
		bin:     bin,
		timeout: timeout,
		logger:  slog.Default().With("component", "agent-executor"),
	}
}

// Execute runs one agent subprocess to completion. Timeouts, nonzero
// exits, and unparseable output all surface as *pipeline.AgentError so
// the recovery chain can classify them.
func (e *CLIExecutor) Execute(ctx context.Context, req *models.AgentRequest) (*models.AgentResult, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return nil, &pipeline.AgentError{Stage: req.Stage, Reason: "encoding request", Err: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.bin, "run", "--stage", string(req.Stage))
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	e.logger.Info("Launching agent", "stage", req.Stage, "bin", e.bin)

	err = cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		e.logger.Error("Agent timed out",
			"stage", req.Stage, "timeout", e.timeout, "stderr", excerpt(stderr.String()))
		return nil, &pipeline.AgentError{
			Stage:  req.Stage,
			Reason: fmt.Sprintf("timed out after %s", e.timeout),
			Err:    runCtx.Err(),
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		reason := "failed to start"
		if errors.As(err, &exitErr) {
			reason = fmt.Sprintf("exit status %d: %s", exitErr.ExitCode(), excerpt(stderr.String()))
		}
		e.logger.Error("Agent execution failed",
			"stage", req.Stage, "elapsed", elapsed, "error", err)
		return nil, &pipeline.AgentError{Stage: req.Stage, Reason: reason, Err: err}
	}

	var result models.AgentResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &pipeline.AgentError{
			Stage:  req.Stage,
			Reason: "unparseable agent output",
			Err:    err,
		}
	}
	if result.Status != "success" {
		return nil, &pipeline.AgentError{
			Stage:  req.Stage,
			Reason: fmt.Sprintf("agent reported status %q", result.Status),
		}
	}

	if result.DurationSeconds == 0 {
		result.DurationSeconds = elapsed.Seconds()
	}
	e.logger.Info("Agent finished",
		"stage", req.Stage, "elapsed", elapsed, "artifacts", len(result.Artifacts))
	return &result, nil
}

// excerpt trims stderr to a loggable size, keeping the tail where the
// actual failure usually is.
func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrExcerptLimit {
		return s
	}
	return "..." + s[len(s)-stderrExcerptLimit:]
}
