package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clipforge/clipforge/pkg/models"
)

// Level is one rung of the error-recovery ladder.
type Level string

const (
	LevelRetry    Level = "retry"
	LevelFork     Level = "fork"
	LevelFresh    Level = "fresh"
	LevelEscalate Level = "escalate"
)

// ChainResult reports which rung rescued the execution, if any.
type ChainResult struct {
	Level   Level
	Success bool
	Result  *models.AgentResult
}

// Chain walks the recovery ladder for a failed agent execution:
// retry as-is, fork without attempt history, restart fresh without prior
// artifacts, and finally escalate to the user.
type Chain struct {
	executor Executor
	notifier Notifier
	logger   *slog.Logger
}

// NewChain builds a recovery chain. notifier may be nil-safe; escalation
// notification failures are logged and swallowed.
func NewChain(executor Executor, notifier Notifier, logger *slog.Logger) *Chain {
	return &Chain{
		executor: executor,
		notifier: notifier,
		logger:   logger.With("component", "recovery"),
	}
}

// Run attempts to rescue the execution that failed with stageErr.
// Non-recoverable errors propagate immediately. At most three executor
// calls are made; if all fail, the user is notified and escalation is
// reported via Success=false.
func (c *Chain) Run(ctx context.Context, req *models.AgentRequest, stageErr error) (*ChainResult, error) {
	if !recoverable(stageErr) {
		return nil, stageErr
	}

	c.logger.Warn("Entering recovery chain", "stage", req.Stage, "error", stageErr)

	for _, step := range []struct {
		level Level
		req   *models.AgentRequest
	}{
		{LevelRetry, req},
		{LevelFork, forkRequest(req)},
		{LevelFresh, freshRequest(req)},
	} {
		result, err := c.executor.Execute(ctx, step.req)
		if err == nil {
			c.logger.Info("Recovery succeeded", "stage", req.Stage, "level", step.level)
			return &ChainResult{Level: step.level, Success: true, Result: result}, nil
		}
		if !recoverable(err) {
			return nil, err
		}
		c.logger.Warn("Recovery attempt failed",
			"stage", req.Stage, "level", step.level, "error", err)
	}

	msg := fmt.Sprintf("Run needs attention: stage %s failed after retry, fork, and fresh restart. Last error: %v",
		req.Stage, stageErr)
	if err := c.notifier.Notify(ctx, msg); err != nil {
		c.logger.Error("Failed to send escalation notification", "error", err)
	}
	return &ChainResult{Level: LevelEscalate, Success: false}, nil
}

// forkRequest drops the attempt history: same inputs, clean conversational
// slate.
func forkRequest(req *models.AgentRequest) *models.AgentRequest {
	next := req.Clone()
	next.AttemptHistory = nil
	return next
}

// freshRequest drops history and prior artifacts both, forcing the agent
// to rebuild its inputs from the workspace.
func freshRequest(req *models.AgentRequest) *models.AgentRequest {
	next := req.Clone()
	next.AttemptHistory = nil
	next.PriorArtifacts = nil
	return next
}
