package pipeline

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/clipforge/clipforge/pkg/events"
	"github.com/clipforge/clipforge/pkg/models"
)

// StageRunner executes one stage end to end: reflection loop, recovery
// chain on execution failure, and the events the stage emits along the way.
type StageRunner struct {
	loop     *Loop
	chain    *Chain
	executor Executor
	bus      *events.Bus
	logger   *slog.Logger
}

// NewStageRunner wires a stage runner from its collaborators.
func NewStageRunner(loop *Loop, chain *Chain, executor Executor, bus *events.Bus, logger *slog.Logger) *StageRunner {
	return &StageRunner{
		loop:     loop,
		chain:    chain,
		executor: executor,
		bus:      bus,
		logger:   logger.With("component", "stage-runner"),
	}
}

// Run executes a QA-gated stage. On an execution error the recovery chain
// gets one shot at rescuing it; a rescued execution re-enters the
// reflection loop once. A second failure is final for this stage.
func (r *StageRunner) Run(ctx context.Context, runID string, req *models.AgentRequest, gateName, criteria string) (*models.ReflectionResult, error) {
	r.bus.Publish(ctx, events.New(events.EventStageEntered, runID, req.Stage, map[string]string{
		"gate": gateName,
	}))

	result, err := r.loop.Run(ctx, req, gateName, criteria)
	if err != nil {
		rescue, chainErr := r.chain.Run(ctx, req, err)
		if chainErr != nil {
			return nil, chainErr
		}
		if !rescue.Success {
			r.bus.Publish(ctx, events.New(events.EventRunFailed, runID, req.Stage, map[string]string{
				"error": err.Error(),
			}))
			return nil, err
		}
		result, err = r.loop.Run(ctx, req, gateName, criteria)
		if err != nil {
			r.bus.Publish(ctx, events.New(events.EventRunFailed, runID, req.Stage, map[string]string{
				"error": err.Error(),
			}))
			return nil, err
		}
	}

	if result.BestCritique != nil && result.BestCritique.Decision == models.DecisionPass {
		r.bus.Publish(ctx, events.New(events.EventGatePassed, runID, req.Stage, map[string]string{
			"gate":  gateName,
			"score": strconv.Itoa(result.BestCritique.Score),
		}))
	}

	data := map[string]string{
		"attempts": strconv.Itoa(result.Attempts),
	}
	if result.BestCritique != nil {
		data["decision"] = string(result.BestCritique.Decision)
		data["score"] = strconv.Itoa(result.BestCritique.Score)
	}
	r.bus.Publish(ctx, events.New(events.EventStageCompleted, runID, req.Stage, data))

	return result, nil
}

// RunUngated executes a stage with no QA gate (veo3_await). The agent runs
// once, the recovery chain rescues execution failures, and the result is
// reported as a single passing attempt.
func (r *StageRunner) RunUngated(ctx context.Context, runID string, req *models.AgentRequest) (*models.ReflectionResult, error) {
	r.bus.Publish(ctx, events.New(events.EventStageEntered, runID, req.Stage, nil))

	result, err := r.executor.Execute(ctx, req)
	if err != nil {
		rescue, chainErr := r.chain.Run(ctx, req, err)
		if chainErr != nil {
			return nil, chainErr
		}
		if !rescue.Success {
			r.bus.Publish(ctx, events.New(events.EventRunFailed, runID, req.Stage, map[string]string{
				"error": err.Error(),
			}))
			return nil, err
		}
		result = rescue.Result
	}

	r.bus.Publish(ctx, events.New(events.EventStageCompleted, runID, req.Stage, map[string]string{
		"attempts": "1",
	}))

	return &models.ReflectionResult{
		Artifacts: result.Artifacts,
		Attempts:  1,
	}, nil
}
