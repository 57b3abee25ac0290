// Package pipeline contains the orchestration core: the run state machine,
// the Generator-Critic reflection loop, the recovery chain, the stage and
// pipeline runners, and the crash-recovery scanner. External collaborators
// are reached only through the narrow port interfaces defined here.
package pipeline

import (
	"context"

	"github.com/clipforge/clipforge/pkg/models"
)

// Executor runs one agent invocation. Implementations must not leak
// subprocess state between invocations except as expressed by the
// request's attempt history.
type Executor interface {
	Execute(ctx context.Context, req *models.AgentRequest) (*models.AgentResult, error)
}

// ModelDispatcher sends a prompt to a model and returns the raw response
// body. The reflection loop calls it with role RoleQAEvaluator.
type ModelDispatcher interface {
	Dispatch(ctx context.Context, role, prompt, model string) (string, error)
}

// RoleQAEvaluator identifies QA grading calls on the model-dispatch port.
const RoleQAEvaluator = "qa_evaluator"

// Notifier delivers advisory messages to the user. The core proceeds
// without it; implementations may be nil-safe no-ops.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// GateLoader resolves a gate name to its criteria text.
type GateLoader interface {
	Criteria(gate string) (string, error)
}
