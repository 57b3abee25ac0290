package pipeline

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/clipforge/clipforge/pkg/models"
)

// scriptedExecutor returns its outcomes in order and records every request
// it saw. An outcome with a non-nil err fails that call.
type execOutcome struct {
	result *models.AgentResult
	err    error
}

type scriptedExecutor struct {
	mu       sync.Mutex
	outcomes []execOutcome
	requests []*models.AgentRequest
}

func (e *scriptedExecutor) Execute(_ context.Context, req *models.AgentRequest) (*models.AgentResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req.Clone())
	if len(e.outcomes) == 0 {
		return &models.AgentResult{Status: "success", Artifacts: []string{"out.md"}}, nil
	}
	next := e.outcomes[0]
	e.outcomes = e.outcomes[1:]
	return next.result, next.err
}

func (e *scriptedExecutor) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

// scriptedDispatcher returns canned critique JSON per call.
type scriptedDispatcher struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, _, prompt, _ string) (string, error) {
	idx := d.calls
	d.calls++
	d.prompts = append(d.prompts, prompt)
	if idx < len(d.errs) && d.errs[idx] != nil {
		return "", d.errs[idx]
	}
	if idx < len(d.responses) {
		return d.responses[idx], nil
	}
	return critiqueJSON(models.DecisionPass, 90), nil
}

func critiqueJSON(decision models.QADecision, score int) string {
	body, _ := json.Marshal(map[string]any{
		"decision":   decision,
		"score":      score,
		"confidence": 0.9,
	})
	return string(body)
}

func critiqueJSONWithFixes(decision models.QADecision, score int, fixes ...string) string {
	body, _ := json.Marshal(map[string]any{
		"decision":           decision,
		"score":              score,
		"confidence":         0.8,
		"blockers":           []map[string]string{{"severity": "major", "detail": "hook too weak"}},
		"prescriptive_fixes": fixes,
	})
	return string(body)
}

// recordingNotifier captures every message.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

// staticGates serves the same criteria text for every gate.
type staticGates struct {
	criteria string
	err      error
}

func (g *staticGates) Criteria(string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if g.criteria == "" {
		return "Output must be complete and well-formed.", nil
	}
	return g.criteria, nil
}
