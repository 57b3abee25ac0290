package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/clipforge/clipforge/pkg/models"
)

// Reflection-loop defaults. A stage gets up to three Generator-Critic
// attempts; if none passes, the best attempt wins only when it clears the
// minimum score, otherwise the run escalates.
const (
	DefaultMaxAttempts  = 3
	DefaultMinPassScore = 40
)

// Loop runs the Generator-Critic cycle for one QA-gated stage: execute
// the agent, grade the output, feed the critique back, repeat.
type Loop struct {
	executor     Executor
	dispatcher   ModelDispatcher
	maxAttempts  int
	minPassScore int
	logger       *slog.Logger
}

// NewLoop builds a reflection loop. maxAttempts and minPassScore fall back
// to the package defaults when non-positive.
func NewLoop(executor Executor, dispatcher ModelDispatcher, maxAttempts, minPassScore int, logger *slog.Logger) *Loop {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if minPassScore <= 0 {
		minPassScore = DefaultMinPassScore
	}
	return &Loop{
		executor:     executor,
		dispatcher:   dispatcher,
		maxAttempts:  maxAttempts,
		minPassScore: minPassScore,
		logger:       logger.With("component", "reflection"),
	}
}

type attemptRecord struct {
	critique  *models.QACritique
	artifacts []string
}

// Run drives up to maxAttempts Generator-Critic cycles for the stage in
// req, grading each attempt against the named gate's criteria.
//
// PASS returns immediately. FAIL stops the loop. REWORK extends the
// request's attempt history with the critique and tries again. When
// attempts are exhausted without a PASS, the best-scoring attempt is
// selected; if even the best falls below the pass floor, the result is
// flagged for escalation.
func (l *Loop) Run(ctx context.Context, req *models.AgentRequest, gateName, criteria string) (*models.ReflectionResult, error) {
	current := req.Clone()
	records := make([]attemptRecord, 0, l.maxAttempts)

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		l.logger.Info("Executing stage attempt",
			"stage", current.Stage, "gate", gateName, "attempt", attempt)

		result, err := l.executor.Execute(ctx, current)
		if err != nil {
			return nil, err
		}

		critique, err := l.grade(ctx, current.Stage, gateName, criteria, result.Artifacts, attempt)
		if err != nil {
			return nil, err
		}
		records = append(records, attemptRecord{critique: critique, artifacts: result.Artifacts})

		l.logger.Info("QA verdict",
			"stage", current.Stage, "gate", gateName, "attempt", attempt,
			"decision", critique.Decision, "score", critique.Score)

		switch critique.Decision {
		case models.DecisionPass:
			return &models.ReflectionResult{
				BestCritique: critique,
				Artifacts:    result.Artifacts,
				Attempts:     attempt,
			}, nil
		case models.DecisionFail:
			return l.selectBest(records), nil
		case models.DecisionRework:
			next := current.Clone()
			next.AttemptHistory = append(next.AttemptHistory, historyEntry(critique))
			current = next
		}
	}

	return l.selectBest(records), nil
}

// selectBest picks the highest-scoring attempt; ties go to the earliest.
func (l *Loop) selectBest(records []attemptRecord) *models.ReflectionResult {
	best := records[0]
	for _, rec := range records[1:] {
		if rec.critique.Score > best.critique.Score {
			best = rec
		}
	}
	return &models.ReflectionResult{
		BestCritique:     best.critique,
		Artifacts:        best.artifacts,
		Attempts:         len(records),
		EscalationNeeded: best.critique.Score < l.minPassScore,
	}
}

// grade asks the QA model to judge one attempt's artifacts against the
// gate criteria and parses the verdict.
func (l *Loop) grade(ctx context.Context, stage models.Stage, gateName, criteria string, artifacts []string, attempt int) (*models.QACritique, error) {
	prompt := buildQAPrompt(stage, gateName, criteria, artifacts, attempt)

	raw, err := l.dispatcher.Dispatch(ctx, RoleQAEvaluator, prompt, "")
	if err != nil {
		return nil, &QAError{Gate: gateName, Err: err}
	}

	critique, err := parseCritique(raw)
	if err != nil {
		return nil, &QAError{Gate: gateName, Err: err}
	}
	critique.GateName = gateName
	critique.Attempt = attempt
	return critique, nil
}

func buildQAPrompt(stage models.Stage, gateName, criteria string, artifacts []string, attempt int) string {
	var b strings.Builder
	b.WriteString("You are a quality-assurance evaluator for a video production pipeline.\n\n")
	fmt.Fprintf(&b, "Stage: %s\nGate: %s\nAttempt: %d\n\n", stage, gateName, attempt)
	b.WriteString("Gate criteria:\n")
	b.WriteString(criteria)
	b.WriteString("\n\nArtifacts to evaluate (by path):\n")
	for _, a := range artifacts {
		b.WriteString("- ")
		b.WriteString(a)
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with a single JSON object: ")
	b.WriteString(`{"decision": "PASS"|"REWORK"|"FAIL", "score": 0-100, ` +
		`"blockers": [{"severity": "...", "detail": "..."}], ` +
		`"prescriptive_fixes": ["..."], "confidence": 0.0-1.0}`)
	b.WriteString("\n")
	return b.String()
}

// parseCritique extracts the critique JSON from a model response. Models
// wrap JSON in markdown fences often enough that we strip them first.
func parseCritique(raw string) (*models.QACritique, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var critique models.QACritique
	if err := json.Unmarshal([]byte(text), &critique); err != nil {
		return nil, fmt.Errorf("unparseable critique: %w", err)
	}
	if !critique.Decision.Valid() {
		return nil, fmt.Errorf("unknown decision %q", critique.Decision)
	}
	return &critique, nil
}

// historyEntry flattens a critique into the string map carried on the
// next attempt's request.
func historyEntry(c *models.QACritique) map[string]string {
	blockers := make([]string, 0, len(c.Blockers))
	for _, b := range c.Blockers {
		if detail := b["detail"]; detail != "" {
			blockers = append(blockers, detail)
		}
	}
	return map[string]string{
		"decision":          string(c.Decision),
		"score":             strconv.Itoa(c.Score),
		"blockers":          strings.Join(blockers, "; "),
		"prescriptive_fixes": strings.Join(c.PrescriptiveFixes, "; "),
	}
}
