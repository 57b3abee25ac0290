package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clipforge/clipforge/pkg/models"
)

// StateLister enumerates runs whose current stage is not terminal.
type StateLister interface {
	ListIncomplete(ctx context.Context) ([]*models.RunState, error)
}

// RecoveryPlan describes how one interrupted run should be resumed.
type RecoveryPlan struct {
	State      *models.RunState
	ResumeFrom models.Stage
	Remaining  []models.Stage
	StagesDone int
}

// Scanner finds runs that were interrupted mid-flight and plans their
// resumption. It runs once at boot, before any new queue item is claimed.
type Scanner struct {
	states   StateLister
	notifier Notifier
	sequence []models.Stage
	logger   *slog.Logger
}

// NewScanner builds a crash-recovery scanner over the given stage
// sequence, which must match the runner's.
func NewScanner(states StateLister, notifier Notifier, sequence []models.Stage, logger *slog.Logger) *Scanner {
	return &Scanner{
		states:   states,
		notifier: notifier,
		sequence: append([]models.Stage(nil), sequence...),
		logger:   logger.With("component", "recovery-scanner"),
	}
}

// Scan returns one recovery plan per resumable interrupted run, oldest
// first by run ID. Runs whose state is internally inconsistent (every
// stage completed but stage not terminal) are logged and skipped rather
// than resumed into undefined behavior.
func (s *Scanner) Scan(ctx context.Context) ([]*RecoveryPlan, error) {
	incomplete, err := s.states.ListIncomplete(ctx)
	if err != nil {
		return nil, err
	}

	var plans []*RecoveryPlan
	for _, run := range incomplete {
		plan, ok := s.plan(run)
		if !ok {
			continue
		}
		plans = append(plans, plan)

		msg := fmt.Sprintf("Resuming run %s from stage %s (%d of %d stages done)",
			run.RunID, plan.ResumeFrom, plan.StagesDone, len(s.sequence))
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.Warn("Failed to send resume notification",
				"run_id", run.RunID, "error", err)
		}
	}

	if len(plans) > 0 {
		s.logger.Info("Crash recovery scan complete", "resumable_runs", len(plans))
	}
	return plans, nil
}

// plan derives the resume point for one run from its completed-stage list.
// The completed list, not current_stage, is authoritative: the checkpoint
// is written before the stage runs, so current_stage may already name a
// stage that never started.
func (s *Scanner) plan(run *models.RunState) (*RecoveryPlan, bool) {
	done := 0
	resumeIdx := -1
	for i, stage := range s.sequence {
		if run.CompletedStage(stage) {
			done++
			continue
		}
		if resumeIdx == -1 {
			resumeIdx = i
		}
	}

	if resumeIdx == -1 {
		s.logger.Warn("Skipping inconsistent run: all stages completed but not terminal",
			"run_id", run.RunID, "stage", run.CurrentStage)
		return nil, false
	}

	return &RecoveryPlan{
		State:      run,
		ResumeFrom: s.sequence[resumeIdx],
		Remaining:  append([]models.Stage(nil), s.sequence[resumeIdx:]...),
		StagesDone: done,
	}, true
}
