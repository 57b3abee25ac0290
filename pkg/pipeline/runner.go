package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/pkg/events"
	"github.com/clipforge/clipforge/pkg/knowledge"
	"github.com/clipforge/clipforge/pkg/models"
	"github.com/clipforge/clipforge/pkg/state"
)

// Runner drives one run through the full stage sequence, checkpointing the
// state file before every stage so a crash can resume where it left off.
type Runner struct {
	store        *state.Store
	bus          *events.Bus
	stages       *StageRunner
	machine      *Machine
	sequence     []models.Stage
	gates        GateLoader
	workflowsDir string
	logger       *slog.Logger
}

// NewRunner wires a pipeline runner. The sequence passed here must match
// the one the crash-recovery scanner uses.
func NewRunner(store *state.Store, bus *events.Bus, stages *StageRunner, sequence []models.Stage, gates GateLoader, workflowsDir string, logger *slog.Logger) *Runner {
	return &Runner{
		store:        store,
		bus:          bus,
		stages:       stages,
		machine:      NewMachine(sequence),
		sequence:     append([]models.Stage(nil), sequence...),
		gates:        gates,
		workflowsDir: workflowsDir,
		logger:       logger.With("component", "pipeline-runner"),
	}
}

// NewRunID builds a sortable run identifier from the current time plus a
// short random suffix.
func NewRunID(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

// Run processes a freshly claimed queue item to completion. The returned
// state reflects the final checkpoint; err is non-nil only for
// unrecoverable failures. An escalated run returns a nil error with the
// state parked in its escalation.
func (r *Runner) Run(ctx context.Context, item *models.QueueItem, workspacePath string) (*models.RunState, error) {
	runID := NewRunID(time.Now())
	run := models.NewRunState(runID, item.URL, workspacePath, time.Now())
	if err := r.store.Save(ctx, run); err != nil {
		return nil, err
	}

	r.bus.Publish(ctx, events.New(events.EventRunStarted, runID, "", map[string]string{
		"youtube_url": item.URL,
	}))
	r.logger.Info("Run started", "run_id", runID, "url", item.URL)

	return r.drive(ctx, run, item.TopicFocus, nil)
}

// Resume continues an interrupted run from its last checkpoint. Artifacts
// from already-completed stages are re-discovered from the workspace.
func (r *Runner) Resume(ctx context.Context, run *models.RunState) (*models.RunState, error) {
	r.logger.Info("Resuming run", "run_id", run.RunID, "stage", run.CurrentStage)
	artifacts := listWorkspaceArtifacts(run.WorkspacePath)
	return r.drive(ctx, run, "", artifacts)
}

func (r *Runner) drive(ctx context.Context, run *models.RunState, topicFocus string, artifacts []string) (*models.RunState, error) {
	for _, stage := range r.sequence {
		if run.CurrentStage.IsTerminal() {
			break
		}
		if run.CompletedStage(stage) {
			continue
		}
		// After a crash the checkpointed stage may trail the completed list;
		// the completed list is authoritative.
		if run.CurrentStage != stage {
			normalized := run.Clone()
			normalized.CurrentStage = stage
			normalized.CurrentAttempt = 1
			normalized.QAStatus = models.QAStatusPending
			normalized.UpdatedAt = nextTimestamp(run.UpdatedAt)
			run = normalized
		}

		if err := r.store.Save(ctx, run); err != nil {
			return run, err
		}

		req := r.buildRequest(run, stage, topicFocus, artifacts)

		var result *models.ReflectionResult
		var stageErr error
		if stage.QAGated() {
			gate := string(stage)
			criteria, err := r.gates.Criteria(gate)
			if err != nil {
				stageErr = fmt.Errorf("loading gate criteria for %s: %w", gate, err)
			} else {
				result, stageErr = r.stages.Run(ctx, run.RunID, req, gate, criteria)
			}
		} else {
			result, stageErr = r.stages.RunUngated(ctx, run.RunID, req)
		}

		if stageErr != nil {
			failed, err := r.machine.Apply(run, EventUnrecoverableError)
			if err != nil {
				return run, stageErr
			}
			run = failed
			if err := r.store.Save(ctx, run); err != nil {
				r.logger.Error("Failed to checkpoint failed run", "run_id", run.RunID, "error", err)
			}
			return run, stageErr
		}

		if result.EscalationNeeded {
			parked := run.Clone()
			parked.EscalationState = models.EscalationQAExhausted
			parked.QAStatus = models.QAStatusFailed
			parked.UpdatedAt = nextTimestamp(run.UpdatedAt)
			run = parked
			if err := r.store.Save(ctx, run); err != nil {
				return run, err
			}
			r.bus.Publish(ctx, events.New(events.EventRunFailed, run.RunID, stage, map[string]string{
				"reason": "qa_exhausted",
				"score":  fmt.Sprintf("%d", result.BestCritique.Score),
			}))
			r.logger.Warn("Run escalated after exhausting QA attempts",
				"run_id", run.RunID, "stage", stage, "best_score", result.BestCritique.Score)
			return run, nil
		}

		artifacts = append(artifacts, result.Artifacts...)

		event := EventQAPass
		if stage == r.machine.FinalStage() {
			event = EventStageComplete
		}
		next, err := r.machine.Apply(run, event)
		if err != nil {
			return run, err
		}
		run = next
		if err := r.store.Save(ctx, run); err != nil {
			return run, err
		}
	}

	if run.CurrentStage == models.StageCompleted {
		r.bus.Publish(ctx, events.New(events.EventRunCompleted, run.RunID, "", map[string]string{
			"stages": fmt.Sprintf("%d", len(run.StagesCompleted)),
		}))
		r.logger.Info("Run completed", "run_id", run.RunID)
	}
	return run, nil
}

// buildRequest assembles the agent invocation for one stage from the
// workflow library layout: stages/<stage>.md and personas/<stage>.md.
func (r *Runner) buildRequest(run *models.RunState, stage models.Stage, topicFocus string, artifacts []string) *models.AgentRequest {
	elicitation := map[string]string{}
	if stage == models.StageRouter {
		elicitation["youtube_url"] = run.YouTubeURL
		if topicFocus != "" {
			elicitation["topic_focus"] = topicFocus
		}
	}
	if stage == models.StageLayoutDetective {
		if hints := r.cropHints(); hints != "" {
			elicitation["crop_hints"] = hints
		}
	}
	if len(elicitation) == 0 {
		elicitation = nil
	}
	return &models.AgentRequest{
		Stage:          stage,
		StageFile:      filepath.Join(r.workflowsDir, "stages", string(stage)+".md"),
		PersonaFile:    filepath.Join(r.workflowsDir, "personas", string(stage)+".md"),
		PriorArtifacts: append([]string(nil), artifacts...),
		Elicitation:    elicitation,
	}
}

// cropHints renders the crop knowledge base as prompt material for the
// layout stage. Best effort: an unreadable knowledge base yields no hints.
func (r *Runner) cropHints() string {
	strategies, err := knowledge.LoadCropStrategies(filepath.Join(r.workflowsDir, "knowledge"))
	if err != nil {
		r.logger.Warn("Cannot load crop strategies", "error", err)
		return ""
	}
	if len(strategies) == 0 {
		return ""
	}

	layouts := make([]string, 0, len(strategies))
	for layout := range strategies {
		layouts = append(layouts, layout)
	}
	sort.Strings(layouts)

	var b strings.Builder
	for _, layout := range layouts {
		s := strategies[layout]
		fmt.Fprintf(&b, "%s: framing=%s crop=%s", layout, s.Framing, s.CropFilter)
		if s.Notes != "" {
			fmt.Fprintf(&b, " (%s)", s.Notes)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// listWorkspaceArtifacts enumerates the assets directory of a workspace in
// name order. Best effort: an unreadable workspace yields no artifacts.
func listWorkspaceArtifacts(workspacePath string) []string {
	assetsDir := filepath.Join(workspacePath, "assets")
	entries, err := os.ReadDir(assetsDir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(assetsDir, entry.Name()))
	}
	sort.Strings(paths)
	return paths
}
