// Package models defines the core value types shared across the pipeline:
// run state, queue items, agent requests/results, and QA critiques.
// All values are treated as immutable; mutation is expressed by building
// a new value and persisting it.
package models

import "time"

// Stage identifies one unit of work in the pipeline.
type Stage string

// Processing stages, in canonical order.
const (
	StageRouter          Stage = "router"
	StageResearch        Stage = "research"
	StageTranscript      Stage = "transcript"
	StageContent         Stage = "content"
	StageLayoutDetective Stage = "layout_detective"
	StageFFmpegEngineer  Stage = "ffmpeg_engineer"
	StageVeo3Await       Stage = "veo3_await"
	StageAssembly        Stage = "assembly"
	StageDelivery        Stage = "delivery"
)

// Terminal stages. A run in a terminal stage has no outgoing transitions.
const (
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// BaseSequence is the canonical eight-stage processing order.
var BaseSequence = []Stage{
	StageRouter,
	StageResearch,
	StageTranscript,
	StageContent,
	StageLayoutDetective,
	StageFFmpegEngineer,
	StageAssembly,
	StageDelivery,
}

// ExtendedSequence inserts the non-QA-gated veo3_await stage between
// ffmpeg_engineer and assembly. Whether it is used is a deployment choice;
// the scanner and the runner must agree on the selected sequence.
var ExtendedSequence = []Stage{
	StageRouter,
	StageResearch,
	StageTranscript,
	StageContent,
	StageLayoutDetective,
	StageFFmpegEngineer,
	StageVeo3Await,
	StageAssembly,
	StageDelivery,
}

// IsTerminal reports whether the stage is completed or failed.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// QAGated reports whether the stage's output passes through the QA gate.
func (s Stage) QAGated() bool {
	return s != StageVeo3Await
}

// QAStatus is the per-stage QA verdict recorded on the run.
type QAStatus string

const (
	QAStatusPending QAStatus = "pending"
	QAStatusPassed  QAStatus = "passed"
	QAStatusRework  QAStatus = "rework"
	QAStatusFailed  QAStatus = "failed"
)

// EscalationState marks a run that is paused awaiting user input or
// external remediation. Escalated runs are paused, not failed.
type EscalationState string

const (
	EscalationNone           EscalationState = "none"
	EscalationLayoutUnknown  EscalationState = "layout_unknown"
	EscalationQAExhausted    EscalationState = "qa_exhausted"
	EscalationErrorEscalated EscalationState = "error_escalated"
)

// TimestampFormat is the fixed-width ISO-8601 UTC layout used for run
// timestamps. Fixed microsecond precision keeps lexicographic order equal
// to chronological order.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t in the canonical run-state layout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// RunState is the canonical per-run record, persisted as YAML front-matter
// in the run file. Values are rebuilt, never mutated in place.
type RunState struct {
	RunID                string          `yaml:"run_id" json:"run_id"`
	YouTubeURL           string          `yaml:"youtube_url" json:"youtube_url"`
	CurrentStage         Stage           `yaml:"current_stage" json:"current_stage"`
	CurrentAttempt       int             `yaml:"current_attempt" json:"current_attempt"`
	QAStatus             QAStatus        `yaml:"qa_status" json:"qa_status"`
	StagesCompleted      []string        `yaml:"stages_completed" json:"stages_completed"`
	EscalationState      EscalationState `yaml:"escalation_state" json:"escalation_state"`
	BestOfThreeOverrides []string        `yaml:"best_of_three_overrides" json:"best_of_three_overrides"`
	CreatedAt            string          `yaml:"created_at" json:"created_at"`
	UpdatedAt            string          `yaml:"updated_at" json:"updated_at"`
	WorkspacePath        string          `yaml:"workspace_path" json:"workspace_path"`
}

// NewRunState builds the initial record for a fresh run. List fields are
// initialized empty (never nil) so persisted and in-memory values compare
// equal after a round-trip.
func NewRunState(runID, url, workspacePath string, now time.Time) *RunState {
	ts := Timestamp(now)
	return &RunState{
		RunID:                runID,
		YouTubeURL:           url,
		CurrentStage:         StageRouter,
		CurrentAttempt:       1,
		QAStatus:             QAStatusPending,
		StagesCompleted:      []string{},
		EscalationState:      EscalationNone,
		BestOfThreeOverrides: []string{},
		CreatedAt:            ts,
		UpdatedAt:            ts,
		WorkspacePath:        workspacePath,
	}
}

// Clone returns a deep copy suitable for building the next state value.
func (s *RunState) Clone() *RunState {
	next := *s
	next.StagesCompleted = append([]string(nil), s.StagesCompleted...)
	next.BestOfThreeOverrides = append([]string(nil), s.BestOfThreeOverrides...)
	return &next
}

// CompletedStage reports whether the named stage already appears in
// StagesCompleted.
func (s *RunState) CompletedStage(stage Stage) bool {
	for _, name := range s.StagesCompleted {
		if name == string(stage) {
			return true
		}
	}
	return false
}
