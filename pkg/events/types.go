// Package events provides the process-local event bus used for pipeline
// observability, plus the listener that persists events to each run's
// events.log file.
package events

import (
	"time"

	"github.com/clipforge/clipforge/pkg/models"
)

// Pipeline lifecycle event names.
const (
	EventRunStarted     = "pipeline.run_started"
	EventRunCompleted   = "pipeline.run_completed"
	EventRunFailed      = "pipeline.run_failed"
	EventStageEntered   = "pipeline.stage_entered"
	EventStageCompleted = "pipeline.stage_completed"
)

// QA event names.
const (
	EventGatePassed = "qa.gate_passed"
)

// PipelineEvent is one observability event. Data is a flat key-value
// payload; values are preformatted strings so the event can be logged
// verbatim.
type PipelineEvent struct {
	// Timestamp is ISO-8601 UTC.
	Timestamp string `json:"timestamp"`

	// Name is the dotted event name, e.g. "pipeline.stage_entered".
	Name string `json:"name"`

	// Stage is the stage the event concerns, empty for run-level events.
	Stage models.Stage `json:"stage,omitempty"`

	// RunID identifies the run the event belongs to.
	RunID string `json:"run_id"`

	Data map[string]string `json:"data,omitempty"`
}

// New builds an event stamped with the current time.
func New(name, runID string, stage models.Stage, data map[string]string) PipelineEvent {
	return PipelineEvent{
		Timestamp: models.Timestamp(time.Now()),
		Name:      name,
		Stage:     stage,
		RunID:     runID,
		Data:      data,
	}
}
