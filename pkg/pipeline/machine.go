package pipeline

import (
	"time"

	"github.com/clipforge/clipforge/pkg/models"
)

// Event is a state-machine input.
type Event string

// Run lifecycle events.
const (
	EventQAPass              Event = "qa_pass"
	EventQARework            Event = "qa_rework"
	EventQAFail              Event = "qa_fail"
	EventStageComplete       Event = "stage_complete"
	EventUnrecoverableError  Event = "unrecoverable_error"
	EventEscalationRequested Event = "escalation_requested"
	EventEscalationResolved  Event = "escalation_resolved"
)

// Machine enforces the legal stage-to-stage transitions for a given stage
// sequence. The transition table is fixed at construction.
type Machine struct {
	sequence []models.Stage
	next     map[models.Stage]models.Stage
	inSeq    map[models.Stage]bool
}

// NewMachine builds a machine over the given processing sequence. The last
// sequence entry (delivery) transitions to the terminal completed stage
// via stage_complete rather than qa_pass.
func NewMachine(sequence []models.Stage) *Machine {
	m := &Machine{
		sequence: append([]models.Stage(nil), sequence...),
		next:     make(map[models.Stage]models.Stage, len(sequence)),
		inSeq:    make(map[models.Stage]bool, len(sequence)),
	}
	for i, stage := range sequence {
		m.inSeq[stage] = true
		if i+1 < len(sequence) {
			m.next[stage] = sequence[i+1]
		}
	}
	return m
}

// Sequence returns the processing order the machine was built with.
func (m *Machine) Sequence() []models.Stage {
	return append([]models.Stage(nil), m.sequence...)
}

// FinalStage returns the last processing stage (delivery).
func (m *Machine) FinalStage() models.Stage {
	return m.sequence[len(m.sequence)-1]
}

// Apply computes the successor state for (state, event). The input state
// is never mutated; a rebuilt copy is returned. Terminal stages and
// unknown (stage, event) pairs fail with a *TransitionError.
func (m *Machine) Apply(state *models.RunState, event Event) (*models.RunState, error) {
	stage := state.CurrentStage
	if stage.IsTerminal() || !m.inSeq[stage] {
		return nil, &TransitionError{Stage: stage, Event: event}
	}

	next := state.Clone()

	switch event {
	case EventQAPass:
		target, ok := m.next[stage]
		if !ok {
			// delivery has no qa_pass successor; it leaves via stage_complete.
			return nil, &TransitionError{Stage: stage, Event: event}
		}
		next.StagesCompleted = append(next.StagesCompleted, string(stage))
		next.CurrentStage = target
		next.CurrentAttempt = 1
		next.QAStatus = models.QAStatusPending

	case EventQARework:
		next.CurrentAttempt++
		next.QAStatus = models.QAStatusRework

	case EventQAFail:
		next.QAStatus = models.QAStatusFailed

	case EventStageComplete:
		if stage != m.FinalStage() {
			return nil, &TransitionError{Stage: stage, Event: event}
		}
		next.StagesCompleted = append(next.StagesCompleted, string(stage))
		next.CurrentStage = models.StageCompleted

	case EventUnrecoverableError:
		next.CurrentStage = models.StageFailed
		next.QAStatus = models.QAStatusFailed

	case EventEscalationRequested:
		if stage != models.StageLayoutDetective {
			return nil, &TransitionError{Stage: stage, Event: event}
		}
		next.EscalationState = models.EscalationLayoutUnknown

	case EventEscalationResolved:
		if stage != models.StageLayoutDetective {
			return nil, &TransitionError{Stage: stage, Event: event}
		}
		next.EscalationState = models.EscalationNone
		next.QAStatus = models.QAStatusPending

	default:
		return nil, &TransitionError{Stage: stage, Event: event}
	}

	next.UpdatedAt = nextTimestamp(state.UpdatedAt)
	return next, nil
}

// nextTimestamp returns the current timestamp, nudged forward by one
// microsecond when the clock has not advanced past prev. Keeps updated_at
// strictly increasing across transitions.
func nextTimestamp(prev string) string {
	ts := models.Timestamp(time.Now())
	if ts > prev {
		return ts
	}
	t, err := time.Parse(models.TimestampFormat, prev)
	if err != nil {
		return ts
	}
	return models.Timestamp(t.Add(time.Microsecond))
}
