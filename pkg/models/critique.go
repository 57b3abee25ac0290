package models

// QADecision is the QA model's verdict for one attempt.
type QADecision string

const (
	DecisionPass   QADecision = "PASS"
	DecisionRework QADecision = "REWORK"
	DecisionFail   QADecision = "FAIL"
)

// Valid reports whether the decision is one of the three known verdicts.
func (d QADecision) Valid() bool {
	return d == DecisionPass || d == DecisionRework || d == DecisionFail
}

// QACritique is the parsed QA model response for a single attempt.
type QACritique struct {
	Decision QADecision `json:"decision"`

	// Score is 0-100.
	Score int `json:"score"`

	GateName string `json:"gate_name"`

	// Attempt is 1-based.
	Attempt int `json:"attempt"`

	// Blockers describe what prevented a PASS; each entry carries at least
	// "severity" and "detail".
	Blockers []map[string]string `json:"blockers,omitempty"`

	// PrescriptiveFixes are concrete instructions fed back to the agent on
	// the next attempt.
	PrescriptiveFixes []string `json:"prescriptive_fixes,omitempty"`

	// Confidence is 0.0-1.0.
	Confidence float64 `json:"confidence"`
}

// ReflectionResult summarizes a reflection-loop run: the best critique of
// all attempts and the artifacts from that same attempt.
type ReflectionResult struct {
	BestCritique *QACritique
	Artifacts    []string
	Attempts     int

	// EscalationNeeded is set when no attempt passed and the best score is
	// below the configured floor. The run is then paused, not failed.
	EscalationNeeded bool
}
