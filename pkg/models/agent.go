package models

// AgentRequest bundles everything an agent subprocess needs for one
// execution. The stage-description and persona files are opaque paths;
// prior artifacts are referenced by path only, never by content.
type AgentRequest struct {
	Stage       Stage  `json:"stage"`
	StageFile   string `json:"stage_file"`
	PersonaFile string `json:"persona_file"`

	// PriorArtifacts lists outputs of earlier stages, in production order.
	PriorArtifacts []string `json:"prior_artifacts"`

	// Elicitation carries key-value context resolved before execution
	// (URL for the router stage, user answers, knowledge-base hints).
	Elicitation map[string]string `json:"elicitation,omitempty"`

	// AttemptHistory carries one record per prior attempt of this stage:
	// decision, score, blockers, and prescriptive fixes. The reflection
	// loop extends it instead of mutating agent state.
	AttemptHistory []map[string]string `json:"attempt_history,omitempty"`
}

// Clone returns a deep copy. Used by the reflection loop and the recovery
// chain, which rebuild requests rather than mutate them.
func (r *AgentRequest) Clone() *AgentRequest {
	next := *r
	next.PriorArtifacts = append([]string(nil), r.PriorArtifacts...)
	if r.Elicitation != nil {
		next.Elicitation = make(map[string]string, len(r.Elicitation))
		for k, v := range r.Elicitation {
			next.Elicitation[k] = v
		}
	}
	next.AttemptHistory = make([]map[string]string, 0, len(r.AttemptHistory))
	for _, rec := range r.AttemptHistory {
		entry := make(map[string]string, len(rec))
		for k, v := range rec {
			entry[k] = v
		}
		next.AttemptHistory = append(next.AttemptHistory, entry)
	}
	if len(next.AttemptHistory) == 0 {
		next.AttemptHistory = nil
	}
	return &next
}

// AgentResult is what an agent execution produced.
type AgentResult struct {
	Status          string   `json:"status"`
	Artifacts       []string `json:"artifacts"`
	SessionID       string   `json:"session_id"`
	DurationSeconds float64  `json:"duration_seconds"`
}
