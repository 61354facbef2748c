package types

import (
	"maps"
	"time"
)

// DecisionLogEntry is one append-only record in the decision log.
type DecisionLogEntry struct {
	DecisionID   string         `json:"decision_id"`
	AgentName    string         `json:"agent_name"`
	Decision     string         `json:"decision"`
	Reasoning    string         `json:"reasoning"`
	Confidence   float64        `json:"confidence"`
	InputSummary string         `json:"input_summary"`
	Timestamp    time.Time      `json:"timestamp"`
	Metadata     map[string]any `json:"metadata"`
	EntryHash    string         `json:"entry_hash"`
}

// Clone copies the metadata map so the stored entry cannot be modified
// through a returned value.
func (e DecisionLogEntry) Clone() DecisionLogEntry {
	e.Metadata = maps.Clone(e.Metadata)
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	return e
}
