// Package ledger holds the append-only records behind the decision log and
// the remediation agent, and the hashing that seals each decision entry.
package ledger

import (
	"errors"

	"github.com/davidahmann/complybus/pkg/types"
)

var (
	ErrDuplicateDecision    = errors.New("decision already recorded")
	ErrDuplicateRemediation = errors.New("remediation already recorded")
)

// Store is append-only for decisions and remediations. Playbook versions
// are keyed by content hash, so re-putting the same version is a no-op.
type Store interface {
	WithTx(fn func(Tx) error) error

	AppendDecision(entry types.DecisionLogEntry) error
	GetDecision(decisionID string) (types.DecisionLogEntry, bool)
	ListDecisions(filter DecisionFilter) []types.DecisionLogEntry
	CountDecisions() int

	AppendRemediation(rec RemediationRecord) error
	GetRemediation(actionID string) (RemediationRecord, bool)
	ListRemediations(violationID string) []RemediationRecord

	PutPlaybookVersion(rec PlaybookVersionRecord) error
	GetPlaybookVersion(playbookHash string) (PlaybookVersionRecord, bool)
}

type Tx interface {
	AppendDecision(entry types.DecisionLogEntry) error
	GetDecision(decisionID string) (types.DecisionLogEntry, bool)

	AppendRemediation(rec RemediationRecord) error
	GetRemediation(actionID string) (RemediationRecord, bool)

	PutPlaybookVersion(rec PlaybookVersionRecord) error
	GetPlaybookVersion(playbookHash string) (PlaybookVersionRecord, bool)
}

// DecisionFilter selects decisions most recent first. An empty AgentName
// matches every agent; Limit <= 0 returns all matches.
type DecisionFilter struct {
	AgentName string
	Limit     int
}

type RemediationRecord struct {
	ActionID     string
	ViolationID  string
	ActionType   string
	Description  string
	Priority     int
	AssignedTo   string
	Reasoning    string
	RuleID       string
	PlaybookHash string
	DecisionID   string
	DecisionHash string
	CreatedAt    string
}

type PlaybookVersionRecord struct {
	PlaybookHash    string
	PlaybookID      string
	PlaybookVersion string
	PlaybookYAML    string
	CreatedAt       string
}
