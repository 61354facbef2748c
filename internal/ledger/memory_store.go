package ledger

import (
	"sync"

	"github.com/davidahmann/complybus/pkg/types"
)

// InMemoryStore keeps records for the life of the process. Decisions and
// remediations are held in insertion order with an id index.
type InMemoryStore struct {
	mu sync.Mutex

	decisions     []types.DecisionLogEntry
	decisionIndex map[string]int

	remediations     []RemediationRecord
	remediationIndex map[string]int

	playbooks map[string]PlaybookVersionRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		decisionIndex:    make(map[string]int),
		remediationIndex: make(map[string]int),
		playbooks:        make(map[string]PlaybookVersionRecord),
	}
}

func (s *InMemoryStore) WithTx(fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn((*memTx)(s))
}

type memTx InMemoryStore

func (s *InMemoryStore) AppendDecision(entry types.DecisionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).AppendDecision(entry)
}

func (s *InMemoryStore) GetDecision(decisionID string) (types.DecisionLogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).GetDecision(decisionID)
}

func (s *InMemoryStore) ListDecisions(filter DecisionFilter) []types.DecisionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []types.DecisionLogEntry{}
	for i := len(s.decisions) - 1; i >= 0; i-- {
		entry := s.decisions[i]
		if filter.AgentName != "" && entry.AgentName != filter.AgentName {
			continue
		}
		out = append(out, entry.Clone())
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

func (s *InMemoryStore) CountDecisions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions)
}

func (s *InMemoryStore) AppendRemediation(rec RemediationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).AppendRemediation(rec)
}

func (s *InMemoryStore) GetRemediation(actionID string) (RemediationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).GetRemediation(actionID)
}

// ListRemediations returns records for violationID in insertion order. An
// empty id lists everything.
func (s *InMemoryStore) ListRemediations(violationID string) []RemediationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []RemediationRecord{}
	for _, rec := range s.remediations {
		if violationID != "" && rec.ViolationID != violationID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (s *InMemoryStore) PutPlaybookVersion(rec PlaybookVersionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).PutPlaybookVersion(rec)
}

func (s *InMemoryStore) GetPlaybookVersion(playbookHash string) (PlaybookVersionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).GetPlaybookVersion(playbookHash)
}

func (t *memTx) AppendDecision(entry types.DecisionLogEntry) error {
	if _, exists := t.decisionIndex[entry.DecisionID]; exists {
		return ErrDuplicateDecision
	}
	t.decisionIndex[entry.DecisionID] = len(t.decisions)
	t.decisions = append(t.decisions, entry.Clone())
	return nil
}

func (t *memTx) GetDecision(decisionID string) (types.DecisionLogEntry, bool) {
	i, ok := t.decisionIndex[decisionID]
	if !ok {
		return types.DecisionLogEntry{}, false
	}
	return t.decisions[i].Clone(), true
}

func (t *memTx) AppendRemediation(rec RemediationRecord) error {
	if _, exists := t.remediationIndex[rec.ActionID]; exists {
		return ErrDuplicateRemediation
	}
	t.remediationIndex[rec.ActionID] = len(t.remediations)
	t.remediations = append(t.remediations, rec)
	return nil
}

func (t *memTx) GetRemediation(actionID string) (RemediationRecord, bool) {
	i, ok := t.remediationIndex[actionID]
	if !ok {
		return RemediationRecord{}, false
	}
	return t.remediations[i], true
}

func (t *memTx) PutPlaybookVersion(rec PlaybookVersionRecord) error {
	t.playbooks[rec.PlaybookHash] = rec
	return nil
}

func (t *memTx) GetPlaybookVersion(playbookHash string) (PlaybookVersionRecord, bool) {
	rec, ok := t.playbooks[playbookHash]
	return rec, ok
}
