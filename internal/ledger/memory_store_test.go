package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/complybus/pkg/types"
)

func entry(id, agent string) types.DecisionLogEntry {
	return types.DecisionLogEntry{
		DecisionID: id,
		AgentName:  agent,
		Decision:   "NOTIFY",
		Confidence: 0.9,
		Timestamp:  time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		Metadata:   map[string]any{"k": "v"},
	}
}

func TestInMemoryStoreDecisions(t *testing.T) {
	s := NewInMemoryStore()
	for i := 1; i <= 4; i++ {
		agent := "remediation"
		if i%2 == 0 {
			agent = "monitoring"
		}
		require.NoError(t, s.AppendDecision(entry(fmt.Sprintf("d%d", i), agent)))
	}

	got, ok := s.GetDecision("d3")
	require.True(t, ok)
	assert.Equal(t, "remediation", got.AgentName)

	_, ok = s.GetDecision("missing")
	assert.False(t, ok)

	ids := func(entries []types.DecisionLogEntry) []string {
		out := []string{}
		for _, e := range entries {
			out = append(out, e.DecisionID)
		}
		return out
	}
	assert.Equal(t, []string{"d4", "d3", "d2", "d1"}, ids(s.ListDecisions(DecisionFilter{})))
	assert.Equal(t, []string{"d4", "d3"}, ids(s.ListDecisions(DecisionFilter{Limit: 2})))
	assert.Equal(t, []string{"d3", "d1"}, ids(s.ListDecisions(DecisionFilter{AgentName: "remediation"})))
	assert.Equal(t, []string{"d4"}, ids(s.ListDecisions(DecisionFilter{AgentName: "monitoring", Limit: 1})))
	assert.Empty(t, s.ListDecisions(DecisionFilter{AgentName: "nobody"}))
	assert.Equal(t, 4, s.CountDecisions())
}

func TestInMemoryStoreDecisionsAreAppendOnly(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.AppendDecision(entry("d1", "a")))

	err := s.AppendDecision(entry("d1", "b"))
	assert.True(t, errors.Is(err, ErrDuplicateDecision))

	got, _ := s.GetDecision("d1")
	assert.Equal(t, "a", got.AgentName)
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	s := NewInMemoryStore()
	e := entry("d1", "a")
	require.NoError(t, s.AppendDecision(e))
	e.Metadata["k"] = "changed"

	got, _ := s.GetDecision("d1")
	assert.Equal(t, "v", got.Metadata["k"])
	got.Metadata["k"] = "changed again"

	listed := s.ListDecisions(DecisionFilter{})
	assert.Equal(t, "v", listed[0].Metadata["k"])
}

func TestInMemoryStoreRemediationsAndPlaybooks(t *testing.T) {
	s := NewInMemoryStore()

	err := s.WithTx(func(tx Tx) error {
		if err := tx.PutPlaybookVersion(PlaybookVersionRecord{PlaybookHash: "sha256:pb", PlaybookID: "default", PlaybookVersion: "1"}); err != nil {
			return err
		}
		if err := tx.AppendRemediation(RemediationRecord{ActionID: "a1", ViolationID: "v1", ActionType: "ESCALATE"}); err != nil {
			return err
		}
		return tx.AppendRemediation(RemediationRecord{ActionID: "a2", ViolationID: "v2", ActionType: "NOTIFY"})
	})
	require.NoError(t, err)

	rec, ok := s.GetRemediation("a1")
	require.True(t, ok)
	assert.Equal(t, "ESCALATE", rec.ActionType)
	assert.Len(t, s.ListRemediations(""), 2)
	assert.Len(t, s.ListRemediations("v2"), 1)
	assert.ErrorIs(t, s.AppendRemediation(RemediationRecord{ActionID: "a1"}), ErrDuplicateRemediation)

	pb, ok := s.GetPlaybookVersion("sha256:pb")
	require.True(t, ok)
	assert.Equal(t, "default", pb.PlaybookID)
}

func TestWithTxPropagatesError(t *testing.T) {
	s := NewInMemoryStore()
	boom := errors.New("boom")
	err := s.WithTx(func(tx Tx) error {
		if err := tx.AppendDecision(entry("d1", "a")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
