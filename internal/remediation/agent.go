// Package remediation decides what to do about compliance violations. A
// YAML playbook maps each violation onto an action, priority and owner; the
// agent records the action and logs the decision in the decision log.
package remediation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/davidahmann/complybus/internal/bus"
	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/internal/ledger"
	"github.com/davidahmann/complybus/pkg/types"
)

const AgentName = "remediation_agent"

// DecisionLogger is the part of the decision log the agent writes to.
type DecisionLogger interface {
	LogDecision(ctx context.Context, agentName, decision, reasoning string, confidence float64, inputData, metadata map[string]any) (types.DecisionLogEntry, error)
}

type Subscriber interface {
	Subscribe(eventType string, handler bus.Handler)
}

type Action struct {
	ActionID     string    `json:"action_id"`
	ViolationID  string    `json:"violation_id"`
	ActionType   string    `json:"action_type"`
	Description  string    `json:"description"`
	Priority     int       `json:"priority"`
	AssignedTo   string    `json:"assigned_to,omitempty"`
	Reasoning    string    `json:"reasoning"`
	RuleID       string    `json:"rule_id,omitempty"`
	PlaybookHash string    `json:"playbook_hash"`
	DecisionID   string    `json:"decision_id"`
	DecisionHash string    `json:"decision_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type Agent struct {
	playbook  LoadedPlaybook
	store     ledger.Store
	decisions DecisionLogger
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAgent(playbook LoadedPlaybook, store ledger.Store, decisions DecisionLogger, logger zerolog.Logger, now func() time.Time) *Agent {
	if store == nil || decisions == nil {
		panic("remediation: nil store or decision logger")
	}
	if now == nil {
		now = time.Now
	}
	return &Agent{
		playbook:  playbook,
		store:     store,
		decisions: decisions,
		logger:    logger.With().Str("component", AgentName).Logger(),
		now:       now,
	}
}

func (a *Agent) Register(s Subscriber) {
	s.Subscribe(types.EventComplianceViolation, a.HandleEvent)
	a.logger.Info().
		Str("action", "initialized").
		Str("playbook_id", a.playbook.Playbook.PlaybookID).
		Str("playbook_hash", a.playbook.Hash).
		Msg("remediation agent registered")
}

func (a *Agent) HandleEvent(ctx context.Context, event types.Event) error {
	_, err := a.HandleViolation(ctx, event)
	return err
}

// HandleViolation plans, logs and records the remediation for one violation
// event.
func (a *Agent) HandleViolation(ctx context.Context, event types.Event) (Action, error) {
	v := types.ViolationFromEvent(event)
	plan := Evaluate(a.playbook.Playbook, a.playbook.Hash, Input{
		EventType:   event.Type(),
		Severity:    v.Severity,
		Rule:        v.Rule,
		ViolationID: v.ViolationID,
	})

	reasoning := fmt.Sprintf("Violation %s classified as %s. Playbook %s maps it to %s with priority %d.",
		v.ViolationID, v.Severity, plan.PlaybookID, plan.ActionType, plan.Priority)
	if plan.MatchedRuleID != "" {
		reasoning += " Matched rule " + plan.MatchedRuleID + "."
	}

	decisionHash, err := DecisionHash(v.ViolationID, v.Severity, plan.ActionType, reasoning)
	if err != nil {
		return Action{}, err
	}

	action := Action{
		ActionID:     uuid.NewString(),
		ViolationID:  v.ViolationID,
		ActionType:   plan.ActionType,
		Description:  plan.Description,
		Priority:     plan.Priority,
		AssignedTo:   plan.AssignedTo,
		Reasoning:    reasoning,
		RuleID:       plan.MatchedRuleID,
		PlaybookHash: plan.PlaybookHash,
		DecisionHash: decisionHash,
		CreatedAt:    a.now().UTC(),
	}

	// The decision is logged before the action is stored so that no stored
	// action lacks its audit entry. If storing fails the entry stays in the
	// log, its action_id naming an action that was never recorded.
	entry, err := a.decisions.LogDecision(ctx, AgentName, plan.ActionType, reasoning, plan.Confidence,
		event.Payload(),
		map[string]any{
			"action_id":     action.ActionID,
			"violation_id":  action.ViolationID,
			"event_id":      event.ID(),
			"priority":      action.Priority,
			"assigned_to":   action.AssignedTo,
			"decision_hash": decisionHash,
			"playbook_hash": plan.PlaybookHash,
			"reason_codes":  plan.ReasonCodes,
		})
	if err != nil {
		return Action{}, fmt.Errorf("log remediation decision: %w", err)
	}
	action.DecisionID = entry.DecisionID

	err = a.store.WithTx(func(tx ledger.Tx) error {
		if _, ok := tx.GetPlaybookVersion(a.playbook.Hash); !ok {
			if err := tx.PutPlaybookVersion(ledger.PlaybookVersionRecord{
				PlaybookHash:    a.playbook.Hash,
				PlaybookID:      a.playbook.Playbook.PlaybookID,
				PlaybookVersion: a.playbook.Playbook.PlaybookVersion,
				PlaybookYAML:    string(a.playbook.Bytes),
				CreatedAt:       action.CreatedAt.Format(time.RFC3339),
			}); err != nil {
				return err
			}
		}
		return tx.AppendRemediation(toRecord(action))
	})
	if err != nil {
		return Action{}, fmt.Errorf("record remediation: %w", err)
	}

	a.logger.Info().
		Str("action", "remediation_decided").
		Str("violation_id", action.ViolationID).
		Str("action_type", action.ActionType).
		Int("priority", action.Priority).
		Str("decision_hash", decisionHash).
		Msg("remediation decided")

	return action, nil
}

// Actions lists recorded actions in the order they were decided. An empty
// violationID lists all.
func (a *Agent) Actions(violationID string) []Action {
	records := a.store.ListRemediations(violationID)
	out := make([]Action, 0, len(records))
	for _, rec := range records {
		out = append(out, fromRecord(rec))
	}
	return out
}

func (a *Agent) Playbook() LoadedPlaybook {
	return a.playbook
}

// DecisionHash digests the inputs that determined the action.
func DecisionHash(violationID string, severity types.Severity, actionType, reasoning string) (string, error) {
	return crypto.HashCanonical(map[string]any{
		"violation_id": violationID,
		"severity":     string(severity),
		"action_type":  actionType,
		"reasoning":    reasoning,
	})
}

func toRecord(a Action) ledger.RemediationRecord {
	return ledger.RemediationRecord{
		ActionID:     a.ActionID,
		ViolationID:  a.ViolationID,
		ActionType:   a.ActionType,
		Description:  a.Description,
		Priority:     a.Priority,
		AssignedTo:   a.AssignedTo,
		Reasoning:    a.Reasoning,
		RuleID:       a.RuleID,
		PlaybookHash: a.PlaybookHash,
		DecisionID:   a.DecisionID,
		DecisionHash: a.DecisionHash,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339Nano),
	}
}

func fromRecord(rec ledger.RemediationRecord) Action {
	created, _ := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	return Action{
		ActionID:     rec.ActionID,
		ViolationID:  rec.ViolationID,
		ActionType:   rec.ActionType,
		Description:  rec.Description,
		Priority:     rec.Priority,
		AssignedTo:   rec.AssignedTo,
		Reasoning:    rec.Reasoning,
		RuleID:       rec.RuleID,
		PlaybookHash: rec.PlaybookHash,
		DecisionID:   rec.DecisionID,
		DecisionHash: rec.DecisionHash,
		CreatedAt:    created,
	}
}
