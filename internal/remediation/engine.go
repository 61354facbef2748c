package remediation

import (
	"strings"

	"github.com/davidahmann/complybus/pkg/types"
)

type Input struct {
	EventType   string
	Severity    types.Severity
	Rule        string
	ViolationID string
}

type Plan struct {
	ActionType      string
	Priority        int
	AssignedTo      string
	Description     string
	Confidence      float64
	MatchedRuleID   string
	ReasonCodes     []string
	PlaybookID      string
	PlaybookVersion string
	PlaybookHash    string
}

// Evaluate applies the first matching rule to input, otherwise defaults.
// "{violation_id}" and "{severity}" in descriptions are expanded.
func Evaluate(p Playbook, playbookHash string, input Input) Plan {
	plan := Plan{
		ActionType:      p.Defaults.ActionType,
		Priority:        p.Defaults.Priority,
		AssignedTo:      p.Defaults.AssignedTo,
		Description:     p.Defaults.Description,
		Confidence:      p.Defaults.Confidence,
		PlaybookID:      p.PlaybookID,
		PlaybookVersion: p.PlaybookVersion,
		PlaybookHash:    playbookHash,
	}

	for _, rule := range p.Rules {
		if !matchRule(rule.Match, input) {
			continue
		}

		plan.MatchedRuleID = rule.ID
		plan.ReasonCodes = append(plan.ReasonCodes, "PLAYBOOK_MATCH:"+rule.ID)

		if rule.Effect.ActionType != "" {
			plan.ActionType = rule.Effect.ActionType
		}
		if rule.Effect.Priority != nil {
			plan.Priority = *rule.Effect.Priority
		}
		if rule.Effect.AssignedTo != "" {
			plan.AssignedTo = rule.Effect.AssignedTo
		}
		if rule.Effect.Description != "" {
			plan.Description = rule.Effect.Description
		}
		if rule.Effect.Confidence != nil {
			plan.Confidence = *rule.Effect.Confidence
		}
		break
	}

	if plan.MatchedRuleID == "" {
		plan.ReasonCodes = append(plan.ReasonCodes, "PLAYBOOK_DEFAULT")
	}
	plan.Description = expand(plan.Description, input)
	return plan
}

func matchRule(match PlaybookMatch, input Input) bool {
	if match.EventType != "" && match.EventType != input.EventType {
		return false
	}
	if match.Severity != "" && !strings.EqualFold(match.Severity, string(input.Severity)) {
		return false
	}
	if match.Rule != "" && match.Rule != input.Rule {
		return false
	}
	return true
}

func expand(template string, input Input) string {
	return strings.NewReplacer(
		"{violation_id}", input.ViolationID,
		"{severity}", string(input.Severity),
	).Replace(template)
}
