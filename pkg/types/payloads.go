package types

// Payload contracts for the outbound events. Each payload carries ids,
// scores and levels only; consumers fetch full records through the query
// operations when they need them.
//
//	risk.profile.created     profile_id, entity_id, overall_score, risk_level
//	risk.trend.updated       entity_id, trend_direction, change_rate, observation_count
//	audit.decision.logged    decision_id, agent_name, decision, confidence
//	monitoring.alert.raised  alert_id, alert_type, critical_count, related_events
//
// Inbound compliance.violation events are read through ViolationFromEvent.

type ProfileCreatedPayload struct {
	ProfileID    string
	EntityID     string
	OverallScore float64
	RiskLevel    RiskLevel
}

func (p ProfileCreatedPayload) Map() map[string]any {
	return map[string]any{
		"profile_id":    p.ProfileID,
		"entity_id":     p.EntityID,
		"overall_score": p.OverallScore,
		"risk_level":    string(p.RiskLevel),
	}
}

type TrendUpdatedPayload struct {
	EntityID         string
	Direction        TrendDirection
	ChangeRate       float64
	ObservationCount int
}

func (p TrendUpdatedPayload) Map() map[string]any {
	return map[string]any{
		"entity_id":         p.EntityID,
		"trend_direction":   string(p.Direction),
		"change_rate":       p.ChangeRate,
		"observation_count": p.ObservationCount,
	}
}

type DecisionLoggedPayload struct {
	DecisionID string
	AgentName  string
	Decision   string
	Confidence float64
}

func (p DecisionLoggedPayload) Map() map[string]any {
	return map[string]any{
		"decision_id": p.DecisionID,
		"agent_name":  p.AgentName,
		"decision":    p.Decision,
		"confidence":  p.Confidence,
	}
}

type AlertRaisedPayload struct {
	AlertID       string
	AlertType     string
	CriticalCount int
	RelatedEvents []string
}

func (p AlertRaisedPayload) Map() map[string]any {
	related := make([]any, 0, len(p.RelatedEvents))
	for _, id := range p.RelatedEvents {
		related = append(related, id)
	}
	return map[string]any{
		"alert_id":       p.AlertID,
		"alert_type":     p.AlertType,
		"critical_count": p.CriticalCount,
		"related_events": related,
	}
}

// Violation is the consumer view of a compliance.violation payload.
type Violation struct {
	ViolationID string
	Rule        string
	Description string
	Severity    Severity
}

// ViolationFromEvent reads the documented keys, falling back to the event id
// when the producer did not assign a violation_id.
func ViolationFromEvent(e Event) Violation {
	v := Violation{
		ViolationID: e.String("violation_id"),
		Rule:        e.String("rule"),
		Description: e.String("description"),
		Severity:    e.Severity(),
	}
	if v.ViolationID == "" {
		v.ViolationID = e.ID()
	}
	return v
}
