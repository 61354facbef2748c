package api

import (
	"github.com/davidahmann/complybus/internal/scenario"
	"github.com/davidahmann/complybus/pkg/types"
)

type PublishEventRequest struct {
	EventType string         `json:"event_type" validate:"required"`
	Source    string         `json:"source" validate:"required"`
	Severity  string         `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Payload   map[string]any `json:"payload"`
}

type FactorRequest struct {
	FactorID     string  `json:"factor_id" validate:"required"`
	Name         string  `json:"name"`
	Category     string  `json:"category" validate:"required"`
	Weight       float64 `json:"weight"`
	CurrentValue float64 `json:"current_value"`
	Description  string  `json:"description"`
}

type ScoreRequest struct {
	Factors []FactorRequest `json:"factors" validate:"dive"`
}

type ProfileRequest struct {
	EntityID   string          `json:"entity_id" validate:"required"`
	EntityType string          `json:"entity_type" validate:"required"`
	Factors    []FactorRequest `json:"factors" validate:"dive"`
}

type TrendRequest struct {
	EntityID string   `json:"entity_id" validate:"required"`
	Score    *float64 `json:"score" validate:"required"`
}

type ScenarioRequest struct {
	ScenarioID        string             `json:"scenario_id"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	FactorAdjustments map[string]float64 `json:"factor_adjustments"`
}

// SimulateRequest carries the base factors and either an inline scenario or
// the id of a configured one.
type SimulateRequest struct {
	EntityID   string           `json:"entity_id"`
	EntityType string           `json:"entity_type"`
	Factors    []FactorRequest  `json:"factors" validate:"required,min=1,dive"`
	Scenario   *ScenarioRequest `json:"scenario"`
	ScenarioID string           `json:"scenario_id"`
}

// CompareRequest compares inline scenarios, configured ones by id, or every
// configured scenario when both lists are empty.
type CompareRequest struct {
	EntityID    string            `json:"entity_id"`
	EntityType  string            `json:"entity_type"`
	Factors     []FactorRequest   `json:"factors" validate:"required,min=1,dive"`
	Scenarios   []ScenarioRequest `json:"scenarios"`
	ScenarioIDs []string          `json:"scenario_ids"`
}

type LogDecisionRequest struct {
	AgentName  string         `json:"agent_name" validate:"required"`
	Decision   string         `json:"decision" validate:"required"`
	Reasoning  string         `json:"reasoning"`
	Confidence float64        `json:"confidence"`
	InputData  map[string]any `json:"input_data"`
	Metadata   map[string]any `json:"metadata"`
}

func toFactors(in []FactorRequest) ([]types.RiskFactor, error) {
	out := make([]types.RiskFactor, 0, len(in))
	for _, f := range in {
		factor, err := types.NewRiskFactor(f.FactorID, f.Name, types.RiskCategory(f.Category), f.Weight, f.CurrentValue, f.Description)
		if err != nil {
			return nil, err
		}
		out = append(out, factor)
	}
	return out, nil
}

func (r ScenarioRequest) scenario() scenario.Scenario {
	sc := scenario.New(r.Name, r.Description, r.FactorAdjustments)
	if r.ScenarioID != "" {
		sc.ScenarioID = r.ScenarioID
	}
	return sc
}
