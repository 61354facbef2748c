// Package scenario runs what-if simulations: it re-scores a risk profile
// with some factor values replaced, without touching the profile itself.
package scenario

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/davidahmann/complybus/internal/observability"
	"github.com/davidahmann/complybus/internal/risk"
	"github.com/davidahmann/complybus/pkg/types"
)

// Scenario maps factor ids to the value each factor should assume. Factors
// not named keep their current value; unknown ids are ignored.
type Scenario struct {
	ScenarioID        string             `json:"scenario_id" yaml:"scenario_id"`
	Name              string             `json:"name" yaml:"name"`
	Description       string             `json:"description" yaml:"description"`
	FactorAdjustments map[string]float64 `json:"factor_adjustments" yaml:"factor_adjustments"`
}

// New fills in a generated id and copies adjustments.
func New(name, description string, adjustments map[string]float64) Scenario {
	return Scenario{
		ScenarioID:        uuid.NewString(),
		Name:              name,
		Description:       description,
		FactorAdjustments: maps.Clone(adjustments),
	}
}

type Result struct {
	ScenarioID      string    `json:"scenario_id"`
	ScenarioName    string    `json:"scenario_name"`
	OriginalScore   float64   `json:"original_score"`
	ProjectedScore  float64   `json:"projected_score"`
	ScoreDelta      float64   `json:"score_delta"`
	RiskLevelChange string    `json:"risk_level_change"`
	ImpactedFactors []string  `json:"impacted_factors"`
	SimulatedAt     time.Time `json:"simulated_at"`
}

type Option func(*Simulator)

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Simulator) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// Simulator is stateless apart from its collaborators and safe for
// concurrent use.
type Simulator struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewSimulator(logger zerolog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		logger: logger.With().Str("component", "scenario_simulator").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate projects base under sc. The base profile and its factors are
// read only.
func (s *Simulator) Simulate(base types.RiskProfile, sc Scenario) Result {
	adjusted := make([]types.RiskFactor, 0, len(base.Factors))
	impacted := []string{}
	for _, f := range base.Factors {
		value, ok := sc.FactorAdjustments[f.FactorID]
		if !ok {
			adjusted = append(adjusted, f)
			continue
		}
		adjusted = append(adjusted, f.WithValue(risk.Clamp(value)))
		impacted = append(impacted, f.FactorID)
	}

	projected := risk.CalculateScore(adjusted)
	delta := risk.Round(projected-base.OverallScore, 2)
	change := fmt.Sprintf("%s -> %s", base.RiskLevel, risk.MustClassify(projected))

	result := Result{
		ScenarioID:      sc.ScenarioID,
		ScenarioName:    sc.Name,
		OriginalScore:   base.OverallScore,
		ProjectedScore:  projected,
		ScoreDelta:      delta,
		RiskLevelChange: change,
		ImpactedFactors: impacted,
		SimulatedAt:     s.now().UTC(),
	}

	s.metrics.SimulationRun()
	s.logger.Info().
		Str("action", "simulation_complete").
		Str("scenario", sc.Name).
		Str("entity_id", base.EntityID).
		Float64("delta", delta).
		Str("change", change).
		Msg("scenario simulated")

	return result
}

// CompareScenarios simulates each scenario independently against base and
// returns the results in input order.
func (s *Simulator) CompareScenarios(base types.RiskProfile, scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, s.Simulate(base, sc))
	}
	return results
}
