package api

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/davidahmann/complybus/internal/risk"
	"github.com/davidahmann/complybus/internal/scenario"
	"github.com/davidahmann/complybus/pkg/types"
)

func (s *Server) Score(c *gin.Context) {
	var req ScoreRequest
	if !s.bind(c, &req) {
		return
	}
	factors, err := toFactors(req.Factors)
	if err != nil {
		s.fail(c, err)
		return
	}

	score := risk.CalculateScore(factors)
	c.JSON(http.StatusOK, gin.H{
		"score":       score,
		"risk_level":  risk.MustClassify(score),
		"explanation": risk.ExplainScore(score, factors),
	})
}

func (s *Server) Profile(c *gin.Context) {
	var req ProfileRequest
	if !s.bind(c, &req) {
		return
	}
	entityType, err := types.ParseEntityType(req.EntityType)
	if err != nil {
		s.fail(c, err)
		return
	}
	factors, err := toFactors(req.Factors)
	if err != nil {
		s.fail(c, err)
		return
	}

	profile, err := s.app.Risk.CalculateProfile(c.Request.Context(), req.EntityID, entityType, factors)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (s *Server) RecordTrend(c *gin.Context) {
	var req TrendRequest
	if !s.bind(c, &req) {
		return
	}
	trend, err := s.app.Risk.TrackTrend(c.Request.Context(), req.EntityID, *req.Score)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

func (s *Server) GetTrend(c *gin.Context) {
	trend, err := s.app.Risk.Trend(c.Param("entity_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

func (s *Server) Simulate(c *gin.Context) {
	var req SimulateRequest
	if !s.bind(c, &req) {
		return
	}
	base, err := baseProfile(req.EntityID, req.EntityType, req.Factors)
	if err != nil {
		s.fail(c, err)
		return
	}

	var sc scenario.Scenario
	switch {
	case req.Scenario != nil:
		sc = req.Scenario.scenario()
	case req.ScenarioID != "":
		found, ok := s.configuredScenario(req.ScenarioID)
		if !ok {
			s.fail(c, fmt.Errorf("%w: %s", errUnknownScenario, req.ScenarioID))
			return
		}
		sc = found
	default:
		s.fail(c, fmt.Errorf("%w: scenario or scenario_id required", scenario.ErrInvalidScenario))
		return
	}

	c.JSON(http.StatusOK, s.app.Simulator.Simulate(base, sc))
}

func (s *Server) Compare(c *gin.Context) {
	var req CompareRequest
	if !s.bind(c, &req) {
		return
	}
	base, err := baseProfile(req.EntityID, req.EntityType, req.Factors)
	if err != nil {
		s.fail(c, err)
		return
	}

	scenarios := make([]scenario.Scenario, 0, len(req.Scenarios)+len(req.ScenarioIDs))
	for _, r := range req.Scenarios {
		scenarios = append(scenarios, r.scenario())
	}
	for _, id := range req.ScenarioIDs {
		found, ok := s.configuredScenario(id)
		if !ok {
			s.fail(c, fmt.Errorf("%w: %s", errUnknownScenario, id))
			return
		}
		scenarios = append(scenarios, found)
	}
	if len(req.Scenarios) == 0 && len(req.ScenarioIDs) == 0 {
		scenarios = append(scenarios, s.app.Scenarios.Scenarios...)
	}

	c.JSON(http.StatusOK, gin.H{
		"original_score": base.OverallScore,
		"results":        s.app.Simulator.CompareScenarios(base, scenarios),
	})
}

func (s *Server) ListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scenarios":     s.app.Scenarios.Scenarios,
		"scenario_hash": s.app.Scenarios.Hash,
	})
}

func (s *Server) configuredScenario(id string) (scenario.Scenario, bool) {
	i := slices.IndexFunc(s.app.Scenarios.Scenarios, func(sc scenario.Scenario) bool {
		return sc.ScenarioID == id
	})
	if i < 0 {
		return scenario.Scenario{}, false
	}
	return s.app.Scenarios.Scenarios[i], true
}

// baseProfile scores factors without recording a profile, so simulations
// leave no trace in the engine.
func baseProfile(entityID, entityType string, in []FactorRequest) (types.RiskProfile, error) {
	factors, err := toFactors(in)
	if err != nil {
		return types.RiskProfile{}, err
	}
	p := types.RiskProfile{
		EntityID: entityID,
		Factors:  factors,
	}
	if entityType != "" {
		if p.EntityType, err = types.ParseEntityType(entityType); err != nil {
			return types.RiskProfile{}, err
		}
	}
	p.OverallScore = risk.CalculateScore(factors)
	p.RiskLevel = risk.MustClassify(p.OverallScore)
	return p, nil
}
