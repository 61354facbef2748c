// Package risk scores entities from weighted factors, classifies the result
// into a risk level, stamps profiles with an integrity hash and tracks how
// each entity's score moves over time.
package risk

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/davidahmann/complybus/internal/bus"
	"github.com/davidahmann/complybus/internal/observability"
	"github.com/davidahmann/complybus/pkg/types"
)

const SourceName = "risk_engine"

// trendLookback is how many of the latest observations feed the trend.
const trendLookback = 3

// stableBand is the absolute average change treated as no movement.
const stableBand = 1.0

type Option func(*Engine)

func WithPublisher(p bus.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMaxHistory caps the observations kept per entity. Zero keeps all.
func WithMaxHistory(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxHistory = n
		}
	}
}

type observation struct {
	score float64
	at    time.Time
}

type Engine struct {
	logger     zerolog.Logger
	publisher  bus.Publisher
	metrics    *observability.Metrics
	now        func() time.Time
	maxHistory int

	mu      sync.Mutex
	history map[string][]observation
}

func New(logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:  logger.With().Str("component", SourceName).Logger(),
		now:     time.Now,
		history: make(map[string][]observation),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculateProfile scores factors for one entity and returns a hashed
// profile. The factor slice is copied into the profile.
func (e *Engine) CalculateProfile(ctx context.Context, entityID string, entityType types.EntityType, factors []types.RiskFactor) (types.RiskProfile, error) {
	if strings.TrimSpace(entityID) == "" {
		return types.RiskProfile{}, fmt.Errorf("%w: entity_id", types.ErrMissingField)
	}
	if !entityType.Valid() {
		return types.RiskProfile{}, fmt.Errorf("%w: %q", types.ErrInvalidEntityType, entityType)
	}
	for _, f := range factors {
		if err := f.Validate(); err != nil {
			return types.RiskProfile{}, err
		}
	}

	score := CalculateScore(factors)
	profile := types.RiskProfile{
		ProfileID:    uuid.NewString(),
		EntityID:     entityID,
		EntityType:   entityType,
		Factors:      slices.Clone(factors),
		OverallScore: score,
		RiskLevel:    MustClassify(score),
		AssessedAt:   e.now().UTC(),
	}
	if profile.Factors == nil {
		profile.Factors = []types.RiskFactor{}
	}

	hash, err := ProfileHash(profile)
	if err != nil {
		return types.RiskProfile{}, err
	}
	profile.ProfileHash = hash

	e.metrics.ProfileCalculated(string(profile.RiskLevel))
	e.logger.Info().
		Str("action", "profile_created").
		Str("entity_id", entityID).
		Str("profile_id", profile.ProfileID).
		Float64("score", score).
		Str("level", string(profile.RiskLevel)).
		Msg("risk profile calculated")

	payload := types.ProfileCreatedPayload{
		ProfileID:    profile.ProfileID,
		EntityID:     entityID,
		OverallScore: score,
		RiskLevel:    profile.RiskLevel,
	}
	e.publish(ctx, types.EventRiskProfileCreated, profile.RiskLevel.Severity(), payload.Map())

	return profile, nil
}

// TrackTrend records score for entityID and returns the recomputed trend.
func (e *Engine) TrackTrend(ctx context.Context, entityID string, score float64) (types.RiskTrend, error) {
	if strings.TrimSpace(entityID) == "" {
		return types.RiskTrend{}, fmt.Errorf("%w: entity_id", types.ErrMissingField)
	}
	if math.IsNaN(score) || score < MinScore || score > MaxScore {
		return types.RiskTrend{}, fmt.Errorf("%w: %v", types.ErrScoreOutOfRange, score)
	}

	e.mu.Lock()
	obs := append(e.history[entityID], observation{score: score, at: e.now().UTC()})
	if e.maxHistory > 0 && len(obs) > e.maxHistory {
		obs = slices.Clone(obs[len(obs)-e.maxHistory:])
	}
	e.history[entityID] = obs
	trend := buildTrend(entityID, obs)
	e.mu.Unlock()

	e.logger.Debug().
		Str("action", "trend_updated").
		Str("entity_id", entityID).
		Str("direction", string(trend.Direction)).
		Float64("change_rate", trend.ChangeRate).
		Int("observations", len(trend.Scores)).
		Msg("risk trend updated")

	payload := types.TrendUpdatedPayload{
		EntityID:         entityID,
		Direction:        trend.Direction,
		ChangeRate:       trend.ChangeRate,
		ObservationCount: len(trend.Scores),
	}
	e.publish(ctx, types.EventRiskTrendUpdated, types.SeverityLow, payload.Map())

	return trend, nil
}

// Trend returns the current trend for entityID without recording anything.
func (e *Engine) Trend(entityID string) (types.RiskTrend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	obs, ok := e.history[entityID]
	if !ok || len(obs) == 0 {
		return types.RiskTrend{}, fmt.Errorf("%w: %s", ErrTrendNotFound, entityID)
	}
	return buildTrend(entityID, obs), nil
}

func (e *Engine) publish(ctx context.Context, eventType string, severity types.Severity, payload map[string]any) {
	if e.publisher == nil {
		return
	}
	event, err := types.NewEvent(eventType, SourceName, severity, payload)
	if err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Msg("building event")
		return
	}
	e.publisher.Publish(ctx, event)
}

// buildTrend copies the observations into a trend value. Callers hold e.mu.
func buildTrend(entityID string, obs []observation) types.RiskTrend {
	scores := make([]float64, len(obs))
	timestamps := make([]time.Time, len(obs))
	for i, o := range obs {
		scores[i] = o.score
		timestamps[i] = o.at
	}
	direction, rate := DetermineTrend(scores)
	return types.RiskTrend{
		EntityID:   entityID,
		Scores:     scores,
		Timestamps: timestamps,
		Direction:  direction,
		ChangeRate: rate,
	}
}

// DetermineTrend averages the deltas between the last three scores (fewer
// when the history is shorter). A rise above one point per observation is
// DEGRADING, a fall beyond one point is IMPROVING.
func DetermineTrend(scores []float64) (types.TrendDirection, float64) {
	if len(scores) < 2 {
		return types.TrendStable, 0
	}

	recent := scores
	if len(recent) > trendLookback {
		recent = recent[len(recent)-trendLookback:]
	}
	sum := 0.0
	for i := 1; i < len(recent); i++ {
		sum += recent[i] - recent[i-1]
	}
	rate := Round(sum/float64(len(recent)-1), 4)

	switch {
	case rate > stableBand:
		return types.TrendDegrading, rate
	case rate < -stableBand:
		return types.TrendImproving, rate
	default:
		return types.TrendStable, rate
	}
}
