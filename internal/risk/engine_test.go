package risk

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/complybus/internal/bus"
	"github.com/davidahmann/complybus/internal/logging"
	"github.com/davidahmann/complybus/internal/observability"
	"github.com/davidahmann/complybus/pkg/types"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestEngine(opts ...Option) *Engine {
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return New(logging.NewTestLogger(), opts...)
}

func TestCalculateProfile(t *testing.T) {
	engine := newTestEngine()
	factors := []types.RiskFactor{factor(t, "F1", 0.5, 80), factor(t, "F2", 0.5, 20)}

	profile, err := engine.CalculateProfile(context.Background(), "proj-1", types.EntityProject, factors)
	require.NoError(t, err)

	assert.NotEmpty(t, profile.ProfileID)
	assert.Equal(t, "proj-1", profile.EntityID)
	assert.Equal(t, 50.0, profile.OverallScore)
	assert.Equal(t, types.RiskMedium, profile.RiskLevel)
	assert.Equal(t, fixedNow, profile.AssessedAt)
	assert.True(t, strings.HasPrefix(profile.ProfileHash, "sha256:"))
	assert.NoError(t, VerifyProfile(profile))

	factors[0].CurrentValue = 0
	assert.Equal(t, 80.0, profile.Factors[0].CurrentValue)
}

func TestCalculateProfileValidation(t *testing.T) {
	engine := newTestEngine()
	good := []types.RiskFactor{factor(t, "F1", 0.5, 80)}

	_, err := engine.CalculateProfile(context.Background(), "proj-1", "PLANET", good)
	assert.ErrorIs(t, err, types.ErrInvalidEntityType)

	_, err = engine.CalculateProfile(context.Background(), " ", types.EntitySite, good)
	assert.ErrorIs(t, err, types.ErrMissingField)

	bad := []types.RiskFactor{{FactorID: "F9", Category: types.CategoryVendor, Weight: 2, CurrentValue: 10}}
	_, err = engine.CalculateProfile(context.Background(), "proj-1", types.EntitySite, bad)
	assert.ErrorIs(t, err, types.ErrInvalidWeight)
}

func TestProfileHashDeterministicAndSensitive(t *testing.T) {
	engine := newTestEngine()
	factors := []types.RiskFactor{factor(t, "F1", 0.5, 80), factor(t, "F2", 0.5, 20)}

	a, err := engine.CalculateProfile(context.Background(), "vendor-9", types.EntityVendor, factors)
	require.NoError(t, err)
	b, err := engine.CalculateProfile(context.Background(), "vendor-9", types.EntityVendor, factors)
	require.NoError(t, err)

	assert.NotEqual(t, a.ProfileID, b.ProfileID)
	assert.Equal(t, a.ProfileHash, b.ProfileHash)

	mutations := map[string]func(p *types.RiskProfile){
		"entity id":    func(p *types.RiskProfile) { p.EntityID = "vendor-10" },
		"entity type":  func(p *types.RiskProfile) { p.EntityType = types.EntityContractor },
		"score":        func(p *types.RiskProfile) { p.OverallScore = 50.01 },
		"assessed at":  func(p *types.RiskProfile) { p.AssessedAt = p.AssessedAt.Add(time.Nanosecond) },
		"factor value": func(p *types.RiskProfile) { p.Factors[1].CurrentValue = 21 },
		"factor order": func(p *types.RiskProfile) { p.Factors[0], p.Factors[1] = p.Factors[1], p.Factors[0] },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := a.Clone()
			mutate(&p)
			got, err := ProfileHash(p)
			require.NoError(t, err)
			assert.NotEqual(t, a.ProfileHash, got)
			assert.True(t, errors.Is(VerifyProfile(p), ErrProfileHashMismatch))
		})
	}
}

func TestCalculateProfilePublishesEvent(t *testing.T) {
	b := bus.New(logging.NewTestLogger())
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	engine := newTestEngine(WithPublisher(b), WithMetrics(metrics))

	var got []types.Event
	b.Subscribe(types.EventRiskProfileCreated, func(_ context.Context, e types.Event) error {
		got = append(got, e)
		return nil
	})

	profile, err := engine.CalculateProfile(context.Background(), "site-3", types.EntitySite,
		[]types.RiskFactor{factor(t, "F1", 1, 90)})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityCritical, got[0].Severity())
	assert.Equal(t, SourceName, got[0].Source())
	payload := got[0].Payload()
	assert.Equal(t, profile.ProfileID, payload["profile_id"])
	assert.Equal(t, "site-3", payload["entity_id"])
	assert.Equal(t, 90.0, payload["overall_score"])
	assert.Equal(t, "CRITICAL", payload["risk_level"])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProfilesCalculated.WithLabelValues("CRITICAL")))
}

func TestTrackTrend(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	trend, err := engine.TrackTrend(ctx, "proj-1", 40)
	require.NoError(t, err)
	assert.Equal(t, types.TrendStable, trend.Direction)
	assert.Equal(t, 0.0, trend.ChangeRate)

	_, err = engine.TrackTrend(ctx, "proj-1", 50)
	require.NoError(t, err)
	trend, err = engine.TrackTrend(ctx, "proj-1", 56)
	require.NoError(t, err)

	assert.Equal(t, []float64{40, 50, 56}, trend.Scores)
	assert.Len(t, trend.Timestamps, 3)
	assert.Equal(t, types.TrendDegrading, trend.Direction)
	assert.Equal(t, 8.0, trend.ChangeRate)

	trend, err = engine.TrackTrend(ctx, "proj-1", 20)
	require.NoError(t, err)
	assert.Equal(t, types.TrendImproving, trend.Direction)
	assert.Equal(t, -15.0, trend.ChangeRate)
}

func TestDetermineTrend(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		direction types.TrendDirection
		rate      float64
	}{
		{"single", []float64{10}, types.TrendStable, 0},
		{"two rising", []float64{10, 12}, types.TrendDegrading, 2},
		{"within band", []float64{10, 11, 12}, types.TrendStable, 1},
		{"only last three", []float64{90, 10, 10, 10}, types.TrendStable, 0},
		{"falling", []float64{30, 20, 10}, types.TrendImproving, -10},
		{"rate rounded", []float64{0, 1, 3.3333333}, types.TrendDegrading, 1.6667},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direction, rate := DetermineTrend(tt.scores)
			assert.Equal(t, tt.direction, direction)
			assert.Equal(t, tt.rate, rate)
		})
	}
}

func TestTrackTrendRejectsOutOfRange(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.TrackTrend(context.Background(), "proj-1", 101)
	assert.ErrorIs(t, err, types.ErrScoreOutOfRange)

	_, err = engine.Trend("proj-1")
	assert.ErrorIs(t, err, ErrTrendNotFound)
}

func TestTrackTrendMaxHistory(t *testing.T) {
	engine := newTestEngine(WithMaxHistory(2))
	for _, s := range []float64{10, 20, 30, 40} {
		_, err := engine.TrackTrend(context.Background(), "v", s)
		require.NoError(t, err)
	}

	trend, err := engine.Trend("v")
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 40}, trend.Scores)
}

func TestTrendReturnsCopy(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.TrackTrend(context.Background(), "v", 10)
	require.NoError(t, err)

	trend, err := engine.Trend("v")
	require.NoError(t, err)
	trend.Scores[0] = 99

	again, err := engine.Trend("v")
	require.NoError(t, err)
	assert.Equal(t, 10.0, again.Scores[0])
}

func TestTrackTrendPublishesEvent(t *testing.T) {
	b := bus.New(logging.NewTestLogger())
	engine := newTestEngine(WithPublisher(b))

	var payloads []map[string]any
	b.Subscribe(types.EventRiskTrendUpdated, func(_ context.Context, e types.Event) error {
		payloads = append(payloads, e.Payload())
		return nil
	})

	_, err := engine.TrackTrend(context.Background(), "c-1", 10)
	require.NoError(t, err)
	_, err = engine.TrackTrend(context.Background(), "c-1", 30)
	require.NoError(t, err)

	require.Len(t, payloads, 2)
	assert.Equal(t, "DEGRADING", payloads[1]["trend_direction"])
	assert.Equal(t, 20.0, payloads[1]["change_rate"])
	assert.Equal(t, 2, payloads[1]["observation_count"])
}

func TestExplainScore(t *testing.T) {
	out := ExplainScore(82.5, []types.RiskFactor{factor(t, "F1", 0.5, 90), factor(t, "F2", 0.5, 75)})
	assert.Contains(t, out, "Risk Score: 82.5/100")
	assert.Contains(t, out, "factor F1 (REGULATORY): value 90.0 at weight 0.50, contributes 45.00 points")
	assert.True(t, strings.HasSuffix(out, "Assessment: HIGH RISK, immediate attention required."))

	assert.Contains(t, ExplainScore(10, nil), "No contributing factors were recorded.")
	assert.Contains(t, ExplainScore(40, nil), "MODERATE RISK")
}
