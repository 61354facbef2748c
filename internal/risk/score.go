package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/davidahmann/complybus/pkg/types"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Upper bounds (inclusive) of each level below CRITICAL.
const (
	lowCeiling    = 25.0
	mediumCeiling = 50.0
	highCeiling   = 75.0
)

// CalculateScore returns the weight-averaged factor value, clamped to
// [0,100] and rounded half away from zero to two decimals. It returns 0 when
// there are no factors or the weights sum to zero.
func CalculateScore(factors []types.RiskFactor) float64 {
	if len(factors) == 0 {
		return 0
	}

	totalWeight := 0.0
	weighted := 0.0
	for _, f := range factors {
		totalWeight += f.Weight
		weighted += f.Weight * f.CurrentValue
	}
	if totalWeight == 0 {
		return 0
	}
	return Round(Clamp(weighted/totalWeight), 2)
}

// ClassifyRiskLevel maps a score onto its level. Scores outside [0,100]
// are rejected.
func ClassifyRiskLevel(score float64) (types.RiskLevel, error) {
	if math.IsNaN(score) || score < MinScore || score > MaxScore {
		return "", fmt.Errorf("%w: %v", types.ErrScoreOutOfRange, score)
	}
	switch {
	case score <= lowCeiling:
		return types.RiskLow, nil
	case score <= mediumCeiling:
		return types.RiskMedium, nil
	case score <= highCeiling:
		return types.RiskHigh, nil
	default:
		return types.RiskCritical, nil
	}
}

// MustClassify is ClassifyRiskLevel for scores already known to be in range,
// such as CalculateScore results.
func MustClassify(score float64) types.RiskLevel {
	level, err := ClassifyRiskLevel(score)
	if err != nil {
		panic(err)
	}
	return level
}

// Clamp bounds v to [MinScore, MaxScore]. NaN maps to MinScore.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// Round rounds half away from zero using decimal arithmetic so values such
// as 2.675 do not drift through binary representation. Non-finite values
// are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
