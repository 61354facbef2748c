package types

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

type RiskCategory string

const (
	CategoryRegulatory  RiskCategory = "REGULATORY"
	CategoryOperational RiskCategory = "OPERATIONAL"
	CategoryFinancial   RiskCategory = "FINANCIAL"
	CategorySafety      RiskCategory = "SAFETY"
	CategoryVendor      RiskCategory = "VENDOR"
)

func (c RiskCategory) Valid() bool {
	switch c {
	case CategoryRegulatory, CategoryOperational, CategoryFinancial, CategorySafety, CategoryVendor:
		return true
	default:
		return false
	}
}

type EntityType string

const (
	EntityProject    EntityType = "PROJECT"
	EntityContractor EntityType = "CONTRACTOR"
	EntityVendor     EntityType = "VENDOR"
	EntitySite       EntityType = "SITE"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityProject, EntityContractor, EntityVendor, EntitySite:
		return true
	default:
		return false
	}
}

// ParseEntityType accepts any casing.
func ParseEntityType(raw string) (EntityType, error) {
	t := EntityType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, raw)
	}
	return t, nil
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Severity maps a risk level onto the event severity of the same name.
func (l RiskLevel) Severity() Severity {
	return Severity(l)
}

type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendStable    TrendDirection = "STABLE"
	TrendDegrading TrendDirection = "DEGRADING"
)

// RiskFactor is a single weighted input to a profile. It is a value type;
// copies never share state.
type RiskFactor struct {
	FactorID     string       `json:"factor_id" yaml:"factor_id"`
	Name         string       `json:"name" yaml:"name"`
	Category     RiskCategory `json:"category" yaml:"category"`
	Weight       float64      `json:"weight" yaml:"weight"`
	CurrentValue float64      `json:"current_value" yaml:"current_value"`
	Description  string       `json:"description" yaml:"description"`
}

// NewRiskFactor builds a validated factor.
func NewRiskFactor(id, name string, category RiskCategory, weight, value float64, description string) (RiskFactor, error) {
	f := RiskFactor{
		FactorID:     id,
		Name:         name,
		Category:     category,
		Weight:       weight,
		CurrentValue: value,
		Description:  description,
	}
	if err := f.Validate(); err != nil {
		return RiskFactor{}, err
	}
	return f, nil
}

// Validate reports the first constraint the factor violates.
func (f RiskFactor) Validate() error {
	if strings.TrimSpace(f.FactorID) == "" {
		return fmt.Errorf("%w: factor_id", ErrMissingField)
	}
	if !f.Category.Valid() {
		return fmt.Errorf("factor %s: %w: %q", f.FactorID, ErrInvalidCategory, f.Category)
	}
	if math.IsNaN(f.Weight) || f.Weight < 0 || f.Weight > 1 {
		return fmt.Errorf("factor %s: %w: %v", f.FactorID, ErrInvalidWeight, f.Weight)
	}
	if math.IsNaN(f.CurrentValue) || f.CurrentValue < 0 || f.CurrentValue > 100 {
		return fmt.Errorf("factor %s: %w: %v", f.FactorID, ErrInvalidValue, f.CurrentValue)
	}
	return nil
}

// WithValue returns a copy of f carrying value.
func (f RiskFactor) WithValue(value float64) RiskFactor {
	f.CurrentValue = value
	return f
}

// RiskProfile is the scored snapshot of one entity at one point in time.
// A re-assessment produces a new profile rather than updating this one.
type RiskProfile struct {
	ProfileID    string       `json:"profile_id"`
	EntityID     string       `json:"entity_id"`
	EntityType   EntityType   `json:"entity_type"`
	Factors      []RiskFactor `json:"factors"`
	OverallScore float64      `json:"overall_score"`
	RiskLevel    RiskLevel    `json:"risk_level"`
	AssessedAt   time.Time    `json:"assessed_at"`
	ProfileHash  string       `json:"profile_hash"`
}

// Clone returns a deep copy so callers cannot reach the factor slice of a
// profile held elsewhere.
func (p RiskProfile) Clone() RiskProfile {
	p.Factors = slices.Clone(p.Factors)
	return p
}

// FactorIDs lists factor ids in profile order.
func (p RiskProfile) FactorIDs() []string {
	ids := make([]string, 0, len(p.Factors))
	for _, f := range p.Factors {
		ids = append(ids, f.FactorID)
	}
	return ids
}

type RiskTrend struct {
	EntityID   string         `json:"entity_id"`
	Scores     []float64      `json:"scores"`
	Timestamps []time.Time    `json:"timestamps"`
	Direction  TrendDirection `json:"trend_direction"`
	ChangeRate float64        `json:"change_rate"`
}
