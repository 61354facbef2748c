package risk

import (
	"fmt"
	"time"

	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/pkg/types"
)

// ProfileHash digests the canonical JSON of the entity, factors, score and
// assessment time. The profile id and level are not covered: the level is
// derived from the score and the id is assigned per assessment.
func ProfileHash(p types.RiskProfile) (string, error) {
	factors := make([]any, 0, len(p.Factors))
	for _, f := range p.Factors {
		factors = append(factors, factorView(f))
	}

	view := map[string]any{
		"entity_id":     p.EntityID,
		"entity_type":   string(p.EntityType),
		"factors":       factors,
		"overall_score": p.OverallScore,
		"assessed_at":   p.AssessedAt.UTC().Format(time.RFC3339Nano),
	}
	digest, err := crypto.HashCanonical(view)
	if err != nil {
		return "", fmt.Errorf("hash profile: %w", err)
	}
	return digest, nil
}

// VerifyProfile recomputes the profile hash and compares it to the stored one.
func VerifyProfile(p types.RiskProfile) error {
	want, err := ProfileHash(p)
	if err != nil {
		return err
	}
	if !crypto.EqualDigests(want, p.ProfileHash) {
		return fmt.Errorf("%w: profile %s", ErrProfileHashMismatch, p.ProfileID)
	}
	return nil
}

func factorView(f types.RiskFactor) map[string]any {
	return map[string]any{
		"factor_id":     f.FactorID,
		"name":          f.Name,
		"category":      string(f.Category),
		"weight":        f.Weight,
		"current_value": f.CurrentValue,
		"description":   f.Description,
	}
}
