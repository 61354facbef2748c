package crypto

import "testing"

func BenchmarkCanonicalize(b *testing.B) {
	input := map[string]any{
		"entity_id":   "site-17",
		"entity_type": "SITE",
		"factors": []any{
			map[string]any{"factor_id": "F1", "weight": 0.5, "current_value": 60.0},
			map[string]any{"factor_id": "F2", "weight": 0.5, "current_value": 40.0},
		},
		"overall_score": 50.0,
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Canonicalize(input); err != nil {
			b.Fatalf("canonicalize: %v", err)
		}
	}
}
