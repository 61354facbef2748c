package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/complybus/internal/crypto"
)

func TestLoadScenarios(t *testing.T) {
	loaded, err := LoadScenarios("../../scenarios/mitigation.yaml")
	require.NoError(t, err)

	data, err := os.ReadFile("../../scenarios/mitigation.yaml")
	require.NoError(t, err)
	assert.Equal(t, crypto.DigestWithPrefix(data), loaded.Hash)

	require.Len(t, loaded.Scenarios, 2)
	assert.Equal(t, "close-open-violations", loaded.Scenarios[0].ScenarioID)
	assert.Equal(t, 10.0, loaded.Scenarios[0].FactorAdjustments["regulatory_findings"])
	assert.NotEmpty(t, loaded.Scenarios[1].ScenarioID)
	assert.Len(t, loaded.Scenarios[1].FactorAdjustments, 2)
}

func TestParseScenariosRequiresName(t *testing.T) {
	_, err := ParseScenarios([]byte("scenarios:\n  - description: unnamed\n"))
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestParseScenariosRejectsNonFiniteAdjustments(t *testing.T) {
	for _, raw := range []string{".nan", ".inf", "-.inf"} {
		doc := "scenarios:\n  - name: broken\n    factor_adjustments:\n      F1: " + raw + "\n"
		_, err := ParseScenarios([]byte(doc))
		assert.ErrorIs(t, err, ErrInvalidScenario, raw)
	}
}

func TestLoadScenariosErrors(t *testing.T) {
	_, err := LoadScenarios(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios: [::"), 0o600))
	_, err = LoadScenarios(path)
	assert.Error(t, err)
}
