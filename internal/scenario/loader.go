package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/davidahmann/complybus/internal/crypto"
)

var ErrInvalidScenario = errors.New("invalid scenario")

type File struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

type LoadedScenarios struct {
	Scenarios []Scenario
	Hash      string
	Bytes     []byte
}

// LoadScenarios reads a YAML scenario file and hashes its raw bytes so a
// simulation run can be tied to the exact file it used.
func LoadScenarios(path string) (LoadedScenarios, error) {
	// #nosec G304 -- path is supplied by the operator.
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadedScenarios{}, err
	}
	scenarios, err := ParseScenarios(data)
	if err != nil {
		return LoadedScenarios{}, fmt.Errorf("%s: %w", path, err)
	}
	return LoadedScenarios{
		Scenarios: scenarios,
		Hash:      crypto.DigestWithPrefix(data),
		Bytes:     data,
	}, nil
}

// ParseScenarios decodes the YAML document, rejects non-finite adjustment
// values and assigns ids to scenarios that have none.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	for i := range f.Scenarios {
		sc := &f.Scenarios[i]
		if strings.TrimSpace(sc.Name) == "" {
			return nil, fmt.Errorf("%w: scenario %d has no name", ErrInvalidScenario, i)
		}
		for id, v := range sc.FactorAdjustments {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: scenario %q adjusts %s to non-finite value %v", ErrInvalidScenario, sc.Name, id, v)
			}
		}
		if sc.ScenarioID == "" {
			sc.ScenarioID = uuid.NewString()
		}
		if sc.FactorAdjustments == nil {
			sc.FactorAdjustments = map[string]float64{}
		}
	}
	return f.Scenarios, nil
}
