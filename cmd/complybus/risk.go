package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/davidahmann/complybus/internal/risk"
	"github.com/davidahmann/complybus/internal/scenario"
	"github.com/davidahmann/complybus/pkg/types"
)

// factorsFile is the offline input for score and simulate.
type factorsFile struct {
	EntityID   string             `yaml:"entity_id"`
	EntityType string             `yaml:"entity_type"`
	Factors    []types.RiskFactor `yaml:"factors"`
}

func loadFactors(path string) (factorsFile, error) {
	// #nosec G304 -- path is supplied on the command line.
	data, err := os.ReadFile(path)
	if err != nil {
		return factorsFile{}, err
	}
	var f factorsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return factorsFile{}, fmt.Errorf("%s: %w", path, err)
	}
	for _, factor := range f.Factors {
		if err := factor.Validate(); err != nil {
			return factorsFile{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	return f, nil
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <factors.yaml>",
		Short: "Score a factor file without a gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFactors(args[0])
			if err != nil {
				return failure{err: err}
			}
			score := risk.CalculateScore(f.Factors)
			level := risk.MustClassify(score)

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd, map[string]any{
					"entity_id":  f.EntityID,
					"score":      score,
					"risk_level": level,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "score=%.2f risk_level=%s\n", score, level)
			fmt.Fprintln(cmd.OutOrStdout(), risk.ExplainScore(score, f.Factors))
			return nil
		},
	}
}

func newSimulateCmd() *cobra.Command {
	var scenariosPath string
	cmd := &cobra.Command{
		Use:   "simulate <factors.yaml>",
		Short: "Run every scenario in a scenario file against a factor file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFactors(args[0])
			if err != nil {
				return failure{err: err}
			}
			loaded, err := scenario.LoadScenarios(scenariosPath)
			if err != nil {
				return failure{err: err}
			}

			base := types.RiskProfile{
				EntityID:     f.EntityID,
				EntityType:   types.EntityType(f.EntityType),
				Factors:      f.Factors,
				OverallScore: risk.CalculateScore(f.Factors),
			}
			base.RiskLevel = risk.MustClassify(base.OverallScore)

			sim := scenario.NewSimulator(zerolog.Nop())
			results := sim.CompareScenarios(base, loaded.Scenarios)

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd, map[string]any{
					"scenario_hash": loaded.Hash,
					"results":       results,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "base score=%.2f risk_level=%s scenario_hash=%s\n", base.OverallScore, base.RiskLevel, loaded.Hash)
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: projected=%.2f delta=%+.2f %s\n", r.ScenarioName, r.ProjectedScore, r.ScoreDelta, r.RiskLevelChange)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenariosPath, "scenarios", "scenarios/mitigation.yaml", "scenario file")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return failure{err: err}
	}
	return nil
}
