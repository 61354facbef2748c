package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidahmann/complybus/internal/reporting"
	"github.com/davidahmann/complybus/pkg/types"
)

func newDecisionsCmd(client *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Query the decision log of a running gateway",
	}

	var agent string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List decisions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if agent != "" {
				q.Set("agent", agent)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			body, err := client.get("/v1/decisions?" + q.Encode())
			if err != nil {
				return err
			}
			if client.jsonOut {
				_, _ = cmd.OutOrStdout().Write(body)
				return nil
			}
			var payload struct {
				Decisions []types.DecisionLogEntry `json:"decisions"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return failf("invalid response: %v", err)
			}
			for _, d := range payload.Decisions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s confidence=%.2f\n",
					d.Timestamp.Format("2006-01-02T15:04:05Z07:00"), d.DecisionID, d.AgentName, d.Decision, d.Confidence)
			}
			return nil
		},
	}
	list.Flags().StringVar(&agent, "agent", "", "only decisions by this agent")
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of decisions")

	get := &cobra.Command{
		Use:   "get <decision_id>",
		Short: "Show one decision with its explanation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := client.get("/v1/decisions/" + url.PathEscape(args[0]) + "/explain")
			if err != nil {
				return err
			}
			if client.jsonOut {
				_, _ = cmd.OutOrStdout().Write(body)
				return nil
			}
			var payload struct {
				Summary              string   `json:"plain_language_summary"`
				ConfidenceAssessment string   `json:"confidence_assessment"`
				RegulatoryReferences []string `json:"regulatory_references"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return failf("invalid response: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload.Summary)
			fmt.Fprintf(cmd.OutOrStdout(), "confidence: %s\n", payload.ConfidenceAssessment)
			if len(payload.RegulatoryReferences) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "references: %s\n", strings.Join(payload.RegulatoryReferences, ", "))
			}
			return nil
		},
	}

	verify := &cobra.Command{
		Use:   "verify <decision_id>",
		Short: "Recompute the entry hash of a decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := client.get("/v1/decisions/" + url.PathEscape(args[0]) + "/verify")
			if err != nil {
				return err
			}
			if client.jsonOut {
				_, _ = cmd.OutOrStdout().Write(body)
				return nil
			}
			var payload struct {
				DecisionID string `json:"decision_id"`
				Valid      bool   `json:"valid"`
				Error      string `json:"error,omitempty"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return failf("invalid response: %v", err)
			}
			if payload.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "valid=true decision_id=%s\n", payload.DecisionID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid=false decision_id=%s error=%s\n", payload.DecisionID, payload.Error)
			return failf("decision %s failed verification", payload.DecisionID)
		},
	}

	cmd.AddCommand(list, get, verify)
	return cmd
}

func newReportsCmd(client *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Read compliance reports from a running gateway",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List generated reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := client.get("/v1/reports")
			if err != nil {
				return err
			}
			if client.jsonOut {
				_, _ = cmd.OutOrStdout().Write(body)
				return nil
			}
			var payload struct {
				Reports []reporting.Report `json:"reports"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return failf("invalid response: %v", err)
			}
			for _, r := range payload.Reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %q score=%.1f violations=%d\n",
					r.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"), r.ReportID, r.Title, r.ComplianceScore, r.TotalViolations)
			}
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <report_id>",
		Short: "Show one report and check its content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := client.get("/v1/reports/" + url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			var r reporting.Report
			if err := json.Unmarshal(body, &r); err != nil {
				return failf("invalid response: %v", err)
			}
			verifyErr := reporting.VerifyReport(r)
			if client.jsonOut {
				_, _ = cmd.OutOrStdout().Write(body)
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n", r.Title, r.ReportID)
				fmt.Fprintln(out, r.ExecutiveSummary)
				for _, rec := range r.Recommendations {
					fmt.Fprintf(out, "- %s\n", rec)
				}
				fmt.Fprintf(out, "hash: %s valid=%t\n", r.ReportHash, verifyErr == nil)
			}
			if verifyErr != nil {
				return failf("report %s: %v", r.ReportID, verifyErr)
			}
			return nil
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

func newAuditCmd(client *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Download audit exports",
	}

	var agent, outPath string
	bundle := &cobra.Command{
		Use:   "bundle",
		Short: "Download the audit bundle zip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if agent != "" {
				q.Set("agent", agent)
			}
			body, err := client.get("/v1/audit/bundle?" + q.Encode())
			if err != nil {
				return err
			}
			if dir := filepath.Dir(outPath); dir != "." {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return failf("output dir: %v", err)
				}
			}
			if err := os.WriteFile(outPath, body, 0o600); err != nil {
				return failf("write output: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
	bundle.Flags().StringVar(&agent, "agent", "", "only decisions by this agent")
	bundle.Flags().StringVar(&outPath, "out", "complybus-audit-bundle.zip", "output zip path")

	cmd.AddCommand(bundle)
	return cmd
}

// get performs an authenticated GET and fails on any non-200 status.
func (o *clientOptions) get(path string) ([]byte, error) {
	body, status, err := httpGet(http.DefaultClient, strings.TrimRight(o.addr, "/")+path, o.token)
	if err != nil {
		return nil, failure{err: err}
	}
	if status != http.StatusOK {
		return nil, failf("request failed (%d): %s", status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func httpGet(client *http.Client, target string, token string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
