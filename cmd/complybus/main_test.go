package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/complybus/internal/reporting"
)

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"complybus"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	code, stdout, _ := runCLI()
	assert.Equal(t, 2, code)
	assert.Contains(t, stdout, "Usage:")

	code, _, _ = runCLI("nope")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI("score")
	assert.Equal(t, 2, code)
}

func TestScore(t *testing.T) {
	code, stdout, stderr := runCLI("score", "../../scenarios/factors.yaml")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "score=55.00 risk_level=HIGH")
	assert.Contains(t, stdout, "Assessment:")

	code, stdout, _ = runCLI("score", "--json", "../../scenarios/factors.yaml")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, `"risk_level": "HIGH"`)

	code, _, stderr = runCLI("score", "missing.yaml")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, stderr)
}

func TestScoreRejectsInvalidFactor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("factors:\n  - factor_id: f\n    category: SAFETY\n    weight: 3\n    current_value: 10\n"), 0o600))

	code, _, stderr := runCLI("score", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "weight")
}

func TestSimulate(t *testing.T) {
	code, stdout, stderr := runCLI("simulate", "--scenarios", "../../scenarios/mitigation.yaml", "../../scenarios/factors.yaml")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "base score=55.00")
	assert.Contains(t, stdout, "Close open violations: projected=31.00 delta=-24.00 HIGH -> MEDIUM")
	assert.Contains(t, stdout, "Vendor insurance lapse: projected=77.50 delta=+22.50 HIGH -> CRITICAL")
}

func TestDecisionsList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/v1/decisions", r.URL.Path)
		assert.Equal(t, "reviewer", r.URL.Query().Get("agent"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"decisions":[{"decision_id":"d1","agent_name":"reviewer","decision":"APPROVE","confidence":0.9,"timestamp":"2026-10-01T12:00:00Z"}]}`))
	}))
	defer server.Close()

	code, stdout, stderr := runCLI("decisions", "list", "--addr", server.URL, "--token", "test-token", "--agent", "reviewer", "--limit", "5")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "2026-10-01T12:00:00Z d1 reviewer APPROVE confidence=0.90\n", stdout)
}

func TestDecisionsGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/decisions/d1/explain", r.URL.Path)
		_, _ = w.Write([]byte(`{"plain_language_summary":"Agent reviewer decided APPROVE.","confidence_assessment":"HIGH CONFIDENCE","regulatory_references":["OSHA 1926.501"]}`))
	}))
	defer server.Close()

	code, stdout, stderr := runCLI("decisions", "get", "--addr", server.URL, "d1")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "confidence: HIGH CONFIDENCE")
	assert.Contains(t, stdout, "references: OSHA 1926.501")
}

func TestDecisionsVerify(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
		wantOut  string
	}{
		{"valid", http.StatusOK, `{"decision_id":"d1","valid":true}`, 0, "valid=true"},
		{"invalid", http.StatusOK, `{"decision_id":"d1","valid":false,"error":"hash mismatch"}`, 1, "valid=false"},
		{"not found", http.StatusNotFound, `{"error":"decision not found"}`, 1, ""},
		{"bad json", http.StatusOK, `{invalid`, 1, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			code, stdout, _ := runCLI("decisions", "verify", "--addr", server.URL, "d1")
			assert.Equal(t, tc.wantCode, code)
			assert.Contains(t, stdout, tc.wantOut)
		})
	}
}

func TestDecisionsJSONOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"decision_id":"d1","valid":true}`))
	}))
	defer server.Close()

	code, stdout, _ := runCLI("decisions", "verify", "--addr", server.URL, "--json", "d1")
	require.Equal(t, 0, code)
	assert.Equal(t, `{"decision_id":"d1","valid":true}`, stdout)
}

func sealedReport(t *testing.T) reporting.Report {
	t.Helper()
	c := reporting.Counts{High: 1}
	score := reporting.ComplianceScore(c)
	r := reporting.Report{
		ReportID:         "r1",
		Title:            "Weekly",
		GeneratedAt:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		PeriodStart:      time.Date(2026, 9, 24, 0, 0, 0, 0, time.UTC),
		PeriodEnd:        time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		TotalViolations:  1,
		HighCount:        1,
		ComplianceScore:  score,
		ExecutiveSummary: reporting.ExecutiveSummary(c, score),
		Recommendations:  reporting.Recommendations(c),
	}
	hash, err := reporting.ReportHash(r)
	require.NoError(t, err)
	r.ReportHash = hash
	return r
}

func TestReportsList(t *testing.T) {
	body, err := json.Marshal(map[string]any{"reports": []reporting.Report{sealedReport(t)}})
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/reports", r.URL.Path)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	code, stdout, stderr := runCLI("reports", "list", "--addr", server.URL)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "2026-10-01T12:00:00Z r1 \"Weekly\" score=95.0 violations=1\n", stdout)
}

func TestReportsGetVerifiesHash(t *testing.T) {
	sealed := sealedReport(t)
	tampered := sealed.Clone()
	tampered.ComplianceScore = 100

	tests := []struct {
		name     string
		report   reporting.Report
		wantCode int
		wantOut  string
	}{
		{"sealed", sealed, 0, "valid=true"},
		{"tampered", tampered, 1, "valid=false"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(tc.report)
			require.NoError(t, err)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/reports/r1", r.URL.Path)
				_, _ = w.Write(body)
			}))
			defer server.Close()

			code, stdout, _ := runCLI("reports", "get", "--addr", server.URL, "r1")
			assert.Equal(t, tc.wantCode, code)
			assert.Contains(t, stdout, "Weekly (r1)")
			assert.Contains(t, stdout, tc.wantOut)
		})
	}
}

func TestAuditBundle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("zip-content"))
	}))
	defer server.Close()

	outPath := filepath.Join(t.TempDir(), "out", "bundle.zip")
	code, stdout, stderr := runCLI("audit", "bundle", "--addr", server.URL, "--out", outPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "wrote")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "zip-content", string(data))
}

func TestAuditBundleFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	code, _, stderr := runCLI("audit", "bundle", "--addr", server.URL)
	assert.Equal(t, 1, code)
	assert.True(t, strings.Contains(stderr, "request failed (403)"), stderr)
}

func TestLint(t *testing.T) {
	code, stdout, stderr := runCLI("playbook", "lint", "../../playbooks/remediation.yaml")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "ok playbook_id=site-safety")

	code, stdout, stderr = runCLI("config", "lint", "../../configs/complybus.yaml")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "ok listen_addr=:8080 threshold=5 window=1h0m0s")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus:\n  max_depth: 0\n"), 0o600))
	code, _, stderr = runCLI("config", "lint", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "max_depth")
}
