package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/pkg/types"
)

// DefaultExportLimit caps JSON exports when the caller passes no limit.
const DefaultExportLimit = 1000

type Summary struct {
	TotalDecisions    int            `json:"total_decisions"`
	DecisionsByAgent  map[string]int `json:"decisions_by_agent"`
	AverageConfidence float64        `json:"average_confidence"`
	DateRangeStart    *time.Time     `json:"date_range_start"`
	DateRangeEnd      *time.Time     `json:"date_range_end"`
	GeneratedAt       time.Time      `json:"generated_at"`
	SummaryHash       string         `json:"summary_hash"`
}

type ExportOption func(*Exporter)

func WithExportClock(now func() time.Time) ExportOption {
	return func(x *Exporter) {
		if now != nil {
			x.now = now
		}
	}
}

// WithPlaybookYAML includes the active remediation playbook in bundles.
func WithPlaybookYAML(data []byte) ExportOption {
	return func(x *Exporter) {
		x.playbook = data
	}
}

type Exporter struct {
	log      *Log
	now      func() time.Time
	playbook []byte
}

func NewExporter(log *Log, opts ...ExportOption) *Exporter {
	x := &Exporter{log: log, now: time.Now}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ExportJSON renders up to limit entries, most recent first, as an indented
// JSON array. limit <= 0 uses DefaultExportLimit.
func (x *Exporter) ExportJSON(agentName string, limit int) ([]byte, error) {
	return json.MarshalIndent(x.records(agentName, limit), "", "  ")
}

func (x *Exporter) records(agentName string, limit int) []types.DecisionLogEntry {
	if limit <= 0 {
		limit = DefaultExportLimit
	}
	return x.log.Decisions(agentName, limit)
}

// ExportSummary aggregates every matching entry and stamps the result with
// a hash over its own fields.
func (x *Exporter) ExportSummary(agentName string) (Summary, error) {
	entries := x.log.Decisions(agentName, 0)

	s := Summary{
		TotalDecisions:   len(entries),
		DecisionsByAgent: map[string]int{},
		GeneratedAt:      x.now().UTC(),
	}
	sum := 0.0
	for _, e := range entries {
		s.DecisionsByAgent[e.AgentName]++
		sum += e.Confidence
		ts := e.Timestamp
		if s.DateRangeStart == nil || ts.Before(*s.DateRangeStart) {
			s.DateRangeStart = &ts
		}
		if s.DateRangeEnd == nil || ts.After(*s.DateRangeEnd) {
			s.DateRangeEnd = &ts
		}
	}
	if len(entries) > 0 {
		s.AverageConfidence = sum / float64(len(entries))
	}

	hash, err := SummaryHash(s)
	if err != nil {
		return Summary{}, err
	}
	s.SummaryHash = hash
	return s, nil
}

// SummaryHash digests every summary field except the hash.
func SummaryHash(s Summary) (string, error) {
	byAgent := make(map[string]any, len(s.DecisionsByAgent))
	for agent, n := range s.DecisionsByAgent {
		byAgent[agent] = n
	}

	view := map[string]any{
		"total_decisions":    s.TotalDecisions,
		"decisions_by_agent": byAgent,
		"average_confidence": s.AverageConfidence,
		"date_range_start":   formatOptional(s.DateRangeStart),
		"date_range_end":     formatOptional(s.DateRangeEnd),
		"generated_at":       s.GeneratedAt.UTC().Format(time.RFC3339Nano),
	}
	digest, err := crypto.HashCanonical(view)
	if err != nil {
		return "", fmt.Errorf("hash summary: %w", err)
	}
	return digest, nil
}

// ExportPDF is not supported.
func (x *Exporter) ExportPDF(string, int) ([]byte, error) {
	return nil, ErrPDFExportNotImplemented
}

func formatOptional(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
