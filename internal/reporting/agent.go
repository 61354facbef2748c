package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/davidahmann/complybus/internal/bus"
	"github.com/davidahmann/complybus/internal/observability"
	"github.com/davidahmann/complybus/pkg/types"
)

const AgentName = "reporting_agent"

// DecisionReport is the decision recorded for every generated report.
const DecisionReport = "REPORT_GENERATED"

type Subscriber interface {
	Subscribe(eventType string, handler bus.Handler)
}

type DecisionLogger interface {
	LogDecision(ctx context.Context, agentName, decision, reasoning string, confidence float64, inputData, metadata map[string]any) (types.DecisionLogEntry, error)
}

type Option func(*Agent)

func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

type Agent struct {
	decisions DecisionLogger
	logger    zerolog.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	mu      sync.Mutex
	reports []Report
	byID    map[string]int
}

func NewAgent(decisions DecisionLogger, logger zerolog.Logger, opts ...Option) *Agent {
	if decisions == nil {
		panic("reporting: nil decision logger")
	}
	a := &Agent{
		decisions: decisions,
		logger:    logger.With().Str("component", AgentName).Logger(),
		now:       time.Now,
		byID:      map[string]int{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Register(s Subscriber) {
	s.Subscribe(types.EventComplianceReportRequest, a.HandleEvent)
	a.logger.Info().Str("action", "initialized").Msg("reporting agent registered")
}

func (a *Agent) HandleEvent(ctx context.Context, event types.Event) error {
	_, err := a.GenerateReport(ctx, event)
	return err
}

// GenerateReport scores the violation counts of a report request, logs the
// decision and keeps the report. Payload keys: title, period_start and
// period_end (RFC 3339, default now) and violations (counts by severity).
func (a *Agent) GenerateReport(ctx context.Context, event types.Event) (Report, error) {
	now := a.now().UTC()

	title := strings.TrimSpace(event.String("title"))
	if title == "" {
		title = DefaultTitle
	}
	start, err := periodBound(event, "period_start", now)
	if err != nil {
		return Report{}, err
	}
	end, err := periodBound(event, "period_end", now)
	if err != nil {
		return Report{}, err
	}
	if end.Before(start) {
		return Report{}, fmt.Errorf("%w: period_end before period_start", ErrInvalidReportRequest)
	}
	counts, err := violationCounts(event)
	if err != nil {
		return Report{}, err
	}

	score := ComplianceScore(counts)
	report := Report{
		ReportID:         uuid.NewString(),
		Title:            title,
		GeneratedAt:      now,
		PeriodStart:      start,
		PeriodEnd:        end,
		TotalViolations:  counts.Total(),
		CriticalCount:    counts.Critical,
		HighCount:        counts.High,
		MediumCount:      counts.Medium,
		LowCount:         counts.Low,
		ComplianceScore:  score,
		ExecutiveSummary: ExecutiveSummary(counts, score),
		Recommendations:  Recommendations(counts),
	}
	if report.ReportHash, err = ReportHash(report); err != nil {
		return Report{}, fmt.Errorf("hash report: %w", err)
	}

	entry, err := a.decisions.LogDecision(ctx, AgentName, DecisionReport,
		fmt.Sprintf("Report %q scored %.1f/100 over %d violations.", title, score, report.TotalViolations),
		1.0,
		event.Payload(),
		map[string]any{
			"report_id":        report.ReportID,
			"report_hash":      report.ReportHash,
			"event_id":         event.ID(),
			"compliance_score": score,
		})
	if err != nil {
		return Report{}, fmt.Errorf("log report decision: %w", err)
	}
	report.DecisionID = entry.DecisionID

	a.mu.Lock()
	a.byID[report.ReportID] = len(a.reports)
	a.reports = append(a.reports, report.Clone())
	a.mu.Unlock()

	a.metrics.ReportGenerated()
	a.logger.Info().
		Str("action", "report_generated").
		Str("report_id", report.ReportID).
		Int("total_violations", report.TotalViolations).
		Float64("compliance_score", score).
		Str("report_hash", report.ReportHash).
		Msg("compliance report generated")

	return report, nil
}

// Reports lists generated reports in generation order.
func (a *Agent) Reports() []Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Report, 0, len(a.reports))
	for _, r := range a.reports {
		out = append(out, r.Clone())
	}
	return out
}

func (a *Agent) Report(reportID string) (Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.byID[reportID]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	return a.reports[i].Clone(), nil
}

func periodBound(event types.Event, key string, fallback time.Time) (time.Time, error) {
	raw, ok := event.Value(key)
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidReportRequest, key, err)
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %s has type %T", ErrInvalidReportRequest, key, raw)
	}
}

func violationCounts(event types.Event) (Counts, error) {
	raw, ok := event.Value("violations")
	if !ok || raw == nil {
		return Counts{}, nil
	}

	byLevel := map[string]any{}
	switch v := raw.(type) {
	case map[string]any:
		byLevel = v
	case map[string]int:
		for k, n := range v {
			byLevel[k] = n
		}
	default:
		return Counts{}, fmt.Errorf("%w: violations has type %T", ErrInvalidReportRequest, raw)
	}

	var c Counts
	for key, dst := range map[string]*int{
		string(types.SeverityCritical): &c.Critical,
		string(types.SeverityHigh):     &c.High,
		string(types.SeverityMedium):   &c.Medium,
		string(types.SeverityLow):      &c.Low,
	} {
		value, present := byLevel[key]
		if !present {
			continue
		}
		n, err := count(value)
		if err != nil {
			return Counts{}, fmt.Errorf("%w: violations.%s: %v", ErrInvalidReportRequest, key, err)
		}
		*dst = n
	}
	return c, nil
}

func count(v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
	if math.IsNaN(f) || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("not a non-negative integer: %v", v)
	}
	return int(f), nil
}
