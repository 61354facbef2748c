// Package audit is the decision log: an append-only, hash-stamped record of
// what each agent decided and why, plus explanation and export views over
// it.
package audit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/davidahmann/complybus/internal/bus"
	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/internal/ledger"
	"github.com/davidahmann/complybus/internal/observability"
	"github.com/davidahmann/complybus/pkg/types"
)

const (
	SourceName = "decision_log"

	DefaultInputSummaryMaxLen = 256

	truncationMarker = "..."
)

type Option func(*Log)

func WithPublisher(p bus.Publisher) Option {
	return func(l *Log) {
		l.publisher = p
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(l *Log) {
		l.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithInputSummaryMaxLen sets the summary length in runes, marker included.
// Values too short to hold the marker are ignored.
func WithInputSummaryMaxLen(n int) Option {
	return func(l *Log) {
		if n > len(truncationMarker) {
			l.summaryMaxLen = n
		}
	}
}

type Log struct {
	store     ledger.Store
	logger    zerolog.Logger
	publisher bus.Publisher
	metrics   *observability.Metrics
	now       func() time.Time

	summaryMaxLen int
}

func NewLog(store ledger.Store, logger zerolog.Logger, opts ...Option) *Log {
	if store == nil {
		panic("audit: nil ledger store")
	}
	l := &Log{
		store:         store,
		logger:        logger.With().Str("component", SourceName).Logger(),
		now:           time.Now,
		summaryMaxLen: DefaultInputSummaryMaxLen,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogDecision seals and appends a new entry, then publishes
// audit.decision.logged. inputData is stored only as a truncated canonical
// JSON summary.
func (l *Log) LogDecision(ctx context.Context, agentName, decision, reasoning string, confidence float64, inputData, metadata map[string]any) (types.DecisionLogEntry, error) {
	if strings.TrimSpace(agentName) == "" {
		return types.DecisionLogEntry{}, fmt.Errorf("%w: agent_name", types.ErrMissingField)
	}
	if strings.TrimSpace(decision) == "" {
		return types.DecisionLogEntry{}, fmt.Errorf("%w: decision", types.ErrMissingField)
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return types.DecisionLogEntry{}, fmt.Errorf("%w: %v", types.ErrInvalidConfidence, confidence)
	}

	summary, err := l.summarize(inputData)
	if err != nil {
		return types.DecisionLogEntry{}, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	entry, err := ledger.SealEntry(types.DecisionLogEntry{
		DecisionID:   uuid.NewString(),
		AgentName:    agentName,
		Decision:     decision,
		Reasoning:    reasoning,
		Confidence:   confidence,
		InputSummary: summary,
		Timestamp:    l.now().UTC(),
		Metadata:     metadata,
	})
	if err != nil {
		return types.DecisionLogEntry{}, err
	}
	if err := l.store.AppendDecision(entry); err != nil {
		return types.DecisionLogEntry{}, fmt.Errorf("append decision: %w", err)
	}

	l.metrics.DecisionLogged(agentName)
	l.logger.Info().
		Str("action", "decision_logged").
		Str("decision_id", entry.DecisionID).
		Str("agent", agentName).
		Str("decision", decision).
		Msg("decision logged")

	if l.publisher != nil {
		payload := types.DecisionLoggedPayload{
			DecisionID: entry.DecisionID,
			AgentName:  agentName,
			Decision:   decision,
			Confidence: confidence,
		}
		event, err := types.NewEvent(types.EventDecisionLogged, SourceName, types.SeverityLow, payload.Map())
		if err != nil {
			l.logger.Error().Err(err).Msg("building decision event")
		} else {
			l.publisher.Publish(ctx, event)
		}
	}

	return entry.Clone(), nil
}

// Decisions returns entries most recent first, optionally for one agent.
// limit <= 0 returns every match.
func (l *Log) Decisions(agentName string, limit int) []types.DecisionLogEntry {
	return l.store.ListDecisions(ledger.DecisionFilter{AgentName: agentName, Limit: limit})
}

func (l *Log) DecisionByID(decisionID string) (types.DecisionLogEntry, error) {
	entry, ok := l.store.GetDecision(decisionID)
	if !ok {
		return types.DecisionLogEntry{}, fmt.Errorf("%w: %s", ErrDecisionNotFound, decisionID)
	}
	return entry, nil
}

// VerifyEntry checks an entry, typically one read back from an export,
// against its own hash.
func (l *Log) VerifyEntry(entry types.DecisionLogEntry) error {
	return ledger.VerifyEntry(entry)
}

func (l *Log) Count() int {
	return l.store.CountDecisions()
}

func (l *Log) summarize(inputData map[string]any) (string, error) {
	if inputData == nil {
		inputData = map[string]any{}
	}
	canonical, err := crypto.CanonicalizeJSON(inputData)
	if err != nil {
		return "", fmt.Errorf("summarize input: %w", err)
	}
	return TruncateSummary(string(canonical), l.summaryMaxLen), nil
}

// TruncateSummary limits s to maxLen runes, replacing the tail with "..."
// when it is cut.
func TruncateSummary(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	keep := maxLen - len(truncationMarker)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + truncationMarker
}
