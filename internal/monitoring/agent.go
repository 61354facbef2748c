// Package monitoring implements the alerting agent: a bus subscriber that
// keeps running event counters and raises an alert when CRITICAL events
// cluster inside a rolling time window.
package monitoring

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/davidahmann/complybus/internal/bus"
	"github.com/davidahmann/complybus/internal/observability"
	"github.com/davidahmann/complybus/pkg/types"
)

const (
	SourceName = "monitoring_agent"

	DefaultWindow    = time.Hour
	DefaultThreshold = 5
)

// DefaultWatchedTypes are the compliance event types the agent counts.
var DefaultWatchedTypes = []string{
	types.EventComplianceViolation,
	types.EventComplianceReportRequest,
	types.EventComplianceCheckCompleted,
	types.EventComplianceRemediationApplied,
	types.EventComplianceAlert,
}

type Config struct {
	Window       time.Duration
	Threshold    int
	WatchedTypes []string
}

func DefaultConfig() Config {
	return Config{
		Window:       DefaultWindow,
		Threshold:    DefaultThreshold,
		WatchedTypes: slices.Clone(DefaultWatchedTypes),
	}
}

// Subscriber is the part of the bus the agent registers itself on.
type Subscriber interface {
	Subscribe(eventType string, handler bus.Handler)
}

type Option func(*Agent)

// WithClock replaces time.Now. Readings from time.Now carry a monotonic
// component, so window arithmetic is unaffected by wall clock changes.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

func WithPublisher(p bus.Publisher) Option {
	return func(a *Agent) {
		a.publisher = p
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

type Agent struct {
	cfg       Config
	logger    zerolog.Logger
	publisher bus.Publisher
	metrics   *observability.Metrics
	now       func() time.Time
	startedAt time.Time

	mu         sync.Mutex
	total      int
	byType     map[string]int
	bySeverity map[types.Severity]int
	critical   []time.Time
	alerts     []types.Alert
}

// New builds an agent. Zero-valued config fields take their defaults.
func New(cfg Config, logger zerolog.Logger, opts ...Option) *Agent {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if len(cfg.WatchedTypes) == 0 {
		cfg.WatchedTypes = slices.Clone(DefaultWatchedTypes)
	}

	a := &Agent{
		cfg:        cfg,
		logger:     logger.With().Str("component", SourceName).Logger(),
		now:        time.Now,
		byType:     make(map[string]int),
		bySeverity: make(map[types.Severity]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startedAt = a.now()
	a.critical = make([]time.Time, 0, cfg.Threshold+1)
	return a
}

// Register subscribes the agent to every watched event type.
func (a *Agent) Register(s Subscriber) {
	for _, eventType := range a.cfg.WatchedTypes {
		s.Subscribe(eventType, a.HandleEvent)
	}
}

// HandleEvent is the bus handler form of ProcessEvent.
func (a *Agent) HandleEvent(ctx context.Context, event types.Event) error {
	a.ProcessEvent(ctx, event)
	return nil
}

// ProcessEvent updates the counters and returns the alert raised by this
// event, if any. An alert fires when the in-window CRITICAL count reaches
// the threshold; it fires again only after the count has dropped below the
// threshold through expiry.
func (a *Agent) ProcessEvent(ctx context.Context, event types.Event) *types.Alert {
	a.mu.Lock()
	a.total++
	a.byType[event.Type()]++
	a.bySeverity[event.Severity()]++

	if event.Severity() != types.SeverityCritical {
		a.mu.Unlock()
		return nil
	}

	now := a.now()
	count := a.recordCritical(now)
	a.metrics.SetCriticalWindow(count)

	if count != a.cfg.Threshold {
		a.mu.Unlock()
		a.logger.Debug().
			Str("action", "critical_event").
			Str("event_id", event.ID()).
			Int("critical_count", count).
			Int("threshold", a.cfg.Threshold).
			Msg("critical event recorded")
		return nil
	}

	alert := types.Alert{
		AlertID:       uuid.NewString(),
		AlertType:     types.AlertCriticalThresholdExceeded,
		Message:       alertMessage(count, a.cfg.Window, a.cfg.Threshold),
		Severity:      types.SeverityCritical,
		Timestamp:     now.UTC(),
		RelatedEvents: []string{event.ID()},
	}
	a.alerts = append(a.alerts, alert)
	a.mu.Unlock()

	a.metrics.AlertRaised()
	a.logger.Warn().
		Str("action", "alert_raised").
		Str("alert_id", alert.AlertID).
		Str("event_id", event.ID()).
		Int("critical_count", count).
		Dur("window", a.cfg.Window).
		Msg(alert.Message)

	a.publishAlert(ctx, alert, count)
	return &alert
}

// recordCritical appends now to the window, prunes entries older than the
// window (an entry exactly one window old still counts) and keeps at most
// threshold+1 timestamps. Callers hold a.mu.
func (a *Agent) recordCritical(now time.Time) int {
	a.critical = append(a.critical, now)

	keep := 0
	for keep < len(a.critical) && now.Sub(a.critical[keep]) > a.cfg.Window {
		keep++
	}
	limit := a.cfg.Threshold + 1
	if n := len(a.critical) - keep; n > limit {
		keep += n - limit
	}
	if keep > 0 {
		a.critical = append(a.critical[:0], a.critical[keep:]...)
	}
	return len(a.critical)
}

func (a *Agent) publishAlert(ctx context.Context, alert types.Alert, count int) {
	if a.publisher == nil {
		return
	}
	payload := types.AlertRaisedPayload{
		AlertID:       alert.AlertID,
		AlertType:     alert.AlertType,
		CriticalCount: count,
		RelatedEvents: alert.RelatedEvents,
	}
	event, err := types.NewEvent(types.EventAlertRaised, SourceName, types.SeverityCritical, payload.Map())
	if err != nil {
		a.logger.Error().Err(err).Str("action", "publish_alert").Msg("building alert event")
		return
	}
	a.publisher.Publish(ctx, event)
}

// Metrics returns a snapshot of the counters.
func (a *Agent) Metrics() types.MonitoringMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := types.MonitoringMetrics{
		TotalEvents:      a.total,
		EventsByType:     make(map[string]int, len(a.byType)),
		EventsBySeverity: make(map[types.Severity]int, len(a.bySeverity)),
		AlertCount:       len(a.alerts),
		UptimeSeconds:    a.now().Sub(a.startedAt).Seconds(),
	}
	for k, v := range a.byType {
		m.EventsByType[k] = v
	}
	for k, v := range a.bySeverity {
		m.EventsBySeverity[k] = v
	}
	return m
}

// Alerts returns the raised alerts, oldest first.
func (a *Agent) Alerts() []types.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.Alert, 0, len(a.alerts))
	for _, alert := range a.alerts {
		out = append(out, alert.Clone())
	}
	return out
}

func (a *Agent) WatchedTypes() []string {
	return slices.Clone(a.cfg.WatchedTypes)
}

func alertMessage(count int, window time.Duration, threshold int) string {
	return fmt.Sprintf("%d critical events detected within the last %s, reaching threshold of %d.",
		count, describeWindow(window), threshold)
}

func describeWindow(window time.Duration) string {
	if window%time.Minute == 0 {
		minutes := int(window / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return window.String()
}
