package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every severity in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// ParseSeverity accepts any casing; an empty string is rejected.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, raw)
	}
	return s, nil
}

// Event types published or consumed by the built-in components.
const (
	EventComplianceViolation          = "compliance.violation"
	EventComplianceReportRequest      = "compliance.report_request"
	EventComplianceCheckCompleted     = "compliance.check_completed"
	EventComplianceRemediationApplied = "compliance.remediation_applied"
	EventComplianceAlert              = "compliance.alert"

	EventRiskProfileCreated = "risk.profile.created"
	EventRiskTrendUpdated   = "risk.trend.updated"
	EventDecisionLogged     = "audit.decision.logged"
	EventAlertRaised        = "monitoring.alert.raised"
)

// Event is an immutable envelope carried on the bus. The zero value is not
// a valid event; build one with NewEvent.
type Event struct {
	id        string
	eventType string
	source    string
	timestamp time.Time
	severity  Severity
	payload   map[string]any
}

type EventOption func(*Event)

// WithEventID overrides the generated id, e.g. when replaying an event
// received from a transport.
func WithEventID(id string) EventOption {
	return func(e *Event) {
		if id != "" {
			e.id = id
		}
	}
}

// WithTimestamp overrides the creation time. The value is stored in UTC.
func WithTimestamp(ts time.Time) EventOption {
	return func(e *Event) {
		if !ts.IsZero() {
			e.timestamp = ts.UTC()
		}
	}
}

// NewEvent validates the envelope and copies payload so later changes by the
// caller are not visible through the event. An empty severity means LOW.
func NewEvent(eventType, source string, severity Severity, payload map[string]any, opts ...EventOption) (Event, error) {
	if strings.TrimSpace(eventType) == "" {
		return Event{}, fmt.Errorf("%w: event_type", ErrMissingField)
	}
	if strings.TrimSpace(source) == "" {
		return Event{}, fmt.Errorf("%w: source", ErrMissingField)
	}
	if severity == "" {
		severity = SeverityLow
	}
	if !severity.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidSeverity, severity)
	}

	e := Event{
		id:        uuid.NewString(),
		eventType: eventType,
		source:    source,
		timestamp: time.Now().UTC(),
		severity:  severity,
		payload:   maps.Clone(payload),
	}
	if e.payload == nil {
		e.payload = map[string]any{}
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e, nil
}

// MustEvent is NewEvent for statically known envelopes. It panics on a
// validation error, which can only be a programming mistake.
func MustEvent(eventType, source string, severity Severity, payload map[string]any) Event {
	e, err := NewEvent(eventType, source, severity, payload)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Event) ID() string           { return e.id }
func (e Event) Type() string         { return e.eventType }
func (e Event) Source() string       { return e.source }
func (e Event) Timestamp() time.Time { return e.timestamp }
func (e Event) Severity() Severity   { return e.severity }

// Payload returns a shallow copy of the payload map.
func (e Event) Payload() map[string]any {
	return maps.Clone(e.payload)
}

// Value reads a single payload key.
func (e Event) Value(key string) (any, bool) {
	v, ok := e.payload[key]
	return v, ok
}

// String reads a payload key as a string, returning "" when absent or not a string.
func (e Event) String(key string) string {
	v, ok := e.payload[key].(string)
	if !ok {
		return ""
	}
	return v
}

type eventJSON struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
	Severity  Severity       `json:"severity"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		EventID:   e.id,
		EventType: e.eventType,
		Source:    e.source,
		Timestamp: e.timestamp,
		Payload:   e.payload,
		Severity:  e.severity,
	})
}
