package types

import (
	"maps"
	"slices"
	"time"
)

const AlertCriticalThresholdExceeded = "critical_threshold_exceeded"

type Alert struct {
	AlertID       string    `json:"alert_id"`
	AlertType     string    `json:"alert_type"`
	Message       string    `json:"message"`
	Severity      Severity  `json:"severity"`
	Timestamp     time.Time `json:"timestamp"`
	RelatedEvents []string  `json:"related_events"`
}

func (a Alert) Clone() Alert {
	a.RelatedEvents = slices.Clone(a.RelatedEvents)
	return a
}

// MonitoringMetrics is a point-in-time snapshot; its maps are owned by the
// caller.
type MonitoringMetrics struct {
	TotalEvents      int              `json:"total_events"`
	EventsByType     map[string]int   `json:"events_by_type"`
	EventsBySeverity map[Severity]int `json:"events_by_severity"`
	AlertCount       int              `json:"alert_count"`
	UptimeSeconds    float64          `json:"uptime_seconds"`
}

func (m MonitoringMetrics) Clone() MonitoringMetrics {
	m.EventsByType = maps.Clone(m.EventsByType)
	m.EventsBySeverity = maps.Clone(m.EventsBySeverity)
	return m
}
