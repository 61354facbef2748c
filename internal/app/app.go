// Package app assembles the bus, agents and engines into one running
// system. Everything is built here and handed to its users; nothing is
// reached through package-level state.
package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/davidahmann/complybus/internal/audit"
	"github.com/davidahmann/complybus/internal/bus"
	"github.com/davidahmann/complybus/internal/config"
	"github.com/davidahmann/complybus/internal/ledger"
	"github.com/davidahmann/complybus/internal/monitoring"
	"github.com/davidahmann/complybus/internal/observability"
	"github.com/davidahmann/complybus/internal/remediation"
	"github.com/davidahmann/complybus/internal/reporting"
	"github.com/davidahmann/complybus/internal/risk"
	"github.com/davidahmann/complybus/internal/scenario"
)

type App struct {
	Config config.Config
	Logger zerolog.Logger

	Metrics     *observability.Metrics
	Bus         *bus.Bus
	Store       ledger.Store
	Risk        *risk.Engine
	Simulator   *scenario.Simulator
	Scenarios   scenario.LoadedScenarios
	Decisions   *audit.Log
	Explainer   *audit.Explainer
	Exporter    *audit.Exporter
	Monitor     *monitoring.Agent
	Remediation *remediation.Agent
	Reporting   *reporting.Agent
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now in every component, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New wires every component from cfg. Collectors are registered on reg
// when it is non-nil.
func New(cfg config.Config, logger zerolog.Logger, reg prometheus.Registerer, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	playbook := remediation.DefaultPlaybook()
	if cfg.Remediation.PlaybookPath != "" {
		loaded, err := remediation.LoadPlaybook(cfg.Remediation.PlaybookPath)
		if err != nil {
			return nil, fmt.Errorf("load playbook: %w", err)
		}
		playbook = loaded
	}

	var scenarios scenario.LoadedScenarios
	if cfg.Scenarios.Path != "" {
		loaded, err := scenario.LoadScenarios(cfg.Scenarios.Path)
		if err != nil {
			return nil, fmt.Errorf("load scenarios: %w", err)
		}
		scenarios = loaded
	}

	metrics := observability.NewMetrics(reg)
	b := bus.New(logger, bus.WithMaxDepth(cfg.Bus.MaxDepth), bus.WithMetrics(metrics))
	store := ledger.NewInMemoryStore()

	decisions := audit.NewLog(store, logger,
		audit.WithPublisher(b),
		audit.WithMetrics(metrics),
		audit.WithClock(o.now),
		audit.WithInputSummaryMaxLen(cfg.Audit.InputSummaryMaxLen),
	)

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Bus:     b,
		Store:   store,
		Risk: risk.New(logger,
			risk.WithPublisher(b),
			risk.WithMetrics(metrics),
			risk.WithClock(o.now),
			risk.WithMaxHistory(cfg.Risk.MaxHistory),
		),
		Simulator: scenario.NewSimulator(logger, scenario.WithMetrics(metrics), scenario.WithClock(o.now)),
		Scenarios: scenarios,
		Decisions: decisions,
		Explainer: audit.NewExplainer(o.now),
		Exporter:  audit.NewExporter(decisions, audit.WithExportClock(o.now), audit.WithPlaybookYAML(playbook.Bytes)),
		Monitor: monitoring.New(monitoring.Config{
			Window:       cfg.Monitoring.Window(),
			Threshold:    cfg.Monitoring.Threshold,
			WatchedTypes: cfg.Monitoring.WatchedTypes,
		}, logger,
			monitoring.WithPublisher(b),
			monitoring.WithMetrics(metrics),
			monitoring.WithClock(o.now),
		),
		Remediation: remediation.NewAgent(playbook, store, decisions, logger, o.now),
		Reporting: reporting.NewAgent(decisions, logger,
			reporting.WithMetrics(metrics),
			reporting.WithClock(o.now),
		),
	}

	a.Monitor.Register(b)
	a.Remediation.Register(b)
	a.Reporting.Register(b)

	logger.Info().
		Str("action", "app_ready").
		Strs("event_types", b.EventTypes()).
		Str("playbook_hash", playbook.Hash).
		Int("scenarios", len(scenarios.Scenarios)).
		Msg("complybus assembled")

	return a, nil
}
