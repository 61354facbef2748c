package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/davidahmann/complybus/internal/api"
	"github.com/davidahmann/complybus/internal/app"
	"github.com/davidahmann/complybus/internal/auth"
	"github.com/davidahmann/complybus/internal/config"
	"github.com/davidahmann/complybus/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runFn(ctx, os.Args[1:], os.Getenv, listenAndServe); err != nil {
		fatalf("server error: %v", err)
	}
}

var runFn = run
var fatalf = log.Fatalf

type envFn func(string) string
type listenFn func(*http.Server) error

func run(ctx context.Context, args []string, getenv envFn, listen listenFn) error {
	fs := flag.NewFlagSet("complybus-gateway", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to complybus config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(firstNonEmpty(*configPath, getenv("COMPLYBUS_CONFIG_PATH")), getenv)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	server, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		logger.Info().Str("addr", cfg.ListenAddr).Msg("complybus-gateway listening")
		if err := listen(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info().Msg("complybus-gateway shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// loadConfig reads path when set and applies environment overrides on top.
func loadConfig(path string, getenv envFn) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	cfg.ListenAddr = firstNonEmpty(getenv("COMPLYBUS_LISTEN_ADDR"), cfg.ListenAddr)
	cfg.Auth.Token = firstNonEmpty(getenv("COMPLYBUS_API_TOKEN"), cfg.Auth.Token)
	cfg.Remediation.PlaybookPath = firstNonEmpty(getenv("COMPLYBUS_PLAYBOOK_PATH"), cfg.Remediation.PlaybookPath)
	cfg.Scenarios.Path = firstNonEmpty(getenv("COMPLYBUS_SCENARIOS_PATH"), cfg.Scenarios.Path)
	return cfg, cfg.Validate()
}

func newServer(cfg config.Config, logger zerolog.Logger) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.New(cfg, logger, reg)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.Token == "" {
		logger.Warn().Msg("auth.token is empty, API accepts unauthenticated requests")
	}

	srv := api.NewServer(a, auth.NewTokenAuthenticator(cfg.Auth.Token), reg)
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

func listenAndServe(server *http.Server) error {
	return server.ListenAndServe()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
