// Package api exposes the compliance components over HTTP with gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/davidahmann/complybus/internal/app"
	"github.com/davidahmann/complybus/internal/auth"
)

type Server struct {
	app      *app.App
	authn    auth.Authenticator
	gatherer prometheus.Gatherer
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewServer binds the handlers to a. A nil gatherer disables /metrics.
func NewServer(a *app.App, authn auth.Authenticator, gatherer prometheus.Gatherer) *Server {
	return &Server{
		app:      a,
		authn:    authn,
		gatherer: gatherer,
		validate: validator.New(),
		logger:   a.Logger.With().Str("component", "api").Logger(),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1", auth.Middleware(s.authn))
	{
		v1.POST("/events", s.PublishEvent)

		v1.POST("/risk/score", s.Score)
		v1.POST("/risk/profile", s.Profile)
		v1.POST("/risk/trend", s.RecordTrend)
		v1.GET("/risk/trend/:entity_id", s.GetTrend)

		v1.POST("/scenarios/simulate", s.Simulate)
		v1.POST("/scenarios/compare", s.Compare)
		v1.GET("/scenarios", s.ListScenarios)

		v1.GET("/monitoring/metrics", s.MonitoringMetrics)
		v1.GET("/monitoring/alerts", s.MonitoringAlerts)

		v1.POST("/decisions", s.LogDecision)
		v1.GET("/decisions", s.ListDecisions)
		v1.GET("/decisions/:id", s.GetDecision)
		v1.GET("/decisions/:id/explain", s.ExplainDecision)
		v1.GET("/decisions/:id/verify", s.VerifyDecision)

		v1.GET("/remediation/actions", s.RemediationActions)

		v1.GET("/reports", s.ListReports)
		v1.GET("/reports/:id", s.GetReport)

		v1.GET("/audit/export", s.AuditExport)
		v1.GET("/audit/summary", s.AuditSummary)
		v1.GET("/audit/bundle", s.AuditBundle)
		v1.GET("/audit/export.pdf", s.AuditExportPDF)
	}
	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
