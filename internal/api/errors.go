package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davidahmann/complybus/internal/audit"
	"github.com/davidahmann/complybus/internal/reporting"
	"github.com/davidahmann/complybus/internal/risk"
	"github.com/davidahmann/complybus/internal/scenario"
	"github.com/davidahmann/complybus/pkg/types"
)

var errUnknownScenario = errors.New("unknown scenario")

func statusFor(err error) int {
	switch {
	case errors.Is(err, audit.ErrDecisionNotFound),
		errors.Is(err, risk.ErrTrendNotFound),
		errors.Is(err, reporting.ErrReportNotFound),
		errors.Is(err, errUnknownScenario):
		return http.StatusNotFound
	case errors.Is(err, audit.ErrPDFExportNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, types.ErrMissingField),
		errors.Is(err, types.ErrInvalidSeverity),
		errors.Is(err, types.ErrInvalidCategory),
		errors.Is(err, types.ErrInvalidEntityType),
		errors.Is(err, types.ErrInvalidWeight),
		errors.Is(err, types.ErrInvalidValue),
		errors.Is(err, types.ErrScoreOutOfRange),
		errors.Is(err, types.ErrInvalidConfidence),
		errors.Is(err, scenario.ErrInvalidScenario),
		errors.Is(err, reporting.ErrInvalidReportRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bind decodes the JSON body into req and runs its validate tags.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
