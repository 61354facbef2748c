package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListReports reads back the reports generated for compliance.report_request
// events, which arrive through POST /v1/events.
func (s *Server) ListReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": s.app.Reporting.Reports()})
}

func (s *Server) GetReport(c *gin.Context) {
	report, err := s.app.Reporting.Report(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
