package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) AuditExport(c *gin.Context) {
	limit, ok := queryLimit(c, 0)
	if !ok {
		return
	}
	data, err := s.app.Exporter.ExportJSON(c.Query("agent"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) AuditSummary(c *gin.Context) {
	summary, err := s.app.Exporter.ExportSummary(c.Query("agent"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) AuditBundle(c *gin.Context) {
	limit, ok := queryLimit(c, 0)
	if !ok {
		return
	}
	data, err := s.app.Exporter.ExportBundle(c.Query("agent"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=complybus-audit-bundle.zip")
	c.Data(http.StatusOK, "application/zip", data)
}

func (s *Server) AuditExportPDF(c *gin.Context) {
	limit, ok := queryLimit(c, 0)
	if !ok {
		return
	}
	data, err := s.app.Exporter.ExportPDF(c.Query("agent"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}
