package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davidahmann/complybus/pkg/types"
)

// PublishEvent dispatches an event to every subscriber before responding.
func (s *Server) PublishEvent(c *gin.Context) {
	var req PublishEventRequest
	if !s.bind(c, &req) {
		return
	}

	event, err := types.NewEvent(req.EventType, req.Source, types.Severity(req.Severity), req.Payload)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.app.Bus.Publish(c.Request.Context(), event)

	c.JSON(http.StatusAccepted, gin.H{
		"event_id":   event.ID(),
		"event_type": event.Type(),
		"handlers":   len(s.app.Bus.Subscribers(event.Type())),
	})
}

func (s *Server) MonitoringMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Monitor.Metrics())
}

func (s *Server) MonitoringAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": s.app.Monitor.Alerts()})
}

func (s *Server) RemediationActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": s.app.Remediation.Actions(c.Query("violation_id"))})
}
