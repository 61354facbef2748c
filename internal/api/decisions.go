package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) LogDecision(c *gin.Context) {
	var req LogDecisionRequest
	if !s.bind(c, &req) {
		return
	}
	entry, err := s.app.Decisions.LogDecision(c.Request.Context(), req.AgentName, req.Decision, req.Reasoning, req.Confidence, req.InputData, req.Metadata)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) ListDecisions(c *gin.Context) {
	limit, ok := queryLimit(c, 0)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": s.app.Decisions.Decisions(c.Query("agent"), limit)})
}

func (s *Server) GetDecision(c *gin.Context) {
	entry, err := s.app.Decisions.DecisionByID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) ExplainDecision(c *gin.Context) {
	entry, err := s.app.Decisions.DecisionByID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.app.Explainer.ExplainDecision(entry))
}

func (s *Server) VerifyDecision(c *gin.Context) {
	entry, err := s.app.Decisions.DecisionByID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.app.Decisions.VerifyEntry(entry); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"decision_id": entry.DecisionID,
			"valid":       false,
			"error":       err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"decision_id": entry.DecisionID,
		"valid":       true,
	})
}

// queryLimit parses ?limit=, writing a 400 when it is not an integer.
func queryLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return limit, true
}
