package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/orchestrator"
)

const sessionIDHeader = "X-Session-ID"

type QueryRequest struct {
	Text      string         `json:"text"`
	SessionID string         `json:"sessionId"`
	Filters   models.Filters `json:"filters,omitempty"`
}

type QueryResponse struct {
	models.QueryResult
	SessionID string `json:"sessionId"`
	TurnID    string `json:"turnId"`
}

type HistoryResponse struct {
	SessionID string                    `json:"sessionId"`
	Turns     []models.ConversationTurn `json:"turns"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = c.GetHeader(sessionIDHeader)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result, turn := s.pipeline.Exchange(c.Request.Context(), orchestrator.Request{
		Text:      req.Text,
		SessionID: req.SessionID,
		Filters:   req.Filters,
	})

	if result.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(result.RetryAfter))
	}
	c.Header(sessionIDHeader, req.SessionID)
	c.JSON(statusFor(result), QueryResponse{
		QueryResult: result,
		SessionID:   req.SessionID,
		TurnID:      turn.ID,
	})
}

// statusFor maps a result to an HTTP status. Degraded answers are still 200.
func statusFor(result models.QueryResult) int {
	switch {
	case result.Success || result.Plan != nil:
		return http.StatusOK
	case result.RetryAfter > 0:
		return http.StatusTooManyRequests
	case len(result.Errors) == 0:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) history(c *gin.Context) {
	sessionID := c.Param("sessionId")
	c.JSON(http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		Turns:     s.pipeline.History(sessionID),
	})
}
