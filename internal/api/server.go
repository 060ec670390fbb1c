// Package api exposes the query pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/orchestrator"
)

const requestIDHeader = "X-Request-ID"

// Pipeline is the part of the orchestrator the API serves.
type Pipeline interface {
	Exchange(ctx context.Context, req orchestrator.Request) (models.QueryResult, models.ConversationTurn)
	History(sessionID string) []models.ConversationTurn
}

// ReadyCheck reports whether a backend is reachable.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	ServiceName  string
	ReadyTimeout time.Duration
	// Checks are keyed by backend name, e.g. "postgres".
	Checks map[string]ReadyCheck
}

type Server struct {
	pipeline Pipeline
	options  Options
	logger   logger.Logger
}

func NewServer(pipeline Pipeline, opts Options, log logger.Logger) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "procurement-assistant"
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 2 * time.Second
	}
	return &Server{
		pipeline: pipeline,
		options:  opts,
		logger:   log.With(map[string]interface{}{"component": "api"}),
	}
}

// Router builds the gin engine with tracing, recovery and request logging.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(s.options.ServiceName))
	router.Use(s.requestLogger())

	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/query", s.query)
	v1.GET("/sessions/:sessionId/history", s.history)

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"requestId":  requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields)
			return
		}
		s.logger.Debug("request served", fields)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.options.ReadyTimeout)
	defer cancel()

	status := http.StatusOK
	backends := make(map[string]string, len(s.options.Checks))
	for name, check := range s.options.Checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			backends[name] = err.Error()
			continue
		}
		backends[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status":   state,
		"backends": backends,
		"time":     time.Now().Format(time.RFC3339),
	})
}
