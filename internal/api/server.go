// Package api exposes the prescription pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/prescription"
	submitprescription "clinqo-prescriber/internal/workers/prescription/submit-prescription"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestIDHeader = "X-Request-ID"

// Submitter stores clinician-approved prescriptions.
type Submitter interface {
	Execute(ctx context.Context, input *submitprescription.Input) (*submitprescription.Output, error)
}

// Check probes one backing service. A nil Check means the service is disabled.
type Check func(ctx context.Context) error

type Dependencies struct {
	Pipeline      prescription.Pipeline
	Submitter     Submitter
	AIConfigured  bool
	DatabaseCheck Check
	CacheCheck    Check
	WorkflowCheck Check
	Logger        logger.Logger
}

type Server struct {
	deps   Dependencies
	engine *gin.Engine
	logger logger.Logger
	now    func() time.Time
}

func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}

	s := &Server{
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.With(map[string]interface{}{"component": "api"}),
		now:    time.Now,
	}

	s.engine.Use(gin.Recovery(), s.requestID(), s.accessLog())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.root)
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.POST("/ai/prescription", s.generatePrescription)
	s.engine.POST("/prescription/submit", s.submitPrescription)
}

// Handler returns the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer builds an *http.Server bound to addr.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(prescription.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request handled", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  c.GetString("requestId"),
		})
	}
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
