package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	commonerrors "clinqo-prescriber/internal/common/errors"
	submitprescription "clinqo-prescriber/internal/workers/prescription/submit-prescription"

	"github.com/gin-gonic/gin"
)

const healthProbeTimeout = 2 * time.Second

type generateRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":      "Clinqo prescription service",
		"status":       "online",
		"ai_available": s.deps.AIConfigured,
		"timestamp":    s.timestamp(),
	})
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	database := probe(ctx, s.deps.DatabaseCheck)
	cache := probe(ctx, s.deps.CacheCheck)
	workflow := probe(ctx, s.deps.WorkflowCheck)

	status := "healthy"
	if database == "disconnected" || cache == "disconnected" || workflow == "disconnected" {
		status = "degraded"
	}

	aiSystem := "offline"
	if s.deps.AIConfigured {
		aiSystem = "online"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"ai_system": aiSystem,
		"database":  database,
		"cache":     cache,
		"workflow":  workflow,
		"timestamp": s.timestamp(),
	})
}

func probe(ctx context.Context, check Check) string {
	if check == nil {
		return "disabled"
	}
	if err := check(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

func (s *Server) generatePrescription(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Transcript) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transcript is required"})
		return
	}

	result, err := s.deps.Pipeline.Generate(c.Request.Context(), req.Transcript)
	if err != nil {
		stdErr := commonerrors.Normalize(err)
		s.logger.Error("prescription generation failed", map[string]interface{}{
			"requestId": c.GetString("requestId"),
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		message := stdErr.Message
		if stdErr.Details != "" {
			message += ": " + stdErr.Details
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"prescription_data": result,
		"request_id":        c.GetString("requestId"),
		"timestamp":         s.timestamp(),
	})
}

func (s *Server) submitPrescription(c *gin.Context) {
	if s.deps.Submitter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Prescription storage is not enabled"})
		return
	}

	var input submitprescription.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	output, err := s.deps.Submitter.Execute(c.Request.Context(), &input)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, output)
	case errors.Is(err, commonerrors.ErrPrescriptionInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": commonerrors.Normalize(err).Details})
	default:
		s.logger.Error("prescription submit failed", map[string]interface{}{
			"requestId": c.GetString("requestId"),
			"error":     err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": commonerrors.Normalize(err).Message})
	}
}
