// internal/workers/prescription/generate-prescription/handler.go
package generateprescription

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	commonerrors "clinqo-prescriber/internal/common/errors"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/common/metrics"
	"clinqo-prescriber/internal/prescription"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "generate-prescription"

type Handler struct {
	config       *Config
	pipeline     prescription.Pipeline
	errorHandler *commonerrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, pipeline prescription.Pipeline, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		pipeline:     pipeline,
		errorHandler: commonerrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := decodeInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func decodeInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, commonerrors.NewInputInvalidError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

// Execute validates the input and runs the pipeline. Its only errors are
// TRANSCRIPT_REQUIRED and CONFIGURATION_INVALID; model failures come back as
// a fallback result.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Transcript) == "" {
		return nil, commonerrors.NewTranscriptRequiredError()
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = prescription.WithRequestID(ctx, requestID)

	result, err := h.pipeline.Generate(ctx, input.Transcript)
	if err != nil {
		return nil, err
	}

	h.logger.Info("prescription generated", map[string]interface{}{
		"requestId": requestID,
		"status":    result.Status,
		"modelUsed": result.ModelUsed,
	})

	return &Output{PrescriptionResult: result}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, fmt.Errorf("encode job variables: %w", err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
