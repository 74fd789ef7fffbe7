// internal/workers/prescription/submit-prescription/handler.go
package submitprescription

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	commonerrors "clinqo-prescriber/internal/common/errors"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/common/metrics"
	"clinqo-prescriber/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "submit-prescription"

	StatusSaved   = "prescription_saved"
	defaultStatus = "approved"
)

const insertPrescription = `
	INSERT INTO prescriptions (
		id, patient_id, doctor_id, transcript, status, model_used, prescription, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type Handler struct {
	config       *Config
	db           *sql.DB
	errorHandler *commonerrors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		errorHandler: commonerrors.NewErrorHandler(log),
		logger:       log,
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, commonerrors.NewPrescriptionInvalidError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, err)
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
}

// Execute validates the submission and stores it. Validation failures are
// PRESCRIPTION_INVALID; insert failures are DATABASE_INSERT_FAILED.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := validation.ValidateSubmission(input)
	if err != nil {
		return nil, commonerrors.NewPrescriptionInvalidError(err.Error())
	}
	if !result.Valid {
		return nil, commonerrors.NewPrescriptionInvalidError(result.Summary())
	}

	input.Prescription.Normalize()
	payload, err := json.Marshal(input.Prescription)
	if err != nil {
		return nil, commonerrors.NewPrescriptionInvalidError(err.Error())
	}

	status := input.Status
	if status == "" {
		status = defaultStatus
	}

	id := uuid.NewString()
	createdAt := h.now().UTC()

	if _, err := h.db.ExecContext(ctx, insertPrescription,
		id,
		input.PatientID,
		input.DoctorID,
		input.Transcript,
		status,
		input.ModelUsed,
		payload,
		createdAt,
	); err != nil {
		return nil, commonerrors.NewDatabaseInsertFailedError(err)
	}

	h.logger.Info("prescription saved", map[string]interface{}{
		"prescriptionId": id,
		"patientId":      input.PatientID,
		"doctorId":       input.DoctorID,
		"medications":    len(input.Prescription.Medications),
	})

	return &Output{
		PrescriptionID: id,
		Status:         StatusSaved,
		Timestamp:      createdAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
