// internal/workers/prescription/generate-prescription/handler_test.go
package generateprescription

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinqo-prescriber/internal/common/config"
	commonerrors "clinqo-prescriber/internal/common/errors"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/models"
	"clinqo-prescriber/internal/prescription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubPipeline struct {
	result     *models.PrescriptionResult
	err        error
	transcript string
	requestID  string
}

func (s *stubPipeline) Generate(ctx context.Context, transcript string) (*models.PrescriptionResult, error) {
	s.transcript = transcript
	s.requestID = prescription.RequestIDFromContext(ctx)
	return s.result, s.err
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func fallbackResult() *models.PrescriptionResult {
	return &models.PrescriptionResult{
		Status:       models.StatusFallback,
		Prescription: prescription.SynthesizeFallback("", []string{prescription.GeneralDiscomfort}),
		Timestamp:    "2026-01-01T00:00:00Z",
		ModelUsed:    models.ModelFallback,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	pipeline := &stubPipeline{result: fallbackResult()}
	handler := NewHandler(createTestConfig(), pipeline, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		Transcript: "I feel unwell",
		RequestID:  "req-42",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusFallback, output.PrescriptionResult.Status)
	assert.Equal(t, "I feel unwell", pipeline.transcript)
	assert.Equal(t, "req-42", pipeline.requestID)
}

func TestHandler_Execute_GeneratesRequestID(t *testing.T) {
	pipeline := &stubPipeline{result: fallbackResult()}
	handler := NewHandler(createTestConfig(), pipeline, logger.NewNoOpLogger())

	_, err := handler.Execute(context.Background(), &Input{Transcript: "cough"})
	require.NoError(t, err)
	assert.Len(t, pipeline.requestID, 36)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_TranscriptRequired(t *testing.T) {
	for _, transcript := range []string{"", "   ", "\n\t"} {
		pipeline := &stubPipeline{result: fallbackResult()}
		handler := NewHandler(createTestConfig(), pipeline, logger.NewNoOpLogger())

		output, err := handler.Execute(context.Background(), &Input{Transcript: transcript})
		assert.Nil(t, output)
		assert.True(t, errors.Is(err, commonerrors.ErrTranscriptRequired))
		assert.Empty(t, pipeline.transcript)
	}
}

func TestHandler_Execute_ConfigurationError(t *testing.T) {
	pipeline := &stubPipeline{err: commonerrors.NewConfigurationInvalidError("OPENROUTER_API_KEY is not set")}
	handler := NewHandler(createTestConfig(), pipeline, logger.NewNoOpLogger())

	_, err := handler.Execute(context.Background(), &Input{Transcript: "headache"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, commonerrors.ErrConfigurationInvalid))

	bpmn := commonerrors.ConvertToBPMNError(commonerrors.Normalize(err))
	assert.Equal(t, "CONFIGURATION_INVALID", bpmn.Code)
	assert.Zero(t, bpmn.Retries)
}

func TestDecodeInput(t *testing.T) {
	input, err := decodeInput(`{"transcript":"cough","requestId":"req-1","other":true}`)
	require.NoError(t, err)
	assert.Equal(t, "cough", input.Transcript)
	assert.Equal(t, "req-1", input.RequestID)

	for _, variables := range []string{`not json`, `{"transcript":`, `{"transcript":42}`} {
		_, err := decodeInput(variables)
		require.Error(t, err, variables)
		assert.True(t, errors.Is(err, commonerrors.ErrInputInvalid), variables)
		assert.False(t, errors.Is(err, commonerrors.ErrTranscriptRequired), variables)

		bpmn := commonerrors.ConvertToBPMNError(commonerrors.Normalize(err))
		assert.Equal(t, "INPUT_INVALID", bpmn.Code)
		assert.Contains(t, bpmn.Details, "parse input")
		assert.Zero(t, bpmn.Retries)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg := &config.Config{Inference: config.InferenceConfig{Timeout: 30000}}
	assert.Equal(t, 35*time.Second, LoadConfig(cfg).Timeout)

	cfg.Workers = map[string]config.WorkerConfig{TaskType: {Timeout: 60000}}
	assert.Equal(t, 60*time.Second, LoadConfig(cfg).Timeout)
}
