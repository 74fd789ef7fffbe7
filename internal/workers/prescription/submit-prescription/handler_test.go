// internal/workers/prescription/submit-prescription/handler_test.go
package submitprescription

import (
	"context"
	"errors"
	"testing"
	"time"

	commonerrors "clinqo-prescriber/internal/common/errors"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func createTestInput() *Input {
	return &Input{
		PatientID:  "patient-001",
		DoctorID:   "doctor-001",
		Transcript: "I have a headache",
		ModelUsed:  "meta-llama/llama-3.1-8b-instruct:free",
		Prescription: models.Prescription{
			Medications: []models.Medication{{
				ID: "m1", Name: "Ibuprofen", Dosage: "400mg", Frequency: "Every 8 hours",
			}},
			Recommendations: []string{"Rest"},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO prescriptions`).
		WithArgs(
			sqlmock.AnyArg(), // id
			"patient-001",
			"doctor-001",
			"I have a headache",
			"approved",
			"meta-llama/llama-3.1-8b-instruct:free",
			sqlmock.AnyArg(), // jsonb payload
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	handler := NewHandler(createTestConfig(), db, logger.NewTestLogger(t))
	handler.now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }

	output, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, StatusSaved, output.Status)
	assert.Equal(t, "2026-05-06T07:08:09Z", output.Timestamp)
	_, err = uuid.Parse(output.PrescriptionID)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_KeepsExplicitStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO prescriptions`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"amended", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	input := createTestInput()
	input.Status = "amended"

	handler := NewHandler(createTestConfig(), db, logger.NewNoOpLogger())
	_, err = handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_InvalidSubmission(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"missing patient", func(in *Input) { in.PatientID = "" }},
		{"missing doctor", func(in *Input) { in.DoctorID = "" }},
		{"no medications", func(in *Input) { in.Prescription.Medications = []models.Medication{} }},
		{"nil medications", func(in *Input) { in.Prescription.Medications = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			input := createTestInput()
			tt.mutate(input)

			handler := NewHandler(createTestConfig(), db, logger.NewNoOpLogger())
			output, err := handler.Execute(context.Background(), input)

			assert.Nil(t, output)
			assert.True(t, errors.Is(err, commonerrors.ErrPrescriptionInvalid))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO prescriptions`).
		WillReturnError(errors.New("connection refused"))

	handler := NewHandler(createTestConfig(), db, logger.NewNoOpLogger())
	_, err = handler.Execute(context.Background(), createTestInput())

	require.Error(t, err)
	assert.True(t, errors.Is(err, commonerrors.ErrDatabaseInsertFailed))
	assert.True(t, commonerrors.Normalize(err).Retryable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
