// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"
	ErrCodeTranscriptRequired   ErrorCode = "TRANSCRIPT_REQUIRED"
	ErrCodeInputInvalid         ErrorCode = "INPUT_INVALID"

	ErrCodeInferenceTransportFailed   ErrorCode = "INFERENCE_TRANSPORT_FAILED"
	ErrCodeInferenceTimeout           ErrorCode = "INFERENCE_TIMEOUT"
	ErrCodeInferenceUpstreamStatus    ErrorCode = "INFERENCE_UPSTREAM_STATUS"
	ErrCodeInferenceMalformedEnvelope ErrorCode = "INFERENCE_MALFORMED_ENVELOPE"

	ErrCodeResponseUnparseable    ErrorCode = "RESPONSE_UNPARSEABLE"
	ErrCodeSchemaValidationFailed ErrorCode = "SCHEMA_VALIDATION_FAILED"

	ErrCodePrescriptionInvalid  ErrorCode = "PRESCRIPTION_INVALID"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeCacheUnavailable     ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeWorkflowEngineUnavailable ErrorCode = "WORKFLOW_ENGINE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches another *StandardError by code, so errors.Is works against the
// package-level sentinels below.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrConfigurationInvalid = &StandardError{Code: ErrCodeConfigurationInvalid}
	ErrTranscriptRequired   = &StandardError{Code: ErrCodeTranscriptRequired}
	ErrInputInvalid         = &StandardError{Code: ErrCodeInputInvalid}
	ErrPrescriptionInvalid  = &StandardError{Code: ErrCodePrescriptionInvalid}
	ErrDatabaseInsertFailed = &StandardError{Code: ErrCodeDatabaseInsertFailed}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewConfigurationInvalidError reports a missing or placeholder setting.
func NewConfigurationInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationInvalid,
		Message:   "Inference service is not configured",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTranscriptRequiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTranscriptRequired,
		Message:   "Transcript is required",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputInvalidError reports job variables that could not be decoded.
func NewInputInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputInvalid,
		Message:   "Job input could not be parsed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInferenceError wraps a failed inference call. Only used for logging and
// metrics; the pipeline itself recovers with a fallback result.
func NewInferenceError(code ErrorCode, err error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   "Inference request failed",
		Details:   err.Error(),
		Retryable: code == ErrCodeInferenceTransportFailed || code == ErrCodeInferenceTimeout,
		Timestamp: time.Now().UTC(),
	}
}

func NewResponseUnparseableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseUnparseable,
		Message:   "Model response did not contain a JSON object",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSchemaValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaValidationFailed,
		Message:   "Prescription payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPrescriptionInvalidError creates a non-retryable submission error.
func NewPrescriptionInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePrescriptionInvalid,
		Message:   "Prescription submission is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkflowEngineError wraps a failed Zeebe command.
func NewWorkflowEngineError(operation string, retryable bool, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowEngineUnavailable,
		Message:   fmt.Sprintf("Zeebe operation '%s' failed", operation),
		Details:   err.Error(),
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfigurationInvalid: "CONFIGURATION_INVALID",
	ErrCodeTranscriptRequired:   "TRANSCRIPT_REQUIRED",
	ErrCodeInputInvalid:         "INPUT_INVALID",
	ErrCodePrescriptionInvalid:  "PRESCRIPTION_INVALID",
	ErrCodeDatabaseInsertFailed: "DATABASE_INSERT_FAILED",
	ErrCodeCacheUnavailable:     "CACHE_UNAVAILABLE",
	ErrCodeInternal:             "INTERNAL_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseInsertFailed:
		return 3
	case ErrCodeCacheUnavailable,
		ErrCodeInferenceTransportFailed,
		ErrCodeWorkflowEngineUnavailable:
		return 2
	case ErrCodeInferenceTimeout:
		return 1
	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.HasPrefix(codeStr, "INFERENCE"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE"), strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID"),
		strings.Contains(codeStr, "VALIDATION"),
		strings.Contains(codeStr, "REQUIRED"),
		strings.Contains(codeStr, "UNPARSEABLE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
