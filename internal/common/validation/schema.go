package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins all errors into one line for logs and error details.
func (r *ValidationResult) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

const stringArray = `{"type": "array", "items": {"type": "string"}}`

// PrescriptionSchema is the shape the model is asked to return.
var PrescriptionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["symptoms", "medications", "recommendations", "followUp", "emergencySigns"],
  "properties": {
    "symptoms": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "severity", "description"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string", "minLength": 1},
          "severity": {"type": "string", "enum": ["mild", "moderate", "severe"]},
          "description": {"type": "string"}
        }
      }
    },
    "medications": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "dosage", "frequency", "prescription"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string", "minLength": 1},
          "genericName": {"type": "string"},
          "dosage": {"type": "string"},
          "frequency": {"type": "string"},
          "duration": {"type": "string"},
          "sideEffects": ` + stringArray + `,
          "warnings": ` + stringArray + `,
          "category": {"type": "string"},
          "prescription": {"type": "boolean"}
        }
      }
    },
    "recommendations": ` + stringArray + `,
    "followUp": {"type": "string"},
    "emergencySigns": ` + stringArray + `
  }
}`

// SubmissionSchema guards clinician submissions before they are stored.
var SubmissionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["patientId", "doctorId", "prescription"],
  "properties": {
    "patientId": {"type": "string", "minLength": 1},
    "doctorId": {"type": "string", "minLength": 1},
    "transcript": {"type": "string"},
    "status": {"type": "string"},
    "modelUsed": {"type": "string"},
    "prescription": {
      "type": "object",
      "required": ["medications"],
      "properties": {
        "medications": {"type": "array", "minItems": 1}
      }
    }
  }
}`

var (
	prescriptionSchema = mustCompile(PrescriptionSchema)
	submissionSchema   = mustCompile(SubmissionSchema)
)

func mustCompile(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid built-in schema: %v", err))
	}
	return compiled
}

// ValidatePrescription checks a decoded model payload against PrescriptionSchema.
func ValidatePrescription(document interface{}) (*ValidationResult, error) {
	return validate(prescriptionSchema, document)
}

// ValidateSubmission checks a clinician submission against SubmissionSchema.
func ValidateSubmission(document interface{}) (*ValidationResult, error) {
	return validate(submissionSchema, document)
}

func validate(schema *gojsonschema.Schema, document interface{}) (*ValidationResult, error) {
	result, err := schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}
