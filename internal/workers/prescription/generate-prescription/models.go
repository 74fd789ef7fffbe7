// internal/workers/prescription/generate-prescription/models.go
package generateprescription

import "clinqo-prescriber/internal/models"

type Input struct {
	Transcript string `json:"transcript"`
	RequestID  string `json:"requestId,omitempty"`
}

type Output struct {
	PrescriptionResult *models.PrescriptionResult `json:"prescriptionResult"`
}
