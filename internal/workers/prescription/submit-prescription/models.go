// internal/workers/prescription/submit-prescription/models.go
package submitprescription

import "clinqo-prescriber/internal/models"

// Input is a clinician-approved prescription. Status defaults to "approved".
type Input struct {
	PatientID    string              `json:"patientId"`
	DoctorID     string              `json:"doctorId"`
	Transcript   string              `json:"transcript,omitempty"`
	Status       string              `json:"status,omitempty"`
	ModelUsed    string              `json:"modelUsed,omitempty"`
	Prescription models.Prescription `json:"prescription"`
}

type Output struct {
	PrescriptionID string `json:"prescriptionId"`
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
}
