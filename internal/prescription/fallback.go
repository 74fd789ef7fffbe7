package prescription

import (
	"fmt"
	"strings"

	"clinqo-prescriber/internal/models"
)

const fallbackFollowUp = "Monitor symptoms and contact healthcare provider if they persist beyond 7 days."

var fallbackRecommendations = []string{
	"Get adequate rest and sleep",
	"Stay hydrated with plenty of fluids",
	"Monitor your symptoms closely",
	"Avoid strenuous activities",
	"Maintain a healthy diet",
}

var fallbackEmergencySigns = []string{
	"Severe chest pain or difficulty breathing",
	"High fever (above 103°F/39.4°C)",
	"Severe headache with confusion",
	"Unusual bleeding or bruising",
	"Signs of allergic reaction (rash, swelling, difficulty breathing)",
}

// SynthesizeFallback builds the conservative payload returned whenever the
// model cannot be used. The transcript is accepted for symmetry with the
// other stages; only the symptom tags shape the result.
func SynthesizeFallback(_ string, symptoms []string) models.Prescription {
	symptomEntries := make([]models.Symptom, 0, len(symptoms))
	for i, tag := range symptoms {
		symptomEntries = append(symptomEntries, models.Symptom{
			ID:          fmt.Sprintf("symptom_%d", i),
			Name:        tag,
			Severity:    models.SeverityMild,
			Description: "Patient reported " + strings.ToLower(tag),
		})
	}

	return models.Prescription{
		Symptoms: symptomEntries,
		Medications: []models.Medication{
			{
				ID:           "multivitamin",
				Name:         "Daily Multivitamin",
				GenericName:  "Multivitamin",
				Dosage:       "1 tablet",
				Frequency:    "Once daily",
				Duration:     "Ongoing",
				SideEffects:  []string{"Mild stomach upset"},
				Warnings:     []string{"Take with food"},
				Category:     "Supplement",
				Prescription: false,
			},
		},
		Recommendations: append([]string(nil), fallbackRecommendations...),
		FollowUp:        fallbackFollowUp,
		EmergencySigns:  append([]string(nil), fallbackEmergencySigns...),
	}
}
