package prescription

import (
	"fmt"
	"strings"
)

// SystemDirective is sent as the system message alongside every prompt.
const SystemDirective = "You are Clinqo-AI, a medical AI assistant. Provide accurate, safe, and comprehensive medical prescriptions in JSON format. Always prioritize patient safety and include appropriate warnings and disclaimers."

const outputSchema = `{
  "symptoms": [
    {
      "id": "symptom_id",
      "name": "Symptom Name",
      "severity": "mild|moderate|severe",
      "description": "Detailed description of the symptom"
    }
  ],
  "medications": [
    {
      "id": "medication_id",
      "name": "Brand Name",
      "genericName": "Generic Name",
      "dosage": "Specific dosage (e.g., 500mg)",
      "frequency": "How often to take (e.g., Every 4-6 hours)",
      "duration": "How long to take (e.g., 3-5 days)",
      "sideEffects": ["Side effect 1", "Side effect 2"],
      "warnings": ["Warning 1", "Warning 2"],
      "category": "Medication category (e.g., Pain Reliever)",
      "prescription": false
    }
  ],
  "recommendations": [
    "Get adequate rest and sleep",
    "Stay hydrated with plenty of fluids",
    "Monitor symptoms closely",
    "Avoid strenuous activities",
    "Maintain a healthy diet"
  ],
  "followUp": "Follow-up instructions based on severity",
  "emergencySigns": [
    "Severe chest pain or difficulty breathing",
    "High fever (above 103°F/39.4°C)",
    "Severe headache with confusion",
    "Unusual bleeding or bruising",
    "Signs of allergic reaction"
  ]
}`

var promptGuidelines = []string{
	"Use realistic but safe over-the-counter medications when possible",
	"Set prescription: false for OTC medications, true only for prescription drugs",
	"Provide specific dosages and frequencies",
	"Include relevant side effects and warnings",
	"Base severity on symptom description",
	"Ensure all medications are age-appropriate",
	"Return ONLY valid JSON - no additional text",
	"Use common, well-known medications",
	"Include comprehensive safety information",
}

// BuildPrompt renders the user message for the inference call. The
// transcript is embedded verbatim.
func BuildPrompt(transcript string, symptoms []string) string {
	var parts []string

	parts = append(parts, "You are Clinqo-AI, a medical AI assistant with extensive experience in medical diagnosis and prescription. Analyze the following patient transcript and generate a comprehensive medical prescription.")
	parts = append(parts, "\nPATIENT TRANSCRIPT:")
	parts = append(parts, `"`+transcript+`"`)
	parts = append(parts, "\nDETECTED SYMPTOMS:")
	parts = append(parts, strings.Join(symptoms, ", "))
	parts = append(parts, "\nGenerate a detailed medical prescription in the following JSON format:\n")
	parts = append(parts, outputSchema)

	parts = append(parts, "\nIMPORTANT GUIDELINES:")
	for i, guideline := range promptGuidelines {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, guideline))
	}

	parts = append(parts, "\nReturn the JSON response only.")

	return strings.Join(parts, "\n")
}
