// internal/models/prescription.go
package models

import (
	"encoding/json"
	"strings"
)

const (
	StatusSuccess  = "success"
	StatusFallback = "fallback"

	ModelFallback = "fallback"
)

const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// PrescriptionResult is the outcome of one pipeline invocation. Success and
// fallback results share this exact shape.
type PrescriptionResult struct {
	Status       string       `json:"status"`
	Prescription Prescription `json:"prescription"`
	Timestamp    string       `json:"timestamp"`
	ModelUsed    string       `json:"model_used"`
}

type Prescription struct {
	Symptoms        []Symptom    `json:"symptoms"`
	Medications     []Medication `json:"medications"`
	Recommendations []string     `json:"recommendations"`
	FollowUp        string       `json:"followUp"`
	EmergencySigns  []string     `json:"emergencySigns"`

	// Extra holds top-level fields returned by the model that are not part
	// of the schema. They are written back out unchanged.
	Extra map[string]interface{} `json:"-"`
}

var prescriptionKeys = []string{"symptoms", "medications", "recommendations", "followUp", "emergencySigns"}

func (p *Prescription) UnmarshalJSON(data []byte) error {
	type plain Prescription
	var decoded plain
	extra, err := decodeWithExtra(data, &decoded, prescriptionKeys)
	if err != nil {
		return err
	}
	*p = Prescription(decoded)
	p.Extra = extra
	return nil
}

func (p Prescription) MarshalJSON() ([]byte, error) {
	type plain Prescription
	return encodeWithExtra(plain(p), p.Extra)
}

type Symptom struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Severity    string `json:"severity"`
	Description string `json:"description"`

	Extra map[string]interface{} `json:"-"`
}

var symptomKeys = []string{"id", "name", "severity", "description"}

func (s *Symptom) UnmarshalJSON(data []byte) error {
	type plain Symptom
	var decoded plain
	extra, err := decodeWithExtra(data, &decoded, symptomKeys)
	if err != nil {
		return err
	}
	*s = Symptom(decoded)
	s.Extra = extra
	return nil
}

func (s Symptom) MarshalJSON() ([]byte, error) {
	type plain Symptom
	return encodeWithExtra(plain(s), s.Extra)
}

type Medication struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	GenericName  string   `json:"genericName"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"`
	Duration     string   `json:"duration"`
	SideEffects  []string `json:"sideEffects"`
	Warnings     []string `json:"warnings"`
	Category     string   `json:"category"`
	Prescription bool     `json:"prescription"`

	Extra map[string]interface{} `json:"-"`
}

var medicationKeys = []string{
	"id", "name", "genericName", "dosage", "frequency", "duration",
	"sideEffects", "warnings", "category", "prescription",
}

func (m *Medication) UnmarshalJSON(data []byte) error {
	type plain Medication
	var decoded plain
	extra, err := decodeWithExtra(data, &decoded, medicationKeys)
	if err != nil {
		return err
	}
	*m = Medication(decoded)
	m.Extra = extra
	return nil
}

func (m Medication) MarshalJSON() ([]byte, error) {
	type plain Medication
	return encodeWithExtra(plain(m), m.Extra)
}

// Normalize replaces nil lists with empty ones so the JSON form never
// carries null where an array is expected.
func (p *Prescription) Normalize() {
	if p.Symptoms == nil {
		p.Symptoms = []Symptom{}
	}
	if p.Medications == nil {
		p.Medications = []Medication{}
	}
	for i := range p.Medications {
		if p.Medications[i].SideEffects == nil {
			p.Medications[i].SideEffects = []string{}
		}
		if p.Medications[i].Warnings == nil {
			p.Medications[i].Warnings = []string{}
		}
	}
	if p.Recommendations == nil {
		p.Recommendations = []string{}
	}
	if p.EmergencySigns == nil {
		p.EmergencySigns = []string{}
	}
}

// decodeWithExtra decodes data into v and returns the object members whose
// names match none of known. Matching is case-insensitive, as it is for
// encoding/json struct fields.
func decodeWithExtra(data []byte, v interface{}, known []string) (map[string]interface{}, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}

	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for name := range all {
		for _, k := range known {
			if strings.EqualFold(name, k) {
				delete(all, name)
				break
			}
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// encodeWithExtra marshals v and merges extra into the resulting object.
// Declared fields win over extra members of the same name.
func encodeWithExtra(v interface{}, extra map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	merged := make(map[string]interface{}, len(extra)+len(known))
	for k, val := range extra {
		merged[k] = val
	}
	for k, val := range known {
		merged[k] = val
	}
	return json.Marshal(merged)
}
