package prescription

import (
	"github.com/mitchellh/mapstructure"
)

var (
	symptomStringFields    = []string{"id", "name", "severity", "description"}
	medicationStringFields = []string{"id", "name", "genericName", "dosage", "frequency", "duration", "category"}
	medicationListFields   = []string{"sideEffects", "warnings"}
)

// coercePayload rewrites obj in place so that common type drift in model
// output decodes into models.Prescription. Each declared field is weakly
// decoded to its target type: numbers become strings, a lone value becomes
// a one-element list and "true"/"false" become booleans. Values that cannot
// be converted are left for the decoder to reject.
func coercePayload(obj map[string]interface{}) {
	coerceString(obj, "followUp")
	coerceStringList(obj, "recommendations")
	coerceStringList(obj, "emergencySigns")

	for _, item := range objectList(obj["symptoms"]) {
		for _, field := range symptomStringFields {
			coerceString(item, field)
		}
	}

	for _, item := range objectList(obj["medications"]) {
		for _, field := range medicationStringFields {
			coerceString(item, field)
		}
		for _, field := range medicationListFields {
			coerceStringList(item, field)
		}
		coerceBool(item, "prescription")
	}
}

func objectList(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, entry := range list {
		if m, ok := entry.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func coerceString(m map[string]interface{}, key string) {
	var s string
	if weakDecode(m, key, &s) {
		m[key] = s
	}
}

func coerceStringList(m map[string]interface{}, key string) {
	var list []string
	if weakDecode(m, key, &list) {
		m[key] = list
	}
}

func coerceBool(m map[string]interface{}, key string) {
	var b bool
	if weakDecode(m, key, &b) {
		m[key] = b
	}
}

func weakDecode(m map[string]interface{}, key string, out interface{}) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	return mapstructure.WeakDecode(v, out) == nil
}
