package prescription

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GeneralDiscomfort is returned when no symptom category matches.
const GeneralDiscomfort = "General Discomfort"

type symptomCategory struct {
	key      string
	triggers []string
}

// symptomCategories is walked in order; the order decides the order of the
// extracted tags.
var symptomCategories = []symptomCategory{
	{"headache", []string{"headache", "head pain", "migraine", "head ache"}},
	{"fever", []string{"fever", "temperature", "hot", "chills"}},
	{"cough", []string{"cough", "coughing", "chest", "respiratory"}},
	{"fatigue", []string{"fatigue", "tired", "exhausted", "weakness"}},
	{"nausea", []string{"nausea", "sick", "vomiting", "upset stomach"}},
	{"pain", []string{"pain", "ache", "aching", "sore", "hurt"}},
	{"dizziness", []string{"dizzy", "dizziness", "lightheaded"}},
	{"shortness_of_breath", []string{"shortness of breath", "difficulty breathing", "breathless"}},
	{"sore_throat", []string{"sore throat", "throat pain", "swallowing"}},
	{"runny_nose", []string{"runny nose", "congestion", "stuffy nose"}},
	{"rash", []string{"rash", "itchy", "skin irritation"}},
	{"muscle_pain", []string{"muscle pain", "body ache", "joint pain"}},
}

// ignoreWithin lists, per category, words that are blanked out before its
// triggers are matched. A headache alone is not reported as pain.
var ignoreWithin = map[string][]string{
	"pain": {"headache"},
}

// ExtractSymptoms maps a transcript to symptom tags by case-insensitive
// substring matching. Each category contributes at most one tag.
func ExtractSymptoms(transcript string) []string {
	text := strings.ToLower(transcript)

	var found []string
	for _, category := range symptomCategories {
		haystack := blankOut(text, ignoreWithin[category.key])
		for _, trigger := range category.triggers {
			if strings.Contains(haystack, trigger) {
				found = append(found, symptomLabel(category.key))
				break
			}
		}
	}

	if len(found) == 0 {
		return []string{GeneralDiscomfort}
	}
	return found
}

// blankOut replaces every occurrence of words with spaces of the same length.
func blankOut(text string, words []string) string {
	for _, w := range words {
		text = strings.ReplaceAll(text, w, strings.Repeat(" ", len(w)))
	}
	return text
}

func symptomLabel(key string) string {
	// Casers are stateful and not safe to share between goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}
