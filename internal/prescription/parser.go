package prescription

import (
	"encoding/json"
	"strings"
)

// Strategy names the extraction step that produced a payload.
type Strategy string

const (
	StrategyNone   Strategy = "none"
	StrategyFenced Strategy = "fenced"
	StrategyBraces Strategy = "braces"
	StrategyWhole  Strategy = "whole"
)

type extractor struct {
	strategy Strategy
	extract  func(raw string) (string, bool)
}

// extractors run in order and the first candidate that decodes wins.
var extractors = []extractor{
	{StrategyFenced, fencedCandidate},
	{StrategyBraces, braceCandidate},
	{StrategyWhole, wholeCandidate},
}

// ParseResponse pulls a JSON object out of free-form model output. ok is
// false when no strategy yields a non-empty object.
func ParseResponse(raw string) (map[string]interface{}, Strategy, bool) {
	for _, e := range extractors {
		candidate, found := e.extract(raw)
		if !found {
			continue
		}
		if obj, ok := decodeObject(candidate); ok {
			return obj, e.strategy, true
		}
	}
	return nil, StrategyNone, false
}

const fenceOpen = "```json"

func fencedCandidate(raw string) (string, bool) {
	start := strings.Index(raw, fenceOpen)
	if start < 0 {
		return "", false
	}
	rest := raw[start+len(fenceOpen):]
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

func braceCandidate(raw string) (string, bool) {
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first < 0 || last <= first {
		return "", false
	}
	return raw[first : last+1], true
}

func wholeCandidate(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	return trimmed, trimmed != ""
}

func decodeObject(candidate string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	if len(obj) == 0 {
		return nil, false
	}
	return obj, true
}
