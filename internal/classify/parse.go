package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"chatpulse/internal/pulse"
)

// responseSchema is the shape contract for the model response. Keys may be
// absent (they fall back to the default) but a present key with the wrong
// type discards the entire response.
const responseSchema = `{
	"type": "object",
	"properties": {
		"is_violation": {"type": "boolean"},
		"violation_reason": {"type": ["string", "null"]},
		"is_positive": {"type": "boolean"},
		"is_helpful_answer": {"type": "boolean"}
	}
}`

var schema = jsonschema.MustCompileString("classification.schema.json", responseSchema)

// ParseResponse validates and decodes a raw model response into a
// Classification. The response may be wrapped in markdown code fences. On
// any decode or shape failure the fail-closed default is returned alongside
// the error: never a violation, never a positive signal.
func ParseResponse(raw string) (pulse.Classification, error) {
	fallback := pulse.DefaultClassification()

	var payload map[string]any
	if err := json.Unmarshal([]byte(StripFences(raw)), &payload); err != nil {
		return fallback, fmt.Errorf("decoding classifier response: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fallback, fmt.Errorf("classifier response shape: %w", err)
	}

	// Merge onto the default so missing keys stay false/empty.
	result := fallback
	if v, ok := payload["is_violation"].(bool); ok {
		result.IsViolation = v
	}
	if v, ok := payload["violation_reason"].(string); ok {
		result.ViolationReason = v
	}
	if v, ok := payload["is_positive"].(bool); ok {
		result.IsPositive = v
	}
	if v, ok := payload["is_helpful_answer"].(bool); ok {
		result.IsHelpfulAnswer = v
	}
	return result, nil
}

// StripFences removes a markdown code fence wrapper (```json ... ```), which
// models emit even when asked for bare JSON.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
