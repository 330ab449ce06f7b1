package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"charterbench/internal/charter"
)

// cleanResponse strips the markdown fences models wrap JSON in despite
// being told not to.
func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

type validationPayload struct {
	IsValid           *bool           `json:"is_valid"`
	Violations        []string        `json:"violations"`
	EncouragedAspects []string        `json:"encouraged_aspects"`
	Confidence        json.RawMessage `json:"confidence"`
	Reasoning         string          `json:"reasoning"`
	Category          string          `json:"category"`
}

// parseValidationResponse decodes a classifier reply. A missing is_valid
// field is a malformed response, not an implicit verdict; defaulting it
// would silently corrupt the metrics downstream.
func parseValidationResponse(text string) (charter.ValidationResult, error) {
	cleaned := cleanResponse(text)

	var payload validationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		truncated := cleaned
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(cleaned))
		}
		return charter.ValidationResult{}, fmt.Errorf("parsing validation response: %w (truncated response: %s)", err, truncated)
	}
	if payload.IsValid == nil {
		return charter.ValidationResult{}, fmt.Errorf("validation response missing is_valid: %s", cleaned)
	}

	result := charter.ValidationResult{
		IsValid:           *payload.IsValid,
		Violations:        trimAll(payload.Violations),
		EncouragedAspects: trimAll(payload.EncouragedAspects),
		Confidence:        parseConfidence(payload.Confidence),
		Reasoning:         strings.TrimSpace(payload.Reasoning),
	}
	if cat := strings.TrimSpace(payload.Category); charter.ValidCategory(cat) {
		result.PredictedCategory = cat
	}
	return result, nil
}

// parseConfidence accepts a number or a numeric string; anything else
// degrades to 0.5, the "no signal" midpoint.
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return 0.5
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return clamp01(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f); err == nil {
			return clamp01(f)
		}
	}
	return 0.5
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func trimAll(ss []string) []string {
	var out []string
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseRewriteResponse strips fences and surrounding quotes from a rewrite
// reply. An empty result is an error: the rewriter contract is a non-empty
// variant, and the caller's fallback path needs a signal to trigger.
func parseRewriteResponse(text string) (string, error) {
	cleaned := cleanResponse(text)
	cleaned = strings.Trim(cleaned, `"«»`)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", fmt.Errorf("empty rewrite response")
	}
	return cleaned, nil
}
