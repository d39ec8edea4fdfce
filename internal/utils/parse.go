package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs decodes content as JSON into T. When plain decoding fails the
// content is run through jsonrepair and decoded again, which recovers most of
// the near-JSON models produce (single quotes, trailing commas, unquoted keys,
// truncated objects).
//
//	payload, err := ParseStringAs[map[string]any](`{plan: [{'agentName': 'Planner',}]}`)
func ParseStringAs[T any](content string) (T, error) {
	var result T

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	result = *new(T)
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w", result, err)
	}
	return result, nil
}

// ExtractJSON pulls the JSON object out of free-form model output. Markdown
// code fences are stripped, then the text between the first '{' and the last
// '}' is returned. Text without braces is returned trimmed.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if newline := strings.IndexByte(text, '\n'); newline >= 0 {
			// Drop the info string (```json).
			text = text[newline+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	if start >= 0 {
		// Unterminated object; leave it for jsonrepair to close.
		return text[start:]
	}
	return strings.TrimSpace(text)
}
