package plan

import (
	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/internal/utils"
)

// Result is a normalized architect response.
type Result struct {
	Plan   []Entry         `json:"plan"`
	Inputs []dataset.Entry `json:"inputs"`
	// Parsed is false when the text held no decodable JSON object and the
	// plan is entirely made of fallback agents.
	Parsed bool `json:"-"`
}

// ParsePayload extracts and decodes the JSON object in model output text,
// repairing it when needed. It returns nil when nothing decodable is found.
func ParsePayload(text string) map[string]any {
	payload, err := utils.ParseStringAs[map[string]any](utils.ExtractJSON(text))
	if err != nil {
		return nil
	}
	return payload
}

// FromResponse parses architect output and normalizes plan and inputs.
func (n *Normalizer) FromResponse(text, problem string) Result {
	payload := ParsePayload(text)
	return Result{
		Plan:   n.Normalize(payload),
		Inputs: n.NormalizeInputs(payload, problem, DefaultInputs(problem)),
		Parsed: payload != nil,
	}
}
