package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/internal/utils"
)

// MaxInputs bounds the suggested inputs kept from a payload.
const MaxInputs = 3

const noContextSample = "Provide context."

// DefaultInputs returns the inputs offered when the architect suggests none.
func DefaultInputs(problem string) []dataset.Entry {
	brief := utils.Truncate(strings.TrimSpace(problem), 280)
	if brief == "" {
		brief = noContextSample
	}
	return []dataset.Entry{
		dataset.NewEntry("Problem Brief", dataset.TypeText, brief),
		dataset.NewEntry("Sample Metrics", dataset.TypeCSV, "metric,value\nMetric A,0\nMetric B,0\nMetric C,0"),
		dataset.NewEntry("Notes", dataset.TypeText, "- Constraint: TBD\n- Stakeholders: TBD\n- Risk: TBD"),
	}
}

// NormalizeInputs reads payload["inputs"] and returns at most MaxInputs
// entries. When the payload carries no usable input, defaults is returned.
func (n *Normalizer) NormalizeInputs(payload any, problem string, defaults []dataset.Entry) []dataset.Entry {
	var rawInputs []any
	if object, ok := payload.(map[string]any); ok {
		rawInputs, _ = object["inputs"].([]any)
	}

	entries := make([]dataset.Entry, 0, MaxInputs)
	for _, raw := range rawInputs {
		if len(entries) == MaxInputs {
			break
		}
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, normalizeInput(item, len(entries)+1, problem))
	}
	if len(entries) == 0 {
		return defaults
	}
	return entries
}

func normalizeInput(item map[string]any, position int, problem string) dataset.Entry {
	title := stringField(item, "title", "name")
	if title == "" {
		title = fmt.Sprintf("Input %d", position)
	}
	typ, _ := item["type"].(string)

	content := ""
	if raw, ok := firstPresent(item, "sample", "example", "content"); ok {
		content = sampleText(raw)
	}
	if content == "" {
		content = utils.Truncate(strings.TrimSpace(problem), 200)
	}
	if content == "" {
		content = noContextSample
	}
	return dataset.NewEntry(title, dataset.ParseType(typ), content)
}

// sampleText renders a sample value; structured samples are re-encoded as
// JSON so a json-typed input keeps a usable body.
func sampleText(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	if scalar := scalarString(value); scalar != "" {
		return scalar
	}
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return ""
	}
	return string(encoded)
}
