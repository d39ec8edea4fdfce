package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/orchestrator"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/patterns/graph"
	"github.com/leofalp/stageflow/providers/store"
)

// planDocument is the file format written by "plan --out" and read by
// "--plan". A hand-written file may use the architect's raw shape instead;
// it is normalized on load.
type planDocument struct {
	ID      string          `json:"id,omitempty"`
	Title   string          `json:"title,omitempty"`
	Problem string          `json:"problem"`
	Plan    []plan.Entry    `json:"plan"`
	Inputs  []dataset.Entry `json:"inputs,omitempty"`
	Graph   *graph.Graph    `json:"graph,omitempty"`
}

func documentOf(problem string, entries []plan.Entry, inputs []dataset.Entry) planDocument {
	g := graph.Build(entries)
	return planDocument{Problem: problem, Plan: entries, Inputs: inputs, Graph: &g}
}

func documentFromSaved(saved *store.SavedPlan) planDocument {
	doc := documentOf(saved.Problem, saved.Plan, saved.Inputs)
	doc.ID = saved.ID
	doc.Title = saved.Title
	return doc
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// loadPlanFile installs the plan stored at path into orch. problem, when
// non-empty, overrides the one recorded in the file.
func loadPlanFile(orch *orchestrator.Orchestrator, path, problem string) (planDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return planDocument{}, fmt.Errorf("read plan file: %w", err)
	}

	var doc planDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return planDocument{}, fmt.Errorf("%s: %w", path, err)
	}
	if strings.TrimSpace(problem) != "" {
		doc.Problem = problem
	}

	if isNormalized(doc.Plan) {
		if err := orch.LoadPlan(doc.Problem, doc.Plan, doc.Inputs); err != nil {
			return planDocument{}, err
		}
		return doc, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return planDocument{}, fmt.Errorf("%s: %w", path, err)
	}
	result, err := orch.SetPlan(doc.Problem, payload)
	if err != nil {
		return planDocument{}, err
	}
	return documentOf(doc.Problem, result.Plan, result.Inputs), nil
}

// isNormalized reports whether entries look like Normalizer output rather
// than raw architect items.
func isNormalized(entries []plan.Entry) bool {
	if len(entries) == 0 {
		return false
	}
	for _, entry := range entries {
		if entry.NodeID == "" || entry.AgentName == "" || entry.Phase < 1 {
			return false
		}
	}
	return true
}
