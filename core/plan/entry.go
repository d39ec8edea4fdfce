package plan

import (
	"regexp"
	"strconv"
)

// Entry is one agent of a plan.
type Entry struct {
	NodeID            string  `json:"nodeId"`
	AgentName         string  `json:"agentName"`
	SystemInstruction string  `json:"systemInstruction"`
	InitialTask       string  `json:"initialTask"`
	Phase             float64 `json:"phase"`
	PhaseLabel        string  `json:"phaseLabel,omitempty"`
	BranchKey         string  `json:"branchKey,omitempty"`
	// GraphTargets name downstream entries, GraphIncoming upstream ones.
	// Both hold raw references resolved later by the graph builder.
	GraphTargets  []string `json:"graphTargets,omitempty"`
	GraphIncoming []string `json:"graphIncoming,omitempty"`
}

var validatorPattern = regexp.MustCompile(`(?i)validat|compliance|checker|verification|risk|quality|anomaly|audit`)

// IsValidator reports whether the agent checks other agents' work rather
// than producing new output, judged from its name and instruction.
func (e Entry) IsValidator() bool {
	return validatorPattern.MatchString(e.AgentName) || validatorPattern.MatchString(e.SystemInstruction)
}

// FormatPhase renders a phase number without a trailing ".0".
func FormatPhase(phase float64) string {
	return strconv.FormatFloat(phase, 'f', -1, 64)
}

// Clone returns a deep copy of entries.
func Clone(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, entry := range entries {
		entry.GraphTargets = append([]string(nil), entry.GraphTargets...)
		entry.GraphIncoming = append([]string(nil), entry.GraphIncoming...)
		out[i] = entry
	}
	return out
}
