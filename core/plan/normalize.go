package plan

import (
	"fmt"
	"strconv"
)

const (
	// DefaultMinAgents is the smallest plan Normalize returns.
	DefaultMinAgents = 2
	// DefaultMaxAgents is the largest plan Normalize returns.
	DefaultMaxAgents = 6

	defaultInstruction = "Deliver the next actionable step."
	defaultTask        = "Next step."
)

// Field aliases accepted in architect payloads.
var (
	idKeys         = []string{"nodeId", "id", "agentName"}
	phaseKeys      = []string{"stage", "phase", "step", "sequence", "order"}
	phaseLabelKeys = []string{"stageLabel", "phaseLabel"}
	branchKeys     = []string{"branch", "parallelGroup", "lane"}
	outgoingKeys   = []string{"next", "children", "targets", "links", "branches", "connections", "to", "parallel"}
	incomingKeys   = []string{"dependsOn", "requires", "after", "parents", "prerequisites", "inputsFrom", "waitFor", "sources"}
	graphOutKeys   = []string{"edges", "connections"}
	graphInKeys    = []string{"parents", "sources"}
)

// fallbackAgents pad plans that come back short or unusable.
var fallbackAgents = []map[string]any{
	{
		"agentName":         "Planner",
		"systemInstruction": "Outline the next actionable step.",
		"initialTask":       "Outline the next step.",
	},
	{
		"agentName":         "Validator",
		"systemInstruction": "Validate previous output.",
		"initialTask":       "Validate and adjust previous result.",
	},
}

// Normalizer applies the plan bounds. The zero value is not usable; create
// one with NewNormalizer.
type Normalizer struct {
	minAgents int
	maxAgents int
}

// NewNormalizer returns a normalizer producing between minAgents and
// maxAgents entries. minAgents is raised to 1 and maxAgents to minAgents
// when given smaller values.
func NewNormalizer(minAgents, maxAgents int) *Normalizer {
	if minAgents < 1 {
		minAgents = 1
	}
	if maxAgents < minAgents {
		maxAgents = minAgents
	}
	return &Normalizer{minAgents: minAgents, maxAgents: maxAgents}
}

// Bounds returns the configured minimum and maximum agent counts.
func (n *Normalizer) Bounds() (int, int) {
	return n.minAgents, n.maxAgents
}

// Normalize reads payload["plan"] and returns a valid plan. It never fails:
// a missing or malformed plan yields the fallback agents, cycled up to the
// minimum.
func (n *Normalizer) Normalize(payload any) []Entry {
	var rawPlan []any
	if object, ok := payload.(map[string]any); ok {
		rawPlan, _ = object["plan"].([]any)
	}

	items := make([]map[string]any, 0, n.maxAgents)
	for _, raw := range rawPlan {
		if len(items) == n.maxAgents {
			break
		}
		if item, ok := raw.(map[string]any); ok {
			items = append(items, item)
		}
	}
	for len(items) < n.minAgents {
		items = append(items, fallbackAgents[len(items)%len(fallbackAgents)])
	}

	used := make(map[string]struct{}, len(items))
	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		entries = append(entries, normalizeEntry(item, i+1, used))
	}
	return entries
}

func normalizeEntry(item map[string]any, position int, used map[string]struct{}) Entry {
	entry := Entry{
		NodeID:            uniqueID(nodeIDBase(item, position), used),
		AgentName:         stringField(item, "agentName", "name", "role"),
		SystemInstruction: stringField(item, "systemInstruction", "instruction"),
		InitialTask:       stringField(item, "initialTask", "task"),
	}
	if entry.AgentName == "" {
		entry.AgentName = fmt.Sprintf("Agent %d", position)
	}
	if entry.InitialTask == "" {
		entry.InitialTask = entry.SystemInstruction
	}
	if entry.InitialTask == "" {
		entry.InitialTask = defaultTask
	}
	if entry.SystemInstruction == "" {
		entry.SystemInstruction = defaultInstruction
	}

	rawPhase, hasPhase := firstPresent(item, phaseKeys...)
	entry.Phase = float64(position)
	if hasPhase {
		if phase, ok := parseNumber(rawPhase); ok {
			entry.Phase = phase
		}
	}
	entry.PhaseLabel = phaseLabel(item, rawPhase, entry.Phase)

	if branch, ok := firstPresent(item, branchKeys...); ok {
		entry.BranchKey = slugify(scalarString(branch))
	}

	outgoing := valuesOf(item, outgoingKeys)
	incoming := valuesOf(item, incomingKeys)
	if graph, ok := item["graph"].(map[string]any); ok {
		outgoing = append(outgoing, valuesOf(graph, graphOutKeys)...)
		incoming = append(incoming, valuesOf(graph, graphInKeys)...)
	}
	entry.GraphTargets = collectRefs(outgoing...)
	entry.GraphIncoming = collectRefs(incoming...)

	return entry
}

func nodeIDBase(item map[string]any, position int) string {
	fallback := "agent-" + strconv.Itoa(position)
	raw, ok := firstPresent(item, idKeys...)
	if !ok {
		return fallback
	}
	if slug := slugify(scalarString(raw)); slug != "" {
		return slug
	}
	return fallback
}

// uniqueID returns base, or base-2, base-3, ... if taken, and records it.
func uniqueID(base string, used map[string]struct{}) string {
	id := base
	for suffix := 2; ; suffix++ {
		if _, taken := used[id]; !taken {
			break
		}
		id = base + "-" + strconv.Itoa(suffix)
	}
	used[id] = struct{}{}
	return id
}

// phaseLabel prefers an explicit label, then a descriptive phase value, then
// a descriptive group, then "Stage <phase>".
func phaseLabel(item map[string]any, rawPhase any, phase float64) string {
	if label := stringField(item, phaseLabelKeys...); label != "" {
		return label
	}
	if label, ok := descriptive(rawPhase); ok {
		return label
	}
	if label, ok := descriptive(item["group"]); ok {
		return label
	}
	return "Stage " + FormatPhase(phase)
}

func valuesOf(item map[string]any, keys []string) []any {
	var values []any
	for _, key := range keys {
		if value, ok := item[key]; ok {
			values = append(values, value)
		}
	}
	return values
}
