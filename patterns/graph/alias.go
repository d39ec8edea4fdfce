package graph

import (
	"strconv"
	"strings"

	"github.com/leofalp/stageflow/core/plan"
)

// aliasTable resolves free-form references to node ids. Keys are lowercased
// and the first node to claim a key keeps it.
type aliasTable map[string]string

func newAliasTable(entries []plan.Entry) aliasTable {
	table := make(aliasTable, len(entries)*6)
	for i, entry := range entries {
		position := strconv.Itoa(i + 1)
		for _, key := range []string{
			entry.NodeID,
			entry.AgentName,
			entry.PhaseLabel,
			entry.BranchKey,
			"step " + position,
			position,
		} {
			table.register(key, entry.NodeID)
		}
	}
	return table
}

func (t aliasTable) register(key, nodeID string) {
	key = normalizeKey(key)
	if key == "" {
		return
	}
	if _, taken := t[key]; taken {
		return
	}
	t[key] = nodeID
}

func (t aliasTable) resolve(ref string) (string, bool) {
	nodeID, ok := t[normalizeKey(ref)]
	return nodeID, ok
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
