package graph

import (
	"slices"

	"github.com/leofalp/stageflow/core/plan"
)

// NodeKind separates agents that produce work from agents that check it.
type NodeKind string

const (
	KindProcess    NodeKind = "process"
	KindValidation NodeKind = "validation"
)

// Node is one plan entry as the renderer sees it.
type Node struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Phase      float64  `json:"phase"`
	PhaseLabel string   `json:"phaseLabel,omitempty"`
	BranchKey  string   `json:"branchKey,omitempty"`
	Kind       NodeKind `json:"kind"`
}

// Edge is a directed source -> target pair.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the derived, read-only diagram of a plan.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build derives the graph of entries. It never fails; a plan with a single
// node yields no edges. The result has no self-edges and no duplicate pairs.
func Build(entries []plan.Entry) Graph {
	g := Graph{Nodes: make([]Node, 0, len(entries)), Edges: []Edge{}}
	for _, entry := range entries {
		kind := KindProcess
		if entry.IsValidator() {
			kind = KindValidation
		}
		g.Nodes = append(g.Nodes, Node{
			ID:         entry.NodeID,
			Label:      entry.AgentName,
			Phase:      entry.Phase,
			PhaseLabel: entry.PhaseLabel,
			BranchKey:  entry.BranchKey,
			Kind:       kind,
		})
	}

	aliases := newAliasTable(entries)
	edges := newEdgeSet()

	// Incoming references of every node are added before any outgoing one,
	// so they lead the edge list.
	resolvedIncoming := make([]int, len(entries))
	for i, entry := range entries {
		for _, ref := range entry.GraphIncoming {
			if source, ok := aliases.resolve(ref); ok {
				edges.add(source, entry.NodeID)
				resolvedIncoming[i]++
			}
		}
	}

	explicit := make([]bool, len(entries))
	for i, entry := range entries {
		for _, ref := range entry.GraphTargets {
			if target, ok := aliases.resolve(ref); ok {
				edges.add(entry.NodeID, target)
				explicit[i] = true
			}
		}
	}

	phases := distinctPhases(entries)
	for i, entry := range entries {
		if explicit[i] {
			continue
		}
		if next, ok := nextPhase(phases, entry.Phase); ok {
			for _, candidate := range entries {
				if candidate.Phase == next {
					edges.add(entry.NodeID, candidate.NodeID)
				}
			}
			continue
		}
		if resolvedIncoming[i] == 0 && i+1 < len(entries) {
			edges.add(entry.NodeID, entries[i+1].NodeID)
		}
	}

	g.Edges = append(g.Edges, edges.list...)
	return g
}

// Node returns the node with id.
func (g Graph) Node(id string) (Node, bool) {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

// Successors returns the targets of edges leaving id, in edge order.
func (g Graph) Successors(id string) []string {
	var out []string
	for _, edge := range g.Edges {
		if edge.Source == id {
			out = append(out, edge.Target)
		}
	}
	return out
}

// HasEdge reports whether source -> target is in the graph.
func (g Graph) HasEdge(source, target string) bool {
	return slices.Contains(g.Edges, Edge{Source: source, Target: target})
}

func distinctPhases(entries []plan.Entry) []float64 {
	phases := make([]float64, 0, len(entries))
	for _, entry := range entries {
		phases = append(phases, entry.Phase)
	}
	slices.Sort(phases)
	return slices.Compact(phases)
}

// nextPhase returns the smallest phase strictly greater than phase.
func nextPhase(sorted []float64, phase float64) (float64, bool) {
	for _, candidate := range sorted {
		if candidate > phase {
			return candidate, true
		}
	}
	return 0, false
}

// edgeSet keeps insertion order and drops self-edges and duplicates.
type edgeSet struct {
	seen map[Edge]struct{}
	list []Edge
}

func newEdgeSet() *edgeSet {
	return &edgeSet{seen: make(map[Edge]struct{})}
}

func (s *edgeSet) add(source, target string) {
	if source == target {
		return
	}
	edge := Edge{Source: source, Target: target}
	if _, dup := s.seen[edge]; dup {
		return
	}
	s.seen[edge] = struct{}{}
	s.list = append(s.list, edge)
}
