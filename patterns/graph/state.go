package graph

import "slices"

// NodeStatus is the run status painted on a node.
type NodeStatus string

const (
	NodePending   NodeStatus = "pending"
	NodeRunning   NodeStatus = "running"
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
)

// NodeState is the per-node overlay handed to the renderer on every change.
type NodeState struct {
	Running   []string `json:"running"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
	// Focused is the most recently updated node, if any.
	Focused string `json:"focused,omitempty"`
}

// Status returns the status of id. A node listed in several sets reports
// the most advanced one: failed, then completed, then running.
func (s NodeState) Status(id string) NodeStatus {
	switch {
	case slices.Contains(s.Failed, id):
		return NodeFailed
	case slices.Contains(s.Completed, id):
		return NodeCompleted
	case slices.Contains(s.Running, id):
		return NodeRunning
	default:
		return NodePending
	}
}

// NodeView is a node with its current status, ready for rendering.
type NodeView struct {
	Node
	Status  NodeStatus `json:"status"`
	Focused bool       `json:"focused,omitempty"`
}

// View combines the graph with a state snapshot.
func (g Graph) View(state NodeState) []NodeView {
	views := make([]NodeView, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		views = append(views, NodeView{
			Node:    node,
			Status:  state.Status(node.ID),
			Focused: state.Focused != "" && state.Focused == node.ID,
		})
	}
	return views
}
