// Package graph derives the node/edge diagram of a normalized plan and the
// per-node state a renderer paints on top of it.
//
// [Build] is a pure function of the plan entries. Edges come from explicit
// references first (each entry's incoming and target lists, resolved through
// a case-insensitive alias table), then from phase order: a node without
// explicit targets fans out to every node of the next higher phase. Only
// when neither applies does a node chain to its successor in list order.
// The graph is advisory; execution order is decided by phases alone.
package graph
