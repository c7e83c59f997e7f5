// Package graph provides the in-memory store for a skill tree.
//
// A skill tree is a set of positioned, labeled [Node] values joined by
// unordered [Connection] pairs, with exactly one node designated as central.
// The [Store] is the sole owner of this state: renderers (the terminal
// editor, the Graphviz exporter, the HTTP API) only read snapshots and report
// gestures back through the edit package.
//
// # Identifiers
//
// Node ids come from a strictly increasing counter and are never reused
// within a session, so a stale id held by a renderer resolves to a
// NOT_FOUND error instead of aliasing a newer node. [Store.Reset] is the only
// way to restart allocation at 0 (used by token import).
//
// # Connections
//
// Connections are normalized so that A < B. At most one connection exists
// per unordered pair and self-loops are rejected:
//
//	c, _ := s.CreateConnection(a, b) // new connection
//	c, _ = s.CreateConnection(b, a)  // nil: pair already exists
//	c, _ = s.CreateConnection(a, a)  // nil: self-loop
//
// Connection geometry is never stored. [Store.Segment] recomputes the line
// between the two endpoint centers from current positions on every call.
//
// # Labels
//
// Labels are never rejected. Empty or whitespace-only input is replaced by
// the store's fallback label ("New Skill" unless configured otherwise):
//
//	id := s.CreateNode(graph.Point{X: 10, Y: 10}, "   ", graph.Size{}, false)
//	n, _ := s.Node(id) // n.Label == "New Skill"
//
// # Concurrency
//
// Store is not safe for concurrent use. The session package serializes all
// access at event-handler granularity.
package graph
