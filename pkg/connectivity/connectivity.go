// Package connectivity keeps every node of a skill tree reachable from the
// central node.
//
// Reachability is soft: a removal or an external drag can leave a node
// orphaned for a moment. [Engine.Reconcile] restores the invariant by linking
// each orphan to the reachable node whose position is nearest in canvas
// space. Callers run it right after edits that can orphan nodes and on a
// fixed period (100ms by default) to absorb changes the core never observes
// transactionally:
//
//	eng := connectivity.New(store)
//	res := eng.Reconcile()
//	fmt.Println(len(res.Linked), "orphans reattached")
//
// Reconcile is idempotent. A second pass with no intervening mutation finds
// no orphans and creates nothing.
package connectivity

import (
	"math"
	"time"

	"github.com/matzehuels/skilltree/pkg/graph"
	"github.com/matzehuels/skilltree/pkg/observability"
)

// Engine answers reachability queries and repairs orphans for one store.
// It holds no state of its own beyond the store reference.
type Engine struct {
	store *graph.Store
}

// New creates an engine bound to s.
func New(s *graph.Store) *Engine {
	return &Engine{store: s}
}

// Result describes one reconciliation pass.
type Result struct {
	Orphans  int                // orphans found at the start of the pass
	Linked   []graph.Connection // connections created by the pass
	Duration time.Duration
}

// IsReachable reports whether id can reach the central node through
// connections. The search is breadth-first from id and stops as soon as the
// central node is found. The central node is trivially reachable; unknown
// ids and stores without a central node are not.
func (e *Engine) IsReachable(id graph.NodeID) bool {
	central, ok := e.store.Central()
	if !ok || !e.store.HasNode(id) {
		return false
	}
	if id == central {
		return true
	}
	found := false
	e.walk(id, nil, func(n graph.NodeID) bool {
		if n == central {
			found = true
			return false
		}
		return true
	})
	return found
}

// Orphans returns the non-central nodes that cannot reach the central node,
// in store order.
func (e *Engine) Orphans() []graph.NodeID {
	reachable := e.reachable()
	var out []graph.NodeID
	for _, id := range e.store.NodeIDs() {
		if !reachable[id] && !e.store.IsCentral(id) {
			out = append(out, id)
		}
	}
	return out
}

// Reconcile links every orphan to the nearest reachable node.
//
// Distance is Euclidean between node positions, not graph distance. Ties go
// to the node that comes first in store order. Once an orphan is linked its
// whole component joins the reachable set, so later orphans from the same
// component are skipped and may attach to it. When nothing is reachable the
// orphan is linked straight to the central node.
func (e *Engine) Reconcile() Result {
	start := time.Now()
	central, hasCentral := e.store.Central()
	nodes := e.store.Nodes()
	reachable := e.reachable()

	var orphans []graph.Node
	for _, n := range nodes {
		if !reachable[n.ID] && !(hasCentral && n.ID == central) {
			orphans = append(orphans, n)
		}
	}

	res := Result{Orphans: len(orphans)}
	for _, o := range orphans {
		if reachable[o.ID] {
			continue
		}
		target, ok := nearest(o, nodes, reachable)
		if !ok {
			if !hasCentral {
				continue
			}
			target = central
		}
		c, err := e.store.CreateConnection(o.ID, target)
		if err == nil && c != nil {
			res.Linked = append(res.Linked, *c)
		}
		e.walk(o.ID, reachable, func(graph.NodeID) bool { return true })
	}

	res.Duration = time.Since(start)
	observability.Edit().OnReconcile(res.Orphans, len(res.Linked), res.Duration)
	return res
}

// reachable returns the set of nodes connected to the central node,
// including the central node itself.
func (e *Engine) reachable() map[graph.NodeID]bool {
	seen := make(map[graph.NodeID]bool, e.store.NodeCount())
	if central, ok := e.store.Central(); ok {
		e.walk(central, seen, func(graph.NodeID) bool { return true })
	}
	return seen
}

// walk runs a breadth-first traversal from start, marking nodes in seen
// (allocated when nil). visit is called once per dequeued node; returning
// false stops the traversal.
func (e *Engine) walk(start graph.NodeID, seen map[graph.NodeID]bool, visit func(graph.NodeID) bool) {
	if seen == nil {
		seen = make(map[graph.NodeID]bool)
	}
	seen[start] = true
	queue := []graph.NodeID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !visit(cur) {
			return
		}
		for _, nb := range e.store.Neighbors(cur) {
			if !seen[nb] {
				seen[nb] = true
				queue = append(queue, nb)
			}
		}
	}
}

// nearest returns the reachable node closest to o by position.
func nearest(o graph.Node, nodes []graph.Node, reachable map[graph.NodeID]bool) (graph.NodeID, bool) {
	var (
		best    graph.NodeID
		found   bool
		minDist = math.Inf(1)
	)
	for _, n := range nodes {
		if n.ID == o.ID || !reachable[n.ID] {
			continue
		}
		if d := o.Position.Distance(n.Position); d < minDist {
			minDist = d
			best = n.ID
			found = true
		}
	}
	return best, found
}
