// Package edit implements the compound mutations of a skill tree.
//
// Renderers never touch the graph store directly. They translate gestures
// into [Editor] calls, which keep the store consistent and trigger a
// connectivity pass whenever an operation can leave a node orphaned:
//
//	ed := edit.New(store, connectivity.New(store), logger)
//	pos, _ := ed.ChildPosition(root)
//	child, err := ed.AddChild(root, pos, "Go")
//	mid, err := ed.SplitEdge(root, child, graph.Point{X: 300, Y: 120}, "")
//	err = ed.RemoveNode(mid) // bridges root and child again
//
// Failures are coded errors from the errors package: NOT_FOUND for unknown
// nodes or connections and FORBIDDEN for removing the central node.
package edit

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/skilltree/pkg/connectivity"
	errs "github.com/matzehuels/skilltree/pkg/errors"
	"github.com/matzehuels/skilltree/pkg/graph"
	"github.com/matzehuels/skilltree/pkg/observability"
)

// childGap is the horizontal spacing between a node and a child created
// next to it.
const childGap = 20

// Mutation names reported to observability hooks.
const (
	OpAddChild   = "add_child"
	OpRemoveNode = "remove_node"
	OpSplitEdge  = "split_edge"
	OpLink       = "link"
	OpReposition = "reposition"
	OpResize     = "resize"
	OpRename     = "rename"
)

// Editor applies mutations to one store and keeps it reconciled.
type Editor struct {
	store  *graph.Store
	engine *connectivity.Engine
	logger *log.Logger
}

// New creates an editor. A nil engine is replaced by one bound to s and a
// nil logger by log.Default().
func New(s *graph.Store, e *connectivity.Engine, logger *log.Logger) *Editor {
	if e == nil {
		e = connectivity.New(s)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Editor{store: s, engine: e, logger: logger}
}

// Store returns the store being edited.
func (ed *Editor) Store() *graph.Store { return ed.store }

// Engine returns the connectivity engine used after mutations.
func (ed *Editor) Engine() *connectivity.Engine { return ed.engine }

// AddChild creates a node at pos linked to parent, then reconciles.
// Returns NOT_FOUND if parent does not exist.
func (ed *Editor) AddChild(parent graph.NodeID, pos graph.Point, label string) (id graph.NodeID, err error) {
	defer ed.record(OpAddChild, time.Now(), &err)

	if !ed.store.HasNode(parent) {
		return 0, errs.New(errs.ErrCodeNotFound, "parent node %d not found", parent)
	}
	id = ed.store.CreateNode(pos, label, graph.Size{}, false)
	if _, err := ed.store.CreateConnection(parent, id); err != nil {
		return 0, err
	}
	ed.logger.Debug("added child", "parent", parent, "node", id)
	ed.reconcile()
	return id, nil
}

// RemoveNode deletes a node and every connection touching it.
//
// When the node had two or more neighbors, the first and last of them (in
// connection order) are linked so the local structure stays connected.
// Any other neighbor left stranded is picked up by the reconciliation pass
// that follows. Returns FORBIDDEN for the central node, leaving the graph
// unchanged, and NOT_FOUND for unknown ids.
func (ed *Editor) RemoveNode(id graph.NodeID) (err error) {
	defer ed.record(OpRemoveNode, time.Now(), &err)

	if !ed.store.HasNode(id) {
		return errs.New(errs.ErrCodeNotFound, "node %d not found", id)
	}
	if ed.store.IsCentral(id) {
		return errs.New(errs.ErrCodeForbidden, "the central node cannot be removed")
	}

	neighbors := ed.store.Neighbors(id)
	if err := ed.store.RemoveNode(id); err != nil {
		return err
	}
	if len(neighbors) >= 2 {
		first, last := neighbors[0], neighbors[len(neighbors)-1]
		if _, err := ed.store.CreateConnection(first, last); err != nil {
			return err
		}
		ed.logger.Debug("bridged neighbors", "removed", id, "a", first, "b", last)
	}
	ed.logger.Debug("removed node", "node", id, "neighbors", len(neighbors))
	ed.reconcile()
	return nil
}

// SplitEdge inserts a new node at pos into the connection {a,b}, replacing
// it with {a,new} and {new,b}. Returns NOT_FOUND if a and b are not linked.
func (ed *Editor) SplitEdge(a, b graph.NodeID, pos graph.Point, label string) (id graph.NodeID, err error) {
	defer ed.record(OpSplitEdge, time.Now(), &err)

	if !ed.store.HasConnection(a, b) {
		return 0, errs.New(errs.ErrCodeNotFound, "connection %d-%d not found", a, b)
	}
	id = ed.store.CreateNode(pos, label, graph.Size{}, false)
	ed.store.RemoveConnection(a, b)
	if _, err := ed.store.CreateConnection(a, id); err != nil {
		return 0, err
	}
	if _, err := ed.store.CreateConnection(id, b); err != nil {
		return 0, err
	}
	ed.logger.Debug("split connection", "a", a, "b", b, "node", id)
	ed.reconcile()
	return id, nil
}

// Link connects two existing nodes. Linking a node to itself or an already
// linked pair is a no-op that returns nil.
func (ed *Editor) Link(a, b graph.NodeID) (c *graph.Connection, err error) {
	defer ed.record(OpLink, time.Now(), &err)
	return ed.store.CreateConnection(a, b)
}

// Reposition moves a node. Connections follow on the next geometry query;
// connectivity is not affected.
func (ed *Editor) Reposition(id graph.NodeID, pos graph.Point) (err error) {
	defer ed.record(OpReposition, time.Now(), &err)
	return ed.store.SetPosition(id, pos)
}

// Move is Reposition under the name group drags expect.
func (ed *Editor) Move(id graph.NodeID, pos graph.Point) error {
	return ed.Reposition(id, pos)
}

// Resize changes a node's size, clamping each dimension to
// [graph.MinNodeSize].
func (ed *Editor) Resize(id graph.NodeID, size graph.Size) (err error) {
	defer ed.record(OpResize, time.Now(), &err)
	size.Width = max(size.Width, graph.MinNodeSize)
	size.Height = max(size.Height, graph.MinNodeSize)
	return ed.store.SetSize(id, size)
}

// Rename relabels a node. Empty input restores the fallback label.
func (ed *Editor) Rename(id graph.NodeID, label string) (err error) {
	defer ed.record(OpRename, time.Now(), &err)
	return ed.store.SetLabel(id, label)
}

// Reconcile runs a connectivity pass outside of any mutation. Hosts call
// it on their periodic tick.
func (ed *Editor) Reconcile() connectivity.Result {
	return ed.reconcile()
}

// =============================================================================
// Placement helpers
// =============================================================================

// ChildPosition returns where a new child of parent is placed by default:
// to the right of the parent, top-aligned, separated by a small gap.
func (ed *Editor) ChildPosition(parent graph.NodeID) (graph.Point, error) {
	n, err := ed.store.Node(parent)
	if err != nil {
		return graph.Point{}, err
	}
	return graph.Point{X: n.Position.X + n.Size.Width + childGap, Y: n.Position.Y}, nil
}

// Midpoint returns the point halfway between the positions of a and b,
// where a node inserted by SplitEdge is placed by default.
func (ed *Editor) Midpoint(a, b graph.NodeID) (graph.Point, error) {
	na, err := ed.store.Node(a)
	if err != nil {
		return graph.Point{}, err
	}
	nb, err := ed.store.Node(b)
	if err != nil {
		return graph.Point{}, err
	}
	return graph.Point{
		X: (na.Position.X + nb.Position.X) / 2,
		Y: (na.Position.Y + nb.Position.Y) / 2,
	}, nil
}

func (ed *Editor) reconcile() connectivity.Result {
	res := ed.engine.Reconcile()
	if len(res.Linked) > 0 {
		ed.logger.Debug("reattached orphans", "linked", len(res.Linked), "duration", res.Duration)
	}
	return res
}

func (ed *Editor) record(op string, start time.Time, err *error) {
	observability.Edit().OnMutation(op, time.Since(start), *err)
}
