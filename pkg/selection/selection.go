// Package selection tracks the set of active nodes and the pointer gestures
// that change it.
//
// A [Manager] is a small state machine with two states. In [Idle], clicks
// toggle or replace the selection and group drags translate every selected
// node rigidly. A pointer-down on empty canvas enters [BoxSelecting]; the
// matching pointer-up selects every node whose bounds intersect the
// rectangle spanned by the two points.
//
// Gestures carry no cancellation token. An unfinished gesture is discarded
// when the next one begins.
package selection

import (
	"maps"
	"slices"

	"github.com/matzehuels/skilltree/pkg/graph"
)

// State is the gesture state of a Manager.
type State int

const (
	Idle State = iota
	BoxSelecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BoxSelecting:
		return "box-selecting"
	default:
		return "unknown"
	}
}

// Mover updates a node position during a group drag.
type Mover interface {
	Move(id graph.NodeID, pos graph.Point) error
}

// StoreMover adapts a store to [Mover].
type StoreMover struct{ Store *graph.Store }

// Move implements Mover.
func (m StoreMover) Move(id graph.NodeID, pos graph.Point) error {
	return m.Store.SetPosition(id, pos)
}

// Manager holds the selection set and in-flight gesture state. The zero
// value is not usable; call New.
type Manager struct {
	selected map[graph.NodeID]struct{}
	state    State
	anchor   graph.Point

	dragOrigin graph.Point
	dragStart  map[graph.NodeID]graph.Point
}

// New creates an idle manager with an empty selection.
func New() *Manager {
	return &Manager{selected: make(map[graph.NodeID]struct{})}
}

// State returns the current gesture state.
func (m *Manager) State() State { return m.state }

// Contains reports whether id is selected.
func (m *Manager) Contains(id graph.NodeID) bool {
	_, ok := m.selected[id]
	return ok
}

// Len returns the number of selected nodes.
func (m *Manager) Len() int { return len(m.selected) }

// IDs returns the selected ids in ascending order.
func (m *Manager) IDs() []graph.NodeID {
	return slices.Sorted(maps.Keys(m.selected))
}

// Clear empties the selection and abandons any gesture.
func (m *Manager) Clear() {
	clear(m.selected)
	m.state = Idle
	m.dragStart = nil
}

// Prune drops selected ids for which exists returns false. Hosts call it
// after removals so the selection never names dead nodes.
func (m *Manager) Prune(exists func(graph.NodeID) bool) {
	for id := range m.selected {
		if !exists(id) {
			delete(m.selected, id)
		}
	}
}

// Click applies a node-level click. With modifier held the node is toggled
// and the rest of the set is untouched. Without it, an unselected node
// replaces the set and a selected node keeps the whole set so it can be
// dragged as a group. Reports whether a drag may start from this click.
func (m *Manager) Click(id graph.NodeID, modifier bool) bool {
	if modifier {
		if m.Contains(id) {
			delete(m.selected, id)
			return false
		}
		m.selected[id] = struct{}{}
		return true
	}
	if !m.Contains(id) {
		clear(m.selected)
		m.selected[id] = struct{}{}
	}
	return true
}

// =============================================================================
// Box selection
// =============================================================================

// BeginBox starts a box selection at p. The current selection is cleared.
func (m *Manager) BeginBox(p graph.Point) {
	clear(m.selected)
	m.dragStart = nil
	m.state = BoxSelecting
	m.anchor = p
}

// UpdateBox returns the live rectangle from the anchor to p for renderers.
// Outside of a box gesture it returns the empty rectangle at p.
func (m *Manager) UpdateBox(p graph.Point) graph.Rect {
	if m.state != BoxSelecting {
		return graph.Rect{Min: p, Max: p}
	}
	return graph.RectFromPoints(m.anchor, p)
}

// EndBox finishes a box selection at p and adds every node in nodes whose
// bounds intersect the rectangle. Returns the ids added, in the order of
// nodes. Calling it outside of a box gesture does nothing.
func (m *Manager) EndBox(p graph.Point, nodes []graph.Node) []graph.NodeID {
	if m.state != BoxSelecting {
		return nil
	}
	m.state = Idle
	box := graph.RectFromPoints(m.anchor, p)

	var added []graph.NodeID
	for _, n := range nodes {
		if n.Bounds().Intersects(box) {
			m.selected[n.ID] = struct{}{}
			added = append(added, n.ID)
		}
	}
	return added
}

// =============================================================================
// Group drag
// =============================================================================

// BeginDrag captures the start position of every selected node. Positions
// are looked up in src; ids src does not know are left out of the drag.
func (m *Manager) BeginDrag(src *graph.Store, pointer graph.Point) {
	m.state = Idle
	m.dragOrigin = pointer
	m.dragStart = make(map[graph.NodeID]graph.Point, len(m.selected))
	for id := range m.selected {
		if n, err := src.Node(id); err == nil {
			m.dragStart[id] = n.Position
		}
	}
}

// Dragging reports whether a group drag is in progress.
func (m *Manager) Dragging() bool { return m.dragStart != nil }

// DragTo moves every captured node by the pointer delta since BeginDrag,
// measured from its captured start so the group stays rigid no matter how
// many frames are delivered. The first error from mv is returned after all
// nodes were attempted.
func (m *Manager) DragTo(mv Mover, pointer graph.Point) error {
	if m.dragStart == nil {
		return nil
	}
	delta := pointer.Sub(m.dragOrigin)
	var first error
	for _, id := range slices.Sorted(maps.Keys(m.dragStart)) {
		if err := mv.Move(id, m.dragStart[id].Add(delta)); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// EndDrag finishes the group drag.
func (m *Manager) EndDrag() {
	m.dragStart = nil
}
