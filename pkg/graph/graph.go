package graph

import (
	"slices"

	errs "github.com/matzehuels/skilltree/pkg/errors"
)

// Option configures a [Store].
type Option func(*Store)

// WithFallbackLabel sets the label substituted for empty node labels.
func WithFallbackLabel(label string) Option {
	return func(s *Store) { s.fallback = label }
}

// WithDefaultSize sets the size given to nodes created with a zero size.
func WithDefaultSize(size Size) Option {
	return func(s *Store) {
		if !size.IsZero() {
			s.defaultSize = size
		}
	}
}

// Store owns the nodes and connections of one skill tree.
//
// The zero value is not usable - use New to create a valid Store.
// Store is not safe for concurrent use without external synchronization.
type Store struct {
	nodes      map[NodeID]*Node
	order      []NodeID                // insertion order of live nodes
	conns      []Connection            // insertion order of live connections
	pairs      map[Connection]struct{} // index over conns
	adj        map[NodeID][]NodeID     // neighbors in connection order
	next       NodeID
	central    NodeID
	hasCentral bool

	fallback    string
	defaultSize Size
}

// New creates an empty store. Id allocation starts at 0.
func New(opts ...Option) *Store {
	s := &Store{
		fallback:    DefaultLabel,
		defaultSize: DefaultSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Reset removes every node and connection and restarts id allocation at 0.
// Configuration set through options is kept.
func (s *Store) Reset() {
	s.nodes = make(map[NodeID]*Node)
	s.order = nil
	s.conns = nil
	s.pairs = make(map[Connection]struct{})
	s.adj = make(map[NodeID][]NodeID)
	s.next = 0
	s.central = 0
	s.hasCentral = false
}

// Replace swaps the entire contents of s with those of src, including the
// id counter. src must not be used afterwards.
func (s *Store) Replace(src *Store) {
	s.nodes = src.nodes
	s.order = src.order
	s.conns = src.conns
	s.pairs = src.pairs
	s.adj = src.adj
	s.next = src.next
	s.central = src.central
	s.hasCentral = src.hasCentral
}

// FallbackLabel returns the label substituted for empty input.
func (s *Store) FallbackLabel() string { return s.fallback }

// DefaultNodeSize returns the size given to nodes created with a zero size.
func (s *Store) DefaultNodeSize() Size { return s.defaultSize }

// =============================================================================
// Nodes
// =============================================================================

// CreateNode adds a node and returns its freshly allocated id.
//
// The label is normalized with [NormalizeLabel] against the store fallback,
// and a zero size is replaced by the default size. When central is true the
// node becomes the designated central node and any previous central node
// loses the flag.
func (s *Store) CreateNode(pos Point, label string, size Size, central bool) NodeID {
	if size.IsZero() {
		size = s.defaultSize
	}
	id := s.next
	s.next++

	s.nodes[id] = &Node{
		ID:       id,
		Position: pos,
		Size:     size,
		Label:    NormalizeLabel(label, s.fallback),
	}
	s.order = append(s.order, id)
	if central {
		s.setCentral(id)
	}
	return id
}

// Node returns a copy of the node with the given id.
// Returns a NOT_FOUND error if the id is unknown or was removed.
func (s *Store) Node(id NodeID) (Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, notFound(id)
	}
	return *n, nil
}

// HasNode reports whether id refers to a live node.
func (s *Store) HasNode(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// RemoveNode deletes a node together with every connection touching it.
// Returns NOT_FOUND for unknown ids and FORBIDDEN for the central node.
func (s *Store) RemoveNode(id NodeID) error {
	if _, ok := s.nodes[id]; !ok {
		return notFound(id)
	}
	if s.hasCentral && id == s.central {
		return errs.New(errs.ErrCodeForbidden, "node %d is the central node", id)
	}
	for _, nb := range slices.Clone(s.adj[id]) {
		s.RemoveConnection(id, nb)
	}
	delete(s.adj, id)
	delete(s.nodes, id)
	s.order = slices.DeleteFunc(s.order, func(o NodeID) bool { return o == id })
	return nil
}

// Nodes returns a snapshot of all nodes in insertion order.
func (s *Store) Nodes() []Node {
	out := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.nodes[id])
	}
	return out
}

// NodeIDs returns the ids of all nodes in insertion order.
func (s *Store) NodeIDs() []NodeID { return slices.Clone(s.order) }

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// Central returns the central node id. The boolean is false for a store
// that has never been given a central node.
func (s *Store) Central() (NodeID, bool) { return s.central, s.hasCentral }

// IsCentral reports whether id is the central node.
func (s *Store) IsCentral(id NodeID) bool { return s.hasCentral && s.central == id }

// SetCentral designates an existing node as central.
func (s *Store) SetCentral(id NodeID) error {
	if _, ok := s.nodes[id]; !ok {
		return notFound(id)
	}
	s.setCentral(id)
	return nil
}

func (s *Store) setCentral(id NodeID) {
	if s.hasCentral {
		if prev, ok := s.nodes[s.central]; ok {
			prev.Central = false
		}
	}
	s.nodes[id].Central = true
	s.central = id
	s.hasCentral = true
}

// SetPosition moves a node. Connection geometry follows on the next query.
func (s *Store) SetPosition(id NodeID, pos Point) error {
	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	n.Position = pos
	return nil
}

// SetSize resizes a node. The size is stored as given.
func (s *Store) SetSize(id NodeID, size Size) error {
	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	n.Size = size
	return nil
}

// SetLabel relabels a node. Empty input restores the fallback label.
func (s *Store) SetLabel(id NodeID, label string) error {
	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	n.Label = NormalizeLabel(label, s.fallback)
	return nil
}

// =============================================================================
// Connections
// =============================================================================

// CreateConnection links a and b and returns the new connection.
//
// Returns nil without error when a == b or when the unordered pair is
// already connected. Returns NOT_FOUND when either endpoint is unknown.
func (s *Store) CreateConnection(a, b NodeID) (*Connection, error) {
	if _, ok := s.nodes[a]; !ok {
		return nil, notFound(a)
	}
	if _, ok := s.nodes[b]; !ok {
		return nil, notFound(b)
	}
	if a == b {
		return nil, nil
	}
	c := NewConnection(a, b)
	if _, exists := s.pairs[c]; exists {
		return nil, nil
	}
	s.conns = append(s.conns, c)
	s.pairs[c] = struct{}{}
	s.adj[a] = append(s.adj[a], b)
	s.adj[b] = append(s.adj[b], a)
	return &c, nil
}

// RemoveConnection unlinks a and b. It reports whether a connection existed.
func (s *Store) RemoveConnection(a, b NodeID) bool {
	c := NewConnection(a, b)
	if _, ok := s.pairs[c]; !ok {
		return false
	}
	delete(s.pairs, c)
	s.conns = slices.DeleteFunc(s.conns, func(o Connection) bool { return o == c })
	s.adj[a] = slices.DeleteFunc(s.adj[a], func(n NodeID) bool { return n == b })
	s.adj[b] = slices.DeleteFunc(s.adj[b], func(n NodeID) bool { return n == a })
	return true
}

// HasConnection reports whether a and b are directly linked.
func (s *Store) HasConnection(a, b NodeID) bool {
	_, ok := s.pairs[NewConnection(a, b)]
	return ok
}

// Connections returns a snapshot of all connections in insertion order.
func (s *Store) Connections() []Connection { return slices.Clone(s.conns) }

// ConnectionCount returns the number of connections.
func (s *Store) ConnectionCount() int { return len(s.conns) }

// Neighbors returns the nodes directly linked to id, in the order the
// connections were created. Returns nil for unknown ids.
func (s *Store) Neighbors(id NodeID) []NodeID { return slices.Clone(s.adj[id]) }

// Degree returns the number of connections touching id.
func (s *Store) Degree(id NodeID) int { return len(s.adj[id]) }

// Segment returns the line between the centers of the two endpoints of c,
// computed from their current positions and sizes.
func (s *Store) Segment(c Connection) (Point, Point, error) {
	a, ok := s.nodes[c.A]
	if !ok {
		return Point{}, Point{}, notFound(c.A)
	}
	b, ok := s.nodes[c.B]
	if !ok {
		return Point{}, Point{}, notFound(c.B)
	}
	return a.Center(), b.Center(), nil
}

func notFound(id NodeID) error {
	return errs.New(errs.ErrCodeNotFound, "node %d not found", id)
}
