package graph

import (
	"fmt"
	"math"
	"strings"
)

// =============================================================================
// Constants
// =============================================================================

// DefaultLabel is the fallback label substituted for empty input.
const DefaultLabel = "New Skill"

// MinNodeSize is the smallest width or height a node may be resized to.
const MinNodeSize = 80

// DefaultSize is the size given to nodes created without an explicit size.
var DefaultSize = Size{Width: MinNodeSize, Height: MinNodeSize}

// =============================================================================
// Geometry
// =============================================================================

// Point is a position in canvas coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point { return Point{X: p.X + d.X, Y: p.Y + d.Y} }

// Sub returns the delta from q to p.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Size is the width and height of a node.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// IsZero reports whether both dimensions are unset.
func (s Size) IsZero() bool { return s.Width == 0 && s.Height == 0 }

// Rect is an axis-aligned rectangle. Min is the top-left corner.
type Rect struct {
	Min Point `json:"min" yaml:"min"`
	Max Point `json:"max" yaml:"max"`
}

// RectFromPoints builds a normalized rectangle spanning a and b, whichever
// corner each of them is.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Intersects reports whether r and o overlap on both axes. Edges are open:
// rectangles that merely touch do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.Max.X > o.Min.X && r.Min.X < o.Max.X &&
		r.Max.Y > o.Min.Y && r.Min.Y < o.Max.Y
}

// =============================================================================
// Node
// =============================================================================

// NodeID identifies a node within a store.
type NodeID int

// String returns the decimal form used in tokens and DOT output.
func (id NodeID) String() string { return fmt.Sprintf("%d", int(id)) }

// Node is a positioned, labeled vertex of the skill tree.
// Values returned by the store are copies.
type Node struct {
	ID       NodeID `json:"id" yaml:"id"`
	Position Point  `json:"position" yaml:"position"` // Top-left corner
	Size     Size   `json:"size" yaml:"size"`
	Label    string `json:"label" yaml:"label"`
	Central  bool   `json:"central,omitempty" yaml:"central,omitempty"`
}

// Bounds returns the node's bounding rectangle.
func (n Node) Bounds() Rect {
	return Rect{
		Min: n.Position,
		Max: Point{X: n.Position.X + n.Size.Width, Y: n.Position.Y + n.Size.Height},
	}
}

// Center returns the center of the node's bounding rectangle.
func (n Node) Center() Point { return n.Bounds().Center() }

// NormalizeLabel returns label unless it is empty or whitespace-only, in
// which case fallback is returned. An empty fallback means [DefaultLabel].
func NormalizeLabel(label, fallback string) string {
	if strings.TrimSpace(label) != "" {
		return label
	}
	if strings.TrimSpace(fallback) == "" {
		return DefaultLabel
	}
	return fallback
}

// =============================================================================
// Connection
// =============================================================================

// Connection is an unordered adjacency between two nodes, normalized so
// that A < B. It has no identity beyond its endpoint pair.
type Connection struct {
	A NodeID `json:"a" yaml:"a"`
	B NodeID `json:"b" yaml:"b"`
}

// NewConnection returns the normalized connection between a and b.
func NewConnection(a, b NodeID) Connection {
	if b < a {
		a, b = b, a
	}
	return Connection{A: a, B: b}
}

// Touches reports whether id is one of the endpoints.
func (c Connection) Touches(id NodeID) bool { return c.A == id || c.B == id }

// Other returns the endpoint opposite id. The result is meaningless when
// id is not an endpoint.
func (c Connection) Other(id NodeID) NodeID {
	if c.A == id {
		return c.B
	}
	return c.A
}

// String renders the pair as "a-b".
func (c Connection) String() string { return fmt.Sprintf("%d-%d", c.A, c.B) }
