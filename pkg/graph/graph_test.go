package graph

import (
	"slices"
	"testing"

	errs "github.com/matzehuels/skilltree/pkg/errors"
)

func newTestStore(t *testing.T) (*Store, NodeID) {
	t.Helper()
	s := New()
	c := s.CreateNode(Point{X: 400, Y: 300}, "Central Skill", Size{Width: 100, Height: 100}, true)
	return s, c
}

func TestCreateNode(t *testing.T) {
	s, c := newTestStore(t)

	n, err := s.Node(c)
	if err != nil {
		t.Fatalf("Node(%d) error: %v", c, err)
	}
	if !n.Central {
		t.Error("central flag not set")
	}
	if n.Size != (Size{Width: 100, Height: 100}) {
		t.Errorf("Size = %+v, want 100x100", n.Size)
	}

	id := s.CreateNode(Point{X: 1, Y: 2}, "Go", Size{}, false)
	n, _ = s.Node(id)
	if n.Size != DefaultSize {
		t.Errorf("Size = %+v, want default %+v", n.Size, DefaultSize)
	}
	if n.Position != (Point{X: 1, Y: 2}) {
		t.Errorf("Position = %+v", n.Position)
	}
}

func TestLabelFallback(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		label    string
		expected string
	}{
		{"empty", nil, "", DefaultLabel},
		{"whitespace", nil, "   ", DefaultLabel},
		{"tabs and newlines", nil, "\t\n", DefaultLabel},
		{"kept", nil, "Rust", "Rust"},
		{"kept with padding", nil, "  Rust ", "  Rust "},
		{"custom fallback", []Option{WithFallbackLabel("Skill")}, " ", "Skill"},
		{"blank custom fallback", []Option{WithFallbackLabel(" ")}, "", DefaultLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.opts...)
			id := s.CreateNode(Point{}, tt.label, Size{}, false)
			n, _ := s.Node(id)
			if n.Label != tt.expected {
				t.Errorf("Label = %q, want %q", n.Label, tt.expected)
			}
		})
	}
}

func TestIDsNeverReused(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.CreateNode(Point{}, "a", Size{}, false)
	if err := s.RemoveNode(a); err != nil {
		t.Fatalf("RemoveNode error: %v", err)
	}
	b := s.CreateNode(Point{}, "b", Size{}, false)
	if b <= a {
		t.Errorf("new id %d should be greater than removed id %d", b, a)
	}
	if _, err := s.Node(a); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("stale id: want NOT_FOUND, got %v", err)
	}
}

func TestRemoveNode(t *testing.T) {
	s, c := newTestStore(t)
	a := s.CreateNode(Point{}, "a", Size{}, false)
	b := s.CreateNode(Point{}, "b", Size{}, false)
	s.CreateConnection(c, a)
	s.CreateConnection(a, b)

	if err := s.RemoveNode(c); !errs.Is(err, errs.ErrCodeForbidden) {
		t.Errorf("RemoveNode(central): want FORBIDDEN, got %v", err)
	}
	if err := s.RemoveNode(99); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("RemoveNode(unknown): want NOT_FOUND, got %v", err)
	}

	if err := s.RemoveNode(a); err != nil {
		t.Fatalf("RemoveNode error: %v", err)
	}
	if s.ConnectionCount() != 0 {
		t.Errorf("connections touching removed node survived: %v", s.Connections())
	}
	if got := s.NodeIDs(); !slices.Equal(got, []NodeID{c, b}) {
		t.Errorf("NodeIDs = %v, want [%d %d]", got, c, b)
	}
	if s.Degree(b) != 0 {
		t.Errorf("Degree(b) = %d, want 0", s.Degree(b))
	}
}

func TestCreateConnection(t *testing.T) {
	s, c := newTestStore(t)
	a := s.CreateNode(Point{}, "a", Size{}, false)

	conn, err := s.CreateConnection(a, c)
	if err != nil || conn == nil {
		t.Fatalf("CreateConnection = %v, %v", conn, err)
	}
	if conn.A != c || conn.B != a {
		t.Errorf("connection not normalized: %+v", conn)
	}

	// Reversed pair is a no-op
	if conn, err := s.CreateConnection(c, a); conn != nil || err != nil {
		t.Errorf("duplicate pair: got %v, %v; want nil, nil", conn, err)
	}
	// Self-loop is a no-op
	for _, id := range []NodeID{c, a} {
		if conn, err := s.CreateConnection(id, id); conn != nil || err != nil {
			t.Errorf("self-loop on %d: got %v, %v; want nil, nil", id, conn, err)
		}
	}
	if _, err := s.CreateConnection(a, 42); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("unknown endpoint: want NOT_FOUND, got %v", err)
	}
	if s.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", s.ConnectionCount())
	}
}

func TestNoParallelEdges(t *testing.T) {
	s := New()
	var ids []NodeID
	for i := 0; i < 5; i++ {
		ids = append(ids, s.CreateNode(Point{}, "", Size{}, i == 0))
	}
	// Try every ordered pair twice
	for round := 0; round < 2; round++ {
		for _, a := range ids {
			for _, b := range ids {
				s.CreateConnection(a, b)
			}
		}
	}

	seen := make(map[Connection]bool)
	for _, c := range s.Connections() {
		if seen[c] {
			t.Fatalf("duplicate connection %v", c)
		}
		if c.A == c.B {
			t.Fatalf("self-loop %v", c)
		}
		seen[c] = true
	}
	if want := 5 * 4 / 2; len(seen) != want {
		t.Errorf("connections = %d, want %d", len(seen), want)
	}
}

func TestNeighborsOrder(t *testing.T) {
	s, c := newTestStore(t)
	a := s.CreateNode(Point{}, "a", Size{}, false)
	b := s.CreateNode(Point{}, "b", Size{}, false)
	d := s.CreateNode(Point{}, "d", Size{}, false)
	s.CreateConnection(b, a)
	s.CreateConnection(a, c)
	s.CreateConnection(d, a)

	if got := s.Neighbors(a); !slices.Equal(got, []NodeID{b, c, d}) {
		t.Errorf("Neighbors = %v, want [%d %d %d]", got, b, c, d)
	}

	s.RemoveConnection(c, a)
	if got := s.Neighbors(a); !slices.Equal(got, []NodeID{b, d}) {
		t.Errorf("Neighbors after removal = %v", got)
	}
	if s.RemoveConnection(c, a) {
		t.Error("second RemoveConnection should report false")
	}
}

func TestSetCentral(t *testing.T) {
	s, c := newTestStore(t)
	a := s.CreateNode(Point{}, "a", Size{}, true)

	if got, _ := s.Central(); got != a {
		t.Errorf("Central = %d, want %d", got, a)
	}
	old, _ := s.Node(c)
	if old.Central {
		t.Error("previous central node kept its flag")
	}
	if err := s.SetCentral(c); err != nil {
		t.Fatal(err)
	}
	if !s.IsCentral(c) || s.IsCentral(a) {
		t.Error("SetCentral did not move the flag")
	}
}

func TestSegmentFollowsPosition(t *testing.T) {
	s, c := newTestStore(t)
	a := s.CreateNode(Point{X: 0, Y: 0}, "a", Size{Width: 80, Height: 80}, false)
	conn, _ := s.CreateConnection(c, a)

	_, p, _ := s.Segment(*conn)
	if p != (Point{X: 40, Y: 40}) {
		t.Errorf("endpoint = %+v, want {40 40}", p)
	}

	s.SetPosition(a, Point{X: 100, Y: 20})
	_, p, _ = s.Segment(*conn)
	if p != (Point{X: 140, Y: 60}) {
		t.Errorf("endpoint after move = %+v, want {140 60}", p)
	}
}

func TestReplaceAndReset(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreateNode(Point{}, "a", Size{}, false)

	scratch := New()
	x := scratch.CreateNode(Point{}, "x", Size{}, true)
	s.Replace(scratch)

	if s.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", s.NodeCount())
	}
	if got, ok := s.Central(); !ok || got != x {
		t.Errorf("Central = %d, %v", got, ok)
	}
	if next := s.CreateNode(Point{}, "", Size{}, false); next != 1 {
		t.Errorf("id counter not carried over: got %d, want 1", next)
	}

	s.Reset()
	if s.NodeCount() != 0 || s.ConnectionCount() != 0 {
		t.Error("Reset left state behind")
	}
	if _, ok := s.Central(); ok {
		t.Error("Reset kept central node")
	}
	if id := s.CreateNode(Point{}, "", Size{}, false); id != 0 {
		t.Errorf("allocation after Reset = %d, want 0", id)
	}
}

func TestRectIntersects(t *testing.T) {
	box := RectFromPoints(Point{X: 100, Y: 100}, Point{X: 0, Y: 0})
	if box.Min != (Point{}) || box.Max != (Point{X: 100, Y: 100}) {
		t.Fatalf("RectFromPoints not normalized: %+v", box)
	}

	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"inside", Rect{Min: Point{X: 10, Y: 10}, Max: Point{X: 20, Y: 20}}, true},
		{"overlap corner", Rect{Min: Point{X: 90, Y: 90}, Max: Point{X: 150, Y: 150}}, true},
		{"touching edge", Rect{Min: Point{X: 100, Y: 0}, Max: Point{X: 150, Y: 50}}, false},
		{"outside on x", Rect{Min: Point{X: 120, Y: 10}, Max: Point{X: 150, Y: 20}}, false},
		{"outside on y", Rect{Min: Point{X: 10, Y: -50}, Max: Point{X: 20, Y: -1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Intersects(tt.r); got != tt.want {
				t.Errorf("Intersects = %v, want %v", got, tt.want)
			}
		})
	}
}
