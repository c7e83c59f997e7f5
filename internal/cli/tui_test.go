package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/skilltree/pkg/graph"
	"github.com/matzehuels/skilltree/pkg/session"
)

func newTestEditor(t *testing.T) (EditorModel, *session.Session) {
	t.Helper()
	sess := session.New(session.Options{Logger: log.New(io.Discard)})
	path := filepath.Join(t.TempDir(), "tree.tok")
	return NewEditorModel(sess, path, time.Second), sess
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m EditorModel, keys ...string) EditorModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(EditorModel)
	}
	return m
}

func nodeAt(t *testing.T, sess *session.Session, id graph.NodeID) graph.Node {
	t.Helper()
	var n graph.Node
	err := sess.View(func(tx *session.Tx) error {
		var err error
		n, err = tx.Store.Node(id)
		return err
	})
	if err != nil {
		t.Fatalf("Node(%d): %v", id, err)
	}
	return n
}

func TestEditorAddChildAndRename(t *testing.T) {
	m, sess := newTestEditor(t)

	m = press(t, m, "a")
	if m.mode != modeRename {
		t.Fatalf("mode = %v, want rename", m.mode)
	}
	if m.focus != 1 {
		t.Fatalf("focus = %d, want 1", m.focus)
	}
	if len(m.input) != 0 {
		t.Errorf("input = %q, want empty", string(m.input))
	}

	m = press(t, m, "G", "o", "space", "x", "backspace", "backspace", "enter")
	if m.mode != modeNormal {
		t.Errorf("mode = %v, want normal", m.mode)
	}

	n := nodeAt(t, sess, 1)
	if n.Label != "Go" {
		t.Errorf("Label = %q, want %q", n.Label, "Go")
	}
	if want := (graph.Point{X: 680, Y: 360}); n.Position != want {
		t.Errorf("Position = %v, want %v", n.Position, want)
	}
	sess.View(func(tx *session.Tx) error {
		if !tx.Store.HasConnection(0, 1) {
			t.Error("child is not connected to the central node")
		}
		return nil
	})
}

func TestEditorRenameCancel(t *testing.T) {
	m, sess := newTestEditor(t)

	m = press(t, m, "r")
	if got := string(m.input); got != session.CentralLabel {
		t.Fatalf("input = %q, want the current label", got)
	}
	m = press(t, m, "backspace", "esc")
	if m.mode != modeNormal {
		t.Errorf("mode = %v, want normal", m.mode)
	}
	if got := nodeAt(t, sess, 0).Label; got != session.CentralLabel {
		t.Errorf("Label = %q, want unchanged", got)
	}
}

func TestEditorRemove(t *testing.T) {
	m, sess := newTestEditor(t)

	m = press(t, m, "x")
	if !m.statusErr {
		t.Errorf("removing the central node: status = %q, want an error", m.status)
	}

	m = press(t, m, "a", "enter", "x")
	if m.statusErr {
		t.Fatalf("unexpected error: %s", m.status)
	}
	if m.focus != 0 {
		t.Errorf("focus = %d, want the central node", m.focus)
	}
	sess.View(func(tx *session.Tx) error {
		if tx.Store.NodeCount() != 1 {
			t.Errorf("NodeCount = %d, want 1", tx.Store.NodeCount())
		}
		return nil
	})
}

func TestEditorLinkAndSplit(t *testing.T) {
	m, sess := newTestEditor(t)

	// Two children of the central node: 1 and 2, focus ends on 2.
	m = press(t, m, "a", "enter", "g", "a", "enter")
	if m.focus != 2 {
		t.Fatalf("focus = %d, want 2", m.focus)
	}

	m = press(t, m, "c")
	if m.mode != modeLink || m.pending != 2 {
		t.Fatalf("mode = %v pending = %d, want link from 2", m.mode, m.pending)
	}
	m = press(t, m, "tab", "tab", "c")
	if m.mode != modeNormal || m.focus != 1 {
		t.Fatalf("mode = %v focus = %d", m.mode, m.focus)
	}
	sess.View(func(tx *session.Tx) error {
		if !tx.Store.HasConnection(1, 2) {
			t.Error("link 2-1 was not created")
		}
		return nil
	})

	m = press(t, m, "s", "tab", "s")
	if m.statusErr {
		t.Fatalf("split failed: %s", m.status)
	}
	if m.focus != 3 {
		t.Errorf("focus = %d, want the inserted node 3", m.focus)
	}
	sess.View(func(tx *session.Tx) error {
		if tx.Store.HasConnection(1, 2) {
			t.Error("split kept the original connection")
		}
		if !tx.Store.HasConnection(1, 3) || !tx.Store.HasConnection(3, 2) {
			t.Error("split did not route through the new node")
		}
		return nil
	})
}

func TestEditorEscCancelsGesture(t *testing.T) {
	m, _ := newTestEditor(t)

	m = press(t, m, "c", "esc")
	if m.mode != modeNormal {
		t.Errorf("mode = %v, want normal", m.mode)
	}
	if m.status != "cancelled" {
		t.Errorf("status = %q", m.status)
	}
}

func TestEditorNudge(t *testing.T) {
	m, sess := newTestEditor(t)

	m = press(t, m, "a", "enter", "l", "j")
	if want := (graph.Point{X: 690, Y: 380}); nodeAt(t, sess, 1).Position != want {
		t.Errorf("single nudge: Position = %v, want %v", nodeAt(t, sess, 1).Position, want)
	}

	// Select both nodes, then nudge the group from the child.
	m = press(t, m, "space", "g", "space", "tab", "h")
	if m.focus != 1 {
		t.Fatalf("focus = %d, want 1", m.focus)
	}
	if want := (graph.Point{X: 550, Y: 360}); nodeAt(t, sess, 0).Position != want {
		t.Errorf("group nudge: central Position = %v, want %v", nodeAt(t, sess, 0).Position, want)
	}
	if want := (graph.Point{X: 680, Y: 380}); nodeAt(t, sess, 1).Position != want {
		t.Errorf("group nudge: child Position = %v, want %v", nodeAt(t, sess, 1).Position, want)
	}
}

func TestEditorResize(t *testing.T) {
	m, sess := newTestEditor(t)

	m = press(t, m, "+")
	if want := (graph.Size{Width: 120, Height: 120}); nodeAt(t, sess, 0).Size != want {
		t.Errorf("Size = %v, want %v", nodeAt(t, sess, 0).Size, want)
	}
	press(t, m, "-", "-", "-")
	if want := graph.DefaultSize; nodeAt(t, sess, 0).Size != want {
		t.Errorf("Size = %v, want clamped to %v", nodeAt(t, sess, 0).Size, want)
	}
}

func TestEditorToggleTheme(t *testing.T) {
	m, sess := newTestEditor(t)

	m = press(t, m, "t")
	if sess.DarkMode() {
		t.Error("theme was not toggled")
	}
	if m.status != "theme: light" {
		t.Errorf("status = %q", m.status)
	}
}

func TestEditorSave(t *testing.T) {
	m, sess := newTestEditor(t)

	m = press(t, m, "a", "G", "o", "enter", "ctrl+s")
	if m.statusErr || !m.Saved() {
		t.Fatalf("save failed: %s", m.status)
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		t.Fatal(err)
	}
	want, err := sess.Export()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want+"\n" {
		t.Errorf("file = %q, want %q", data, want+"\n")
	}

	loaded := session.New(session.Options{Logger: log.New(io.Discard)})
	res, err := loaded.Import(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	if res.Nodes != 2 || res.Connections != 1 {
		t.Errorf("reloaded %d nodes and %d connections, want 2 and 1", res.Nodes, res.Connections)
	}
}

func TestEditorSaveWithoutPath(t *testing.T) {
	sess := session.New(session.Options{Logger: log.New(io.Discard)})
	m := NewEditorModel(sess, "", 0)

	m = press(t, m, "ctrl+s")
	if !m.statusErr || m.Saved() {
		t.Errorf("status = %q, want an error", m.status)
	}
}

func TestEditorTickReconciles(t *testing.T) {
	m, sess := newTestEditor(t)

	sess.Do(func(tx *session.Tx) error {
		tx.Store.CreateNode(graph.Point{X: 700, Y: 360}, "Loose", graph.Size{}, false)
		return nil
	})

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(EditorModel)
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}
	if !strings.Contains(m.status, "reattached 1") {
		t.Errorf("status = %q", m.status)
	}
	sess.View(func(tx *session.Tx) error {
		if !tx.Store.HasConnection(0, 1) {
			t.Error("orphan was not linked to the central node")
		}
		return nil
	})
}

func TestEditorWindowSize(t *testing.T) {
	m, _ := newTestEditor(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(EditorModel)
	if m.view.Cols != 80 || m.view.Rows != 22 {
		t.Errorf("viewport = %dx%d, want 80x22", m.view.Cols, m.view.Rows)
	}
}

// The default viewport is 100x30 cells centered on the central node's
// center (610, 410), so its origin is (110, 110).

func TestEditorMouseBoxSelect(t *testing.T) {
	m, sess := newTestEditor(t)

	next, _ := m.Update(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = next.(EditorModel)
	if m.pointer != pointerBox {
		t.Fatalf("pointer = %v, want box", m.pointer)
	}
	next, _ = m.Update(tea.MouseMsg{X: 60, Y: 14, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = next.(EditorModel)
	if m.pointer != pointerIdle {
		t.Errorf("pointer = %v, want idle", m.pointer)
	}

	sess.View(func(tx *session.Tx) error {
		if ids := tx.Selection.IDs(); len(ids) != 1 || ids[0] != 0 {
			t.Errorf("selection = %v, want [0]", ids)
		}
		return nil
	})
}

func TestEditorMouseDrag(t *testing.T) {
	m, sess := newTestEditor(t)

	// Cell (50, 15) lies inside the central node.
	for _, msg := range []tea.MouseMsg{
		{X: 50, Y: 15, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft},
		{X: 51, Y: 15, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft},
		{X: 52, Y: 16, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft},
	} {
		next, _ := m.Update(msg)
		m = next.(EditorModel)
	}

	if want := (graph.Point{X: 580, Y: 380}); nodeAt(t, sess, 0).Position != want {
		t.Errorf("Position = %v, want %v", nodeAt(t, sess, 0).Position, want)
	}
	if m.pointer != pointerIdle {
		t.Errorf("pointer = %v, want idle", m.pointer)
	}
}

func TestEditorView(t *testing.T) {
	m, _ := newTestEditor(t)

	view := m.View()
	if !strings.Contains(view, "Central") {
		t.Error("view does not show the central node")
	}
	if !strings.Contains(view, "1 nodes · 0 connections · 0 selected · dark") {
		t.Errorf("status line missing from view:\n%s", view)
	}

	m = press(t, m, "a")
	if !strings.Contains(m.View(), "label: ") {
		t.Error("rename prompt not shown")
	}
}

func TestCanvasBox(t *testing.T) {
	c := newCanvas(7, 3)
	c.box(0, 0, 7, 3, "ab", roundBorder, cellNode)
	want := "╭─────╮\n│ ab  │\n╰─────╯"
	if got := c.String(); got != want {
		t.Errorf("box:\n%s\nwant:\n%s", got, want)
	}

	c = newCanvas(5, 3)
	c.box(0, 0, 5, 3, "abcdef", doubleBorder, cellNode)
	want = "╔═══╗\n║ab…║\n╚═══╝"
	if got := c.String(); got != want {
		t.Errorf("truncated box:\n%s\nwant:\n%s", got, want)
	}
}

func TestCanvasLine(t *testing.T) {
	tests := []struct {
		name           string
		cols, rows     int
		c0, r0, c1, r1 int
		want           string
	}{
		{"horizontal", 5, 1, 0, 0, 4, 0, "·····"},
		{"diagonal", 3, 3, 0, 0, 2, 2, "·  \n · \n  ·"},
		{"reversed", 3, 3, 2, 2, 0, 0, "·  \n · \n  ·"},
		{"clipped", 3, 1, -2, 0, 2, 0, "···"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCanvas(tt.cols, tt.rows)
			c.line(tt.c0, tt.r0, tt.c1, tt.r1)
			if got := c.String(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestCanvasRenderWithoutStyles(t *testing.T) {
	c := newCanvas(6, 2)
	c.line(0, 0, 5, 0)
	c.box(1, 0, 3, 2, "", roundBorder, cellNode)
	if got, want := c.render(nil), c.String(); got != want {
		t.Errorf("render without styles = %q, want %q", got, want)
	}
}

func TestViewport(t *testing.T) {
	v := viewport{Origin: graph.Point{X: -35, Y: 12}, Cols: 40, Rows: 10}
	for _, cell := range [][2]int{{0, 0}, {3, 4}, {39, 9}} {
		col, row := v.cell(v.point(cell[0], cell[1]))
		if col != cell[0] || row != cell[1] {
			t.Errorf("cell(point(%v)) = (%d, %d)", cell, col, row)
		}
	}
	// Points left of the origin land in negative cells.
	if col, _ := v.cell(graph.Point{X: -36, Y: 12}); col != -1 {
		t.Errorf("col = %d, want -1", col)
	}

	v = v.centerOn(graph.Point{X: 200, Y: 100})
	if want := (graph.Point{X: 0, Y: 0}); v.Origin != want {
		t.Errorf("Origin = %v, want %v", v.Origin, want)
	}
}

func TestHitTest(t *testing.T) {
	nodes := []graph.Node{
		{ID: 0, Position: graph.Point{X: 0, Y: 0}, Size: graph.Size{Width: 100, Height: 100}},
		{ID: 1, Position: graph.Point{X: 50, Y: 50}, Size: graph.Size{Width: 80, Height: 80}},
	}
	tests := []struct {
		p      graph.Point
		want   graph.NodeID
		wantOK bool
	}{
		{graph.Point{X: 10, Y: 10}, 0, true},
		{graph.Point{X: 60, Y: 60}, 1, true}, // later nodes are on top
		{graph.Point{X: 120, Y: 120}, 1, true},
		{graph.Point{X: 200, Y: 10}, 0, false},
	}
	for _, tt := range tests {
		got, ok := hitTest(nodes, tt.p)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("hitTest(%v) = %d, %v; want %d, %v", tt.p, got, ok, tt.want, tt.wantOK)
		}
	}
}
