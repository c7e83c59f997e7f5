package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	errs "github.com/matzehuels/skilltree/pkg/errors"
	"github.com/matzehuels/skilltree/pkg/graph"
	"github.com/matzehuels/skilltree/pkg/session"
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(colorGray)
	errorStyle  = lipgloss.NewStyle().Foreground(colorRed)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	helpStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// Distances moved by one arrow key press, one cell in each direction.
const (
	stepX = pxPerCol
	stepY = pxPerRow
)

// resizeStep is the size change of one +/- key press.
const resizeStep = 20

type editorMode int

const (
	modeNormal editorMode = iota
	modeRename
	modeLink
	modeSplit
)

func (m editorMode) String() string {
	switch m {
	case modeRename:
		return "rename"
	case modeLink:
		return "link"
	case modeSplit:
		return "split"
	default:
		return "normal"
	}
}

// pointerGesture tracks the mouse button between press and release.
type pointerGesture int

const (
	pointerIdle pointerGesture = iota
	pointerDrag
	pointerBox
)

type tickMsg time.Time

// EditorModel is the bubbletea model of the terminal editor. Every key or
// mouse gesture becomes one session.Do call; the periodic tick reconciles.
type EditorModel struct {
	sess *session.Session
	// path is where ctrl+s writes the token; empty disables saving.
	path string
	tick time.Duration

	view    viewport
	focus   graph.NodeID
	mode    editorMode
	pending graph.NodeID
	input   []rune

	pointer pointerGesture
	box     graph.Rect

	status    string
	statusErr bool
	saved     bool
}

// NewEditorModel creates an editor over sess with the central node focused
// and centered.
func NewEditorModel(sess *session.Session, path string, tick time.Duration) EditorModel {
	if tick <= 0 {
		tick = session.DefaultTick
	}
	m := EditorModel{
		sess: sess,
		path: path,
		tick: tick,
		view: viewport{Cols: 100, Rows: 30},
	}
	m.focus = m.central()
	m.recenter()
	return m
}

// Saved reports whether the token was written to disk at least once.
func (m EditorModel) Saved() bool { return m.saved }

func (m EditorModel) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle(appName), m.tickCmd())
}

func (m EditorModel) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.Cols = msg.Width
		m.view.Rows = max(msg.Height-2, 1)
		m.recenter()
		return m, nil

	case tickMsg:
		if res := m.sess.Reconcile(); len(res.Linked) > 0 {
			m.setStatus(fmt.Sprintf("reattached %d orphaned node(s)", len(res.Linked)))
		}
		return m, m.tickCmd()

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.KeyMsg:
		if m.mode == modeRename {
			return m.handleRenameKey(msg), nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m EditorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "shift+tab":
		m.cycleFocus(key == "tab")
	case "g":
		m.focus = m.central()
		m.recenter()

	case "up", "k":
		m.nudge(0, -stepY)
	case "down", "j":
		m.nudge(0, stepY)
	case "left", "h":
		m.nudge(-stepX, 0)
	case "right", "l":
		m.nudge(stepX, 0)
	case "K":
		m.view.Origin.Y -= 5 * pxPerRow
	case "J":
		m.view.Origin.Y += 5 * pxPerRow
	case "H":
		m.view.Origin.X -= 10 * pxPerCol
	case "L":
		m.view.Origin.X += 10 * pxPerCol

	case "a":
		m.addChild()
	case "x", "delete":
		m.removeFocused()
	case "r", "enter":
		m.startRename()
	case "c":
		m.pairGesture(modeLink)
	case "s":
		m.pairGesture(modeSplit)
	case "+", "=":
		m.resize(resizeStep)
	case "-":
		m.resize(-resizeStep)

	case " ":
		m.do(func(tx *session.Tx) error {
			tx.Selection.Click(m.focus, true)
			return nil
		})
	case "v":
		m.do(func(tx *session.Tx) error {
			tx.Selection.Click(m.focus, false)
			return nil
		})
	case "esc":
		if m.mode != modeNormal {
			m.mode = modeNormal
			m.setStatus("cancelled")
			break
		}
		m.do(func(tx *session.Tx) error {
			tx.Selection.Clear()
			return nil
		})

	case "t":
		dark := m.sess.ToggleTheme()
		m.setStatus("theme: " + themeName(dark))
	case "ctrl+s":
		m.save()
	}
	return m, nil
}

func (m EditorModel) handleRenameKey(msg tea.KeyMsg) EditorModel {
	switch msg.Type {
	case tea.KeyEnter:
		label := string(m.input)
		m.mode = modeNormal
		m.do(func(tx *session.Tx) error { return tx.Editor.Rename(m.focus, label) })
	case tea.KeyEsc:
		m.mode = modeNormal
		m.setStatus("rename cancelled")
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes, tea.KeySpace:
		m.input = append(m.input, msg.Runes...)
	}
	return m
}

// handleMouse maps pointer gestures onto the selection state machine:
// pressing on a node clicks it and may start a group drag, pressing on
// empty canvas starts a box selection.
func (m EditorModel) handleMouse(msg tea.MouseMsg) EditorModel {
	p := m.view.point(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m
		}
		m.do(func(tx *session.Tx) error {
			if id, ok := hitTest(tx.Store.Nodes(), p); ok {
				m.focus = id
				if tx.Selection.Click(id, msg.Shift || msg.Ctrl || msg.Alt) {
					tx.Selection.BeginDrag(tx.Store, p)
					m.pointer = pointerDrag
				}
				return nil
			}
			tx.Selection.BeginBox(p)
			m.box = tx.Selection.UpdateBox(p)
			m.pointer = pointerBox
			return nil
		})

	case tea.MouseActionMotion:
		switch m.pointer {
		case pointerDrag:
			m.do(func(tx *session.Tx) error { return tx.Selection.DragTo(tx.Editor, p) })
		case pointerBox:
			m.sess.View(func(tx *session.Tx) error {
				m.box = tx.Selection.UpdateBox(p)
				return nil
			})
		}

	case tea.MouseActionRelease:
		switch m.pointer {
		case pointerDrag:
			m.do(func(tx *session.Tx) error {
				defer tx.Selection.EndDrag()
				return tx.Selection.DragTo(tx.Editor, p)
			})
		case pointerBox:
			var added int
			m.do(func(tx *session.Tx) error {
				added = len(tx.Selection.EndBox(p, tx.Store.Nodes()))
				return nil
			})
			m.setStatus(fmt.Sprintf("selected %d node(s)", added))
		}
		m.pointer = pointerIdle
	}
	return m
}

// =============================================================================
// Gestures
// =============================================================================

// do runs fn as one event handler and reports its error on the status line.
func (m *EditorModel) do(fn func(tx *session.Tx) error) bool {
	if err := m.sess.Do(fn); err != nil {
		m.setError(err)
		return false
	}
	return true
}

// nudge moves the focused node, or the whole selection when the focused
// node is part of it. Nodes cut loose are reattached by the next tick.
func (m *EditorModel) nudge(dx, dy float64) {
	m.do(func(tx *session.Tx) error {
		if tx.Selection.Contains(m.focus) {
			var origin graph.Point
			tx.Selection.BeginDrag(tx.Store, origin)
			defer tx.Selection.EndDrag()
			return tx.Selection.DragTo(tx.Editor, graph.Point{X: dx, Y: dy})
		}
		n, err := tx.Store.Node(m.focus)
		if err != nil {
			return err
		}
		return tx.Editor.Reposition(m.focus, n.Position.Add(graph.Point{X: dx, Y: dy}))
	})
}

func (m *EditorModel) addChild() {
	var child graph.NodeID
	ok := m.do(func(tx *session.Tx) error {
		pos, err := tx.Editor.ChildPosition(m.focus)
		if err != nil {
			return err
		}
		child, err = tx.Editor.AddChild(m.focus, pos, "")
		return err
	})
	if !ok {
		return
	}
	m.focus = child
	m.startRename()
	m.input = nil
}

func (m *EditorModel) removeFocused() {
	if !m.do(func(tx *session.Tx) error { return tx.Editor.RemoveNode(m.focus) }) {
		return
	}
	m.setStatus(fmt.Sprintf("removed node %d", m.focus))
	m.focus = m.central()
}

func (m *EditorModel) startRename() {
	m.sess.View(func(tx *session.Tx) error {
		if n, err := tx.Store.Node(m.focus); err == nil {
			m.input = []rune(n.Label)
		}
		return nil
	})
	m.mode = modeRename
}

// pairGesture implements the two-step link and split gestures: the first
// press marks the focused node, the second press applies the operation to
// the marked and the now focused node.
func (m *EditorModel) pairGesture(mode editorMode) {
	if m.mode != mode {
		m.mode = mode
		m.pending = m.focus
		m.setStatus(fmt.Sprintf("%s from node %d: focus the other end and press again", mode, m.pending))
		return
	}
	m.mode = modeNormal
	a, b := m.pending, m.focus

	switch mode {
	case modeLink:
		var created *graph.Connection
		if m.do(func(tx *session.Tx) error {
			var err error
			created, err = tx.Editor.Link(a, b)
			return err
		}) {
			if created == nil {
				m.setStatus("already linked")
			} else {
				m.setStatus(fmt.Sprintf("linked %s", created))
			}
		}
	case modeSplit:
		var mid graph.NodeID
		if m.do(func(tx *session.Tx) error {
			pos, err := tx.Editor.Midpoint(a, b)
			if err != nil {
				return err
			}
			mid, err = tx.Editor.SplitEdge(a, b, pos, "")
			return err
		}) {
			m.focus = mid
			m.setStatus(fmt.Sprintf("split %d-%d", a, b))
		}
	}
}

func (m *EditorModel) resize(delta float64) {
	m.do(func(tx *session.Tx) error {
		n, err := tx.Store.Node(m.focus)
		if err != nil {
			return err
		}
		return tx.Editor.Resize(m.focus, graph.Size{
			Width:  n.Size.Width + delta,
			Height: n.Size.Height + delta,
		})
	})
}

func (m *EditorModel) cycleFocus(forward bool) {
	m.sess.View(func(tx *session.Tx) error {
		ids := tx.Store.NodeIDs()
		if len(ids) == 0 {
			return nil
		}
		i := 0
		for j, id := range ids {
			if id == m.focus {
				i = j
				break
			}
		}
		if forward {
			i = (i + 1) % len(ids)
		} else {
			i = (i - 1 + len(ids)) % len(ids)
		}
		m.focus = ids[i]
		return nil
	})
}

func (m *EditorModel) save() {
	if m.path == "" {
		m.setError(errs.New(errs.ErrCodeInvalidInput, "no output file; start the editor with a file argument"))
		return
	}
	tok, err := m.sess.Export()
	if err != nil {
		m.setError(err)
		return
	}
	if err := os.WriteFile(m.path, []byte(tok+"\n"), 0o644); err != nil {
		m.setError(err)
		return
	}
	m.saved = true
	m.setStatus("saved " + m.path)
}

func (m *EditorModel) central() graph.NodeID {
	var id graph.NodeID
	m.sess.View(func(tx *session.Tx) error {
		id = tx.Central()
		return nil
	})
	return id
}

// recenter scrolls the focused node into the middle of the viewport.
func (m *EditorModel) recenter() {
	m.sess.View(func(tx *session.Tx) error {
		if n, err := tx.Store.Node(m.focus); err == nil {
			m.view = m.view.centerOn(n.Center())
		}
		return nil
	})
}

func (m *EditorModel) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *EditorModel) setError(err error) {
	m.status, m.statusErr = errs.UserMessage(err), true
}

// =============================================================================
// View
// =============================================================================

func (m EditorModel) View() string {
	dark := m.sess.DarkMode()
	c := newCanvas(m.view.Cols, m.view.Rows)

	var nodes, selected, conns int
	m.sess.View(func(tx *session.Tx) error {
		sel := make(map[graph.NodeID]bool)
		for _, id := range tx.Selection.IDs() {
			sel[id] = true
		}
		all := tx.Store.Nodes()
		edges := tx.Store.Connections()
		drawTree(c, m.view, all, edges, sel, m.focus)
		nodes, selected, conns = len(all), len(sel), len(edges)
		return nil
	})
	if m.pointer == pointerBox {
		c0, r0 := m.view.cell(m.box.Min)
		c1, r1 := m.view.cell(m.box.Max)
		c.outline(c0, r0, c1-c0+1, r1-r0+1, cellBox)
	}

	var b strings.Builder
	b.WriteString(c.render(canvasStyles(dark)))
	b.WriteString("\n")
	b.WriteString(m.statusLine(nodes, conns, selected, dark))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m EditorModel) statusLine(nodes, conns, selected int, dark bool) string {
	if m.mode == modeRename {
		return promptStyle.Render("label: ") + string(m.input) + "▏"
	}
	counts := statusStyle.Render(fmt.Sprintf("%d nodes · %d connections · %d selected · %s",
		nodes, conns, selected, themeName(dark)))
	if m.status == "" {
		return counts
	}
	msg := statusStyle.Render(m.status)
	if m.statusErr {
		msg = errorStyle.Render(iconError + " " + m.status)
	}
	return counts + "  " + msg
}

func (m EditorModel) help() string {
	switch m.mode {
	case modeRename:
		return "enter confirm  esc cancel"
	case modeLink:
		return "tab focus  c confirm  esc cancel"
	case modeSplit:
		return "tab focus  s confirm  esc cancel"
	}
	return "tab focus  hjkl move  a add  x remove  r rename  c link  s split  +/- size  space select  t theme  ctrl+s save  q quit"
}

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}
