package cli

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/skilltree/pkg/graph"
	"github.com/matzehuels/skilltree/pkg/render"
)

// Terminal cells are much taller than wide, so one cell covers more canvas
// pixels vertically.
const (
	pxPerCol = 10.0
	pxPerRow = 20.0
)

// viewport maps canvas pixels onto terminal cells.
type viewport struct {
	Origin graph.Point // canvas point shown in the top-left cell
	Cols   int
	Rows   int
}

func (v viewport) cell(p graph.Point) (col, row int) {
	return int(math.Floor((p.X - v.Origin.X) / pxPerCol)), int(math.Floor((p.Y - v.Origin.Y) / pxPerRow))
}

// point returns the canvas point at the center of a cell.
func (v viewport) point(col, row int) graph.Point {
	return graph.Point{
		X: v.Origin.X + (float64(col)+0.5)*pxPerCol,
		Y: v.Origin.Y + (float64(row)+0.5)*pxPerRow,
	}
}

// centerOn moves the viewport so that p lands in the middle.
func (v viewport) centerOn(p graph.Point) viewport {
	v.Origin = graph.Point{
		X: p.X - float64(v.Cols)/2*pxPerCol,
		Y: p.Y - float64(v.Rows)/2*pxPerRow,
	}
	return v
}

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellEdge
	cellNode
	cellCentral
	cellSelected
	cellBox
)

// canvas is a grid of runes, each tagged with the kind of element that
// drew it. Later draws overwrite earlier ones.
type canvas struct {
	cols, rows int
	runes      [][]rune
	kinds      [][]cellKind
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: max(cols, 0), rows: max(rows, 0)}
	c.runes = make([][]rune, c.rows)
	c.kinds = make([][]cellKind, c.rows)
	for r := range c.rows {
		c.runes[r] = []rune(strings.Repeat(" ", c.cols))
		c.kinds[r] = make([]cellKind, c.cols)
	}
	return c
}

func (c *canvas) set(col, row int, r rune, k cellKind) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.runes[row][col] = r
	c.kinds[row][col] = k
}

// line draws a dotted segment with Bresenham's algorithm.
func (c *canvas) line(c0, r0, c1, r1 int) {
	dc, dr := abs(c1-c0), -abs(r1-r0)
	sc, sr := sign(c1-c0), sign(r1-r0)
	e := dc + dr
	for {
		c.set(c0, r0, '·', cellEdge)
		if c0 == c1 && r0 == r1 {
			return
		}
		e2 := 2 * e
		if e2 >= dr {
			e += dr
			c0 += sc
		}
		if e2 <= dc {
			e += dc
			r0 += sr
		}
	}
}

type border struct{ tl, tr, bl, br, h, v rune }

var (
	roundBorder  = border{'╭', '╮', '╰', '╯', '─', '│'}
	doubleBorder = border{'╔', '╗', '╚', '╝', '═', '║'}
	dashedBorder = border{'┌', '┐', '└', '┘', '╌', '╎'}
)

// box draws a framed rectangle with label centered on its middle row.
func (c *canvas) box(col, row, w, h int, label string, b border, k cellKind) {
	w, h = max(w, 3), max(h, 3)
	for x := col; x < col+w; x++ {
		for y := row; y < row+h; y++ {
			var r rune = ' '
			switch {
			case y == row && x == col:
				r = b.tl
			case y == row && x == col+w-1:
				r = b.tr
			case y == row+h-1 && x == col:
				r = b.bl
			case y == row+h-1 && x == col+w-1:
				r = b.br
			case y == row || y == row+h-1:
				r = b.h
			case x == col || x == col+w-1:
				r = b.v
			}
			c.set(x, y, r, k)
		}
	}

	text := []rune(label)
	if room := w - 2; len(text) > room {
		if room > 1 {
			text = append(text[:room-1], '…')
		} else {
			text = text[:room]
		}
	}
	start := col + 1 + (w-2-len(text))/2
	for i, r := range text {
		c.set(start+i, row+h/2, r, k)
	}
}

// outline draws only the frame of a rectangle.
func (c *canvas) outline(col, row, w, h int, k cellKind) {
	for x := col; x < col+w; x++ {
		c.set(x, row, dashedBorder.h, k)
		c.set(x, row+h-1, dashedBorder.h, k)
	}
	for y := row; y < row+h; y++ {
		c.set(col, y, dashedBorder.v, k)
		c.set(col+w-1, y, dashedBorder.v, k)
	}
}

// String renders the grid without styling.
func (c *canvas) String() string {
	lines := make([]string, c.rows)
	for r := range c.rows {
		lines[r] = string(c.runes[r])
	}
	return strings.Join(lines, "\n")
}

// render renders the grid with one style per cell kind, batching runs of
// equal kind into a single styled span.
func (c *canvas) render(styles map[cellKind]lipgloss.Style) string {
	var b strings.Builder
	for r := range c.rows {
		if r > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for x := 1; x <= c.cols; x++ {
			if x < c.cols && c.kinds[r][x] == c.kinds[r][start] {
				continue
			}
			span := string(c.runes[r][start:x])
			if st, ok := styles[c.kinds[r][start]]; ok {
				span = st.Render(span)
			}
			b.WriteString(span)
			start = x
		}
	}
	return b.String()
}

// canvasStyles derives terminal styles from the rendering theme so the
// terminal and the exported images agree on colors.
func canvasStyles(dark bool) map[cellKind]lipgloss.Style {
	t := render.ThemeFor(dark)
	return map[cellKind]lipgloss.Style{
		cellEdge:     lipgloss.NewStyle().Foreground(lipgloss.Color(t.Edge)),
		cellNode:     lipgloss.NewStyle().Foreground(lipgloss.Color(t.Font)),
		cellCentral:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.CentralFill)).Bold(true),
		cellSelected: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Selected)).Bold(true),
		cellBox:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Selected)),
	}
}

// drawTree paints connections first and nodes on top, in store order.
func drawTree(c *canvas, v viewport, nodes []graph.Node, conns []graph.Connection, selected map[graph.NodeID]bool, focus graph.NodeID) {
	centers := make(map[graph.NodeID]graph.Point, len(nodes))
	for _, n := range nodes {
		centers[n.ID] = n.Center()
	}
	for _, cn := range conns {
		c0, r0 := v.cell(centers[cn.A])
		c1, r1 := v.cell(centers[cn.B])
		c.line(c0, r0, c1, r1)
	}
	for _, n := range nodes {
		col, row := v.cell(n.Position)
		w := int(n.Size.Width / pxPerCol)
		h := int(n.Size.Height / pxPerRow)

		kind := cellNode
		switch {
		case selected[n.ID]:
			kind = cellSelected
		case n.Central:
			kind = cellCentral
		}
		b := roundBorder
		if n.ID == focus {
			b = doubleBorder
		}
		c.box(col, row, w, h, n.Label, b, kind)
	}
}

// hitTest returns the topmost node whose bounds contain p.
func hitTest(nodes []graph.Node, p graph.Point) (graph.NodeID, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		b := nodes[i].Bounds()
		if p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y {
			return nodes[i].ID, true
		}
	}
	return 0, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
