package tui

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/a3tai/mcp-form-overlay/internal/editor"
	"github.com/a3tai/mcp-form-overlay/internal/geometry"
)

type class int

const (
	classNone class = iota
	classBox
	classHeader
	classActive
	classHandle
	classLabel
)

// CellSize is the pixel size of one terminal cell. Pointer positions are
// reported in cells and scaled by it into the display frame.
type CellSize struct {
	Width  float64
	Height float64
}

// DefaultCellSize approximates a common monospace terminal font.
var DefaultCellSize = CellSize{Width: 8, Height: 16}

// Frame returns the display frame covered by cols x rows cells.
func (c CellSize) Frame(cols, rows int) geometry.Frame {
	return geometry.Frame{Width: float64(cols) * c.Width, Height: float64(rows) * c.Height}
}

// Center returns the pixel at the middle of cell (col, row).
func (c CellSize) Center(col, row int) geometry.Point {
	return geometry.Point{X: (float64(col) + 0.5) * c.Width, Y: (float64(row) + 0.5) * c.Height}
}

// rect is an inclusive cell rectangle.
type rect struct {
	x0, y0, x1, y1 int
}

// cellRect covers every cell the pixel box touches.
func (c CellSize) cellRect(b geometry.Box) rect {
	r := rect{
		x0: int(math.Floor(b.X / c.Width)),
		y0: int(math.Floor(b.Y / c.Height)),
		x1: int(math.Ceil(b.Right()/c.Width)) - 1,
		y1: int(math.Ceil(b.Bottom()/c.Height)) - 1,
	}
	r.x1 = max(r.x1, r.x0)
	r.y1 = max(r.y1, r.y0)
	return r
}

// handleCell places a handle on the rectangle's outline.
func (r rect) handleCell(h editor.Handle) (int, int) {
	midX, midY := r.x0+(r.x1-r.x0)/2, r.y0+(r.y1-r.y0)/2
	switch h {
	case editor.HandleNW:
		return r.x0, r.y0
	case editor.HandleNE:
		return r.x1, r.y0
	case editor.HandleSW:
		return r.x0, r.y1
	case editor.HandleSE:
		return r.x1, r.y1
	case editor.HandleN:
		return midX, r.y0
	case editor.HandleS:
		return midX, r.y1
	case editor.HandleW:
		return r.x0, midY
	case editor.HandleE:
		return r.x1, midY
	}
	return -1, -1
}

func (r rect) contains(col, row int) bool {
	return col >= r.x0 && col <= r.x1 && row >= r.y0 && row <= r.y1
}

type cell struct {
	r     rune
	class class
	// cont marks the second column of a wide rune.
	cont bool
}

// canvas is a fixed grid of styled runes.
type canvas struct {
	cols, rows int
	cells      []cell
}

func newCanvas(cols, rows int) *canvas {
	cells := make([]cell, cols*rows)
	for i := range cells {
		cells[i].r = ' '
	}
	return &canvas{cols: cols, rows: rows, cells: cells}
}

func (cv *canvas) set(col, row int, r rune, c class) {
	if col < 0 || row < 0 || col >= cv.cols || row >= cv.rows {
		return
	}
	cv.cells[row*cv.cols+col] = cell{r: r, class: c}
}

// box draws the outline of r.
func (cv *canvas) box(r rect, c class) {
	if r.y0 == r.y1 {
		for x := r.x0 + 1; x < r.x1; x++ {
			cv.set(x, r.y0, '─', c)
		}
		cv.set(r.x0, r.y0, '[', c)
		cv.set(r.x1, r.y0, ']', c)
		return
	}
	for x := r.x0 + 1; x < r.x1; x++ {
		cv.set(x, r.y0, '─', c)
		cv.set(x, r.y1, '─', c)
	}
	for y := r.y0 + 1; y < r.y1; y++ {
		cv.set(r.x0, y, '│', c)
		cv.set(r.x1, y, '│', c)
	}
	cv.set(r.x0, r.y0, '┌', c)
	cv.set(r.x1, r.y0, '┐', c)
	cv.set(r.x0, r.y1, '└', c)
	cv.set(r.x1, r.y1, '┘', c)
}

// text writes s from (col, row), truncated to width columns.
func (cv *canvas) text(col, row, width int, s string, c class) {
	if width <= 0 {
		return
	}
	s = runewidth.Truncate(strings.Join(strings.Fields(s), " "), width, "…")
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > cv.cols {
			return
		}
		cv.set(col, row, r, c)
		if w == 2 && col+1 < cv.cols {
			cv.cells[row*cv.cols+col+1] = cell{cont: true, class: c}
		}
		col += w
	}
}

// lines renders the grid, styling runs of equal class together.
func (cv *canvas) lines(styles Styles) []string {
	out := make([]string, cv.rows)
	var line, run strings.Builder
	for y := 0; y < cv.rows; y++ {
		line.Reset()
		run.Reset()
		cur := classNone
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if st, ok := styles.class(cur); ok {
				line.WriteString(st.Render(run.String()))
			} else {
				line.WriteString(run.String())
			}
			run.Reset()
		}
		for x := 0; x < cv.cols; x++ {
			c := cv.cells[y*cv.cols+x]
			if c.cont {
				continue
			}
			if c.class != cur {
				flush()
				cur = c.class
			}
			run.WriteRune(c.r)
		}
		flush()
		out[y] = line.String()
	}
	return out
}
