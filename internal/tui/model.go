// Package tui is a terminal pointer host for one loaded document. Mouse
// presses, drags and releases are scaled from cells to display pixels and
// fed to the document's gesture controller; boxes are drawn back in cells.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/a3tai/mcp-form-overlay/internal/editor"
	"github.com/a3tai/mcp-form-overlay/internal/overlay"
	"github.com/a3tai/mcp-form-overlay/internal/workspace"
)

// chromeRows are the status and help lines below the canvas.
const chromeRows = 2

const helpText = "e edit  s save  esc cancel  q quit  drag a box to move, a corner or edge mark to resize"

// Model is the bubbletea model of the editor.
type Model struct {
	svc    *workspace.Service
	id     string
	cell   CellSize
	styles Styles

	cols, rows int
	status     string
	err        error
}

// New returns a model editing the loaded document id.
func New(svc *workspace.Service, id string, cell CellSize) Model {
	if cell.Width <= 0 || cell.Height <= 0 {
		cell = DefaultCellSize
	}
	return Model{svc: svc, id: id, cell: cell, styles: DefaultStyles()}
}

// Init returns nil; the canvas is sized by the first WindowSizeMsg.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles window, key and mouse messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, max(msg.Height-chromeRows, 1)
		if m.cols > 0 {
			frame := m.cell.Frame(m.cols, m.rows)
			_, err := m.svc.SetDisplay(workspace.DisplayRequest{ID: m.id, Width: frame.Width, Height: frame.Height})
			m.report(err, "")
		}
	case tea.KeyMsg:
		return m.key(msg)
	case tea.MouseMsg:
		m.mouse(msg)
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "e":
		info, err := m.svc.Info(workspace.DocumentRequest{ID: m.id})
		if err != nil {
			m.report(err, "")
			break
		}
		info, err = m.svc.SetEditing(workspace.EditModeRequest{ID: m.id, On: !info.Editing})
		if err == nil {
			m.report(nil, fmt.Sprintf("edit mode %s", onOff(info.Editing)))
		} else {
			m.report(err, "")
		}
	case "s":
		res, err := m.svc.SaveTemplate(workspace.SaveTemplateRequest{ID: m.id})
		if err == nil {
			m.report(nil, fmt.Sprintf("saved %d positions to %s", res.Positions, res.Path))
		} else {
			m.report(err, "")
		}
	case "esc":
		m.cancel()
		m.report(nil, "gesture cancelled")
	}
	return m, nil
}

func (m *Model) mouse(msg tea.MouseMsg) {
	p := m.cell.Center(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		req := workspace.PointerDownRequest{ID: m.id, X: p.X, Y: p.Y}
		req.FieldID, req.Handle = m.handleAt(msg.X, msg.Y)
		res, err := m.svc.PointerDown(req)
		switch {
		case err != nil:
			m.report(err, "")
		case !res.Accepted:
			m.report(nil, "nothing to grab here")
		default:
			m.report(nil, fmt.Sprintf("%s %s", res.State, res.FieldID))
		}
	case tea.MouseActionMotion:
		_, err := m.svc.PointerMove(workspace.PointerMoveRequest{ID: m.id, X: p.X, Y: p.Y})
		m.report(err, m.status)
	case tea.MouseActionRelease:
		res, err := m.svc.PointerUp(workspace.DocumentRequest{ID: m.id})
		switch {
		case err != nil:
			m.report(err, "")
		case res.Position != nil:
			b := res.Position.Percent
			m.report(nil, fmt.Sprintf("%s at %g%%,%g%% %gx%g%%", res.FieldID, b.X, b.Y, b.Width, b.Height))
		}
	}
}

// handleAt finds a resize handle drawn in cell (col, row). Handles are hit
// in cell space because a terminal cell is larger than the pixel tolerance
// the service uses.
func (m Model) handleAt(col, row int) (string, editor.Handle) {
	info, err := m.svc.Info(workspace.DocumentRequest{ID: m.id})
	if err != nil || !info.Editing {
		return "", editor.HandleNone
	}
	descriptors := m.descriptors()
	for i := len(descriptors) - 1; i >= 0; i-- {
		r := m.cell.cellRect(descriptors[i].Box)
		for _, h := range editor.AllHandles {
			if x, y := r.handleCell(h); x == col && y == row {
				return descriptors[i].FieldID, h
			}
		}
	}
	return "", editor.HandleNone
}

func (m Model) descriptors() []overlay.Descriptor {
	res, err := m.svc.Render(workspace.DocumentRequest{ID: m.id})
	if err != nil {
		return nil
	}
	return res.Descriptors
}

func (m Model) cancel() {
	if doc, err := m.svc.Document(m.id); err == nil {
		doc.Controller.Cancel()
	}
}

func (m *Model) report(err error, status string) {
	m.err = err
	if err == nil {
		m.status = status
	}
}

// View draws every field box on a canvas the size of the window.
func (m Model) View() string {
	if m.cols <= 0 {
		return ""
	}
	info, err := m.svc.Info(workspace.DocumentRequest{ID: m.id})
	if err != nil {
		return m.styles.Error.Render(err.Error())
	}

	var active string
	if doc, err := m.svc.Document(m.id); err == nil {
		if g, ok := doc.Controller.Active(); ok {
			active = g.FieldID
		}
	}

	cv := newCanvas(m.cols, m.rows)
	for _, d := range m.descriptors() {
		r := m.cell.cellRect(d.Box)
		c := classBox
		switch {
		case d.FieldID == active:
			c = classActive
		case d.Header:
			c = classHeader
		}
		cv.box(r, c)

		if r.y1-r.y0 >= 2 {
			cv.text(r.x0+1, r.y0+1, r.x1-r.x0-1, d.Content, classLabel)
		} else {
			cv.text(r.x0+1, r.y0, r.x1-r.x0-1, d.Content, classLabel)
		}
		if d.Editable {
			for _, h := range editor.AllHandles {
				x, y := r.handleCell(h)
				cv.set(x, y, '■', classHandle)
			}
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(cv.lines(m.styles), "\n"))
	b.WriteString("\n")

	status := fmt.Sprintf(" %s  %s  edit %s  %s", info.ID, info.Display, onOff(info.Editing), info.Gesture)
	if active != "" {
		status += " " + active
	}
	if m.err != nil {
		b.WriteString(m.styles.Error.Render(runewidth.Truncate(" "+m.err.Error(), m.cols, "…")))
	} else {
		if m.status != "" {
			status += "  " + m.status
		}
		b.WriteString(m.styles.Status.Render(runewidth.FillRight(runewidth.Truncate(status, m.cols, "…"), m.cols)))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(runewidth.Truncate(" "+helpText, m.cols, "…")))
	return b.String()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
