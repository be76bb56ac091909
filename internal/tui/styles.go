package tui

import "github.com/charmbracelet/lipgloss"

// Styles colors the canvas and the status lines.
type Styles struct {
	Box    lipgloss.Style
	Header lipgloss.Style
	Active lipgloss.Style
	Handle lipgloss.Style
	Label  lipgloss.Style
	Status lipgloss.Style
	Help   lipgloss.Style
	Error  lipgloss.Style
}

// DefaultStyles uses the 256-color palette.
func DefaultStyles() Styles {
	return Styles{
		Box:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Header: lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true),
		Active: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Handle: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Status: lipgloss.NewStyle().Reverse(true),
		Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

func (s Styles) class(c class) (lipgloss.Style, bool) {
	switch c {
	case classBox:
		return s.Box, true
	case classHeader:
		return s.Header, true
	case classActive:
		return s.Active, true
	case classHandle:
		return s.Handle, true
	case classLabel:
		return s.Label, true
	}
	return lipgloss.Style{}, false
}
