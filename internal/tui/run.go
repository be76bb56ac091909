package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/a3tai/mcp-form-overlay/internal/workspace"
)

// Run opens the editor on the alternate screen with mouse reporting and
// blocks until the user quits.
func Run(svc *workspace.Service, id string, cell CellSize) error {
	p := tea.NewProgram(
		New(svc, id, cell),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("bubble tea: %w", err)
	}
	return nil
}
