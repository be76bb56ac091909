// Command overlay-edit opens one template in a terminal editor where field
// boxes are dragged and resized with the mouse.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-form-overlay/internal/config"
	"github.com/a3tai/mcp-form-overlay/internal/logging"
	"github.com/a3tai/mcp-form-overlay/internal/tui"
	"github.com/a3tai/mcp-form-overlay/internal/workspace"
)

var version = "dev"

type session struct {
	service *workspace.Service
	id      string
	cell    tui.CellSize
}

// prepare parses args, loads the template named by the first positional
// argument and turns edit mode on.
func prepare(args []string, logOut io.Writer) (*session, error) {
	fs := pflag.NewFlagSet("overlay-edit", pflag.ContinueOnError)
	cellWidth := fs.Float64("cellwidth", tui.DefaultCellSize.Width, "Pixels per terminal column")
	cellHeight := fs.Float64("cellheight", tui.DefaultCellSize.Height, "Pixels per terminal row")

	cfg, err := config.Load(fs, viper.New(), args)
	if err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, errors.New("usage: overlay-edit [flags] <template>")
	}

	if logOut != nil {
		logging.SetLogger(logging.NewTextLogger(logOut, cfg.LogLevel))
	}

	svc, err := workspace.NewService(cfg.WorkspaceOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	info, err := svc.LoadTemplate(workspace.LoadTemplateRequest{Path: fs.Arg(0)})
	if err != nil {
		return nil, err
	}
	if _, err := svc.SetEditing(workspace.EditModeRequest{ID: info.ID, On: true}); err != nil {
		return nil, err
	}

	return &session{
		service: svc,
		id:      info.ID,
		cell:    tui.CellSize{Width: *cellWidth, Height: *cellHeight},
	}, nil
}

func main() {
	// The terminal belongs to the editor; debug logs go to a file if asked.
	var logOut io.Writer
	if path := os.Getenv("OVERLAY_EDIT_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}

	s, err := prepare(os.Args[1:], logOut)
	if errors.Is(err, config.ErrVersionRequested) {
		fmt.Printf("overlay-edit %s\n", version)
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	if err := tui.Run(s.service, s.id, s.cell); err != nil {
		log.Fatal(err)
	}
}
