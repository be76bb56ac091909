package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-overlay/internal/config"
	"github.com/a3tai/mcp-form-overlay/internal/logging"
	"github.com/a3tai/mcp-form-overlay/internal/tui"
	"github.com/a3tai/mcp-form-overlay/internal/workspace"
)

const template = `
id: cv
name: CV
imageWidth: 800
imageHeight: 600
fields:
  - id: name
    label: Name
    type: text
`

func writeTemplate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cv.yaml"), []byte(template), 0o644))
	return dir
}

func TestPrepare(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })
	dir := writeTemplate(t)

	var logs bytes.Buffer
	s, err := prepare([]string{"--dir", dir, "--cellwidth", "10", "--loglevel", "debug", "cv.yaml"}, &logs)
	require.NoError(t, err)

	assert.Equal(t, "cv", s.id)
	assert.Equal(t, tui.CellSize{Width: 10, Height: tui.DefaultCellSize.Height}, s.cell)

	info, err := s.service.Info(workspace.DocumentRequest{ID: "cv"})
	require.NoError(t, err)
	assert.True(t, info.Editing)
	assert.NotEmpty(t, logs.String())
}

func TestPrepare_Errors(t *testing.T) {
	dir := writeTemplate(t)

	_, err := prepare([]string{"--dir", dir}, nil)
	assert.ErrorContains(t, err, "usage: overlay-edit")

	_, err = prepare([]string{"--dir", dir, "missing.yaml"}, nil)
	assert.Error(t, err)

	_, err = prepare([]string{"--version"}, nil)
	assert.ErrorIs(t, err, config.ErrVersionRequested)

	_, err = prepare([]string{"--dir", dir, "--cellwidth", "wide", "cv.yaml"}, nil)
	assert.Error(t, err)
}
