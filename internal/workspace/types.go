package workspace

import (
	"github.com/a3tai/mcp-form-overlay/internal/editor"
	"github.com/a3tai/mcp-form-overlay/internal/export"
	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/overlay"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
)

// FileInfo describes a template file on disk.
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// DocumentInfo summarizes a loaded template.
type DocumentInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	Fields    int            `json:"fields"`
	Positions int            `json:"positions"`
	Natural   geometry.Frame `json:"natural_frame"`
	Display   geometry.Frame `json:"display_frame"`
	Editing   bool           `json:"editing"`
	Gesture   string         `json:"gesture"`
}

// Request Types

// LoadTemplateRequest loads a template file into the session.
type LoadTemplateRequest struct {
	Path string `json:"path"`
}

// SaveTemplateRequest writes a loaded template back to disk.
type SaveTemplateRequest struct {
	ID string `json:"id"`
	// Path defaults to the file the template was loaded from.
	Path string `json:"path,omitempty"`
	// Blank clears every field value in the written copy.
	Blank bool `json:"blank,omitempty"`
}

// ListTemplatesRequest lists template files under the configured directory.
type ListTemplatesRequest struct {
	Directory string `json:"directory,omitempty"`
	Query     string `json:"query,omitempty"`
}

// DisplayRequest sets the on-screen frame of a document.
type DisplayRequest struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EditModeRequest toggles edit mode.
type EditModeRequest struct {
	ID string `json:"id"`
	On bool   `json:"on"`
}

// FieldValueRequest sets a field value.
type FieldValueRequest struct {
	ID      string `json:"id"`
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

// FieldRequest addresses a single field.
type FieldRequest struct {
	ID      string `json:"id"`
	FieldID string `json:"field_id"`
}

// SetPositionRequest stores a box for a field.
type SetPositionRequest struct {
	ID      string         `json:"id"`
	FieldID string         `json:"field_id"`
	Box     geometry.Box   `json:"box"`
	Space   geometry.Space `json:"space"`
}

// PointerDownRequest starts a gesture at a display pixel. When FieldID is
// empty the field and handle are hit-tested from the point.
type PointerDownRequest struct {
	ID      string        `json:"id"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	FieldID string        `json:"field_id,omitempty"`
	Handle  editor.Handle `json:"handle,omitempty"`
}

// PointerMoveRequest feeds a pointer position to the input surface.
type PointerMoveRequest struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// DocumentRequest addresses a loaded document.
type DocumentRequest struct {
	ID string `json:"id"`
}

// ExportRequest renders a document to PDF.
type ExportRequest struct {
	ID     string `json:"id"`
	Output string `json:"output"`
	// Values holds one value set per page; empty renders the current values.
	Values []map[string]string `json:"values,omitempty"`
}

// InspectRequest reads back an exported PDF.
type InspectRequest struct {
	Path string `json:"path"`
}

// Response Types

// ListTemplatesResult lists files and loaded documents.
type ListTemplatesResult struct {
	Directory   string         `json:"directory"`
	SearchQuery string         `json:"search_query,omitempty"`
	Files       []FileInfo     `json:"files"`
	Loaded      []DocumentInfo `json:"loaded"`
}

// SaveTemplateResult reports a written template.
type SaveTemplateResult struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Positions int    `json:"positions"`
	Blank     bool   `json:"blank"`
}

// PositionResult is a field box in both spaces.
type PositionResult struct {
	FieldID string         `json:"field_id"`
	Percent geometry.Box   `json:"percent"`
	Pixel   geometry.Box   `json:"pixel"`
	Frame   geometry.Frame `json:"frame"`
	Stored  bool           `json:"stored"`
}

// GestureResult reports the controller state after a pointer event.
type GestureResult struct {
	ID       string          `json:"id"`
	State    string          `json:"state"`
	FieldID  string          `json:"field_id,omitempty"`
	Handle   string          `json:"handle,omitempty"`
	Accepted bool            `json:"accepted"`
	Position *PositionResult `json:"position,omitempty"`
}

// RenderResult is the overlay for the current display frame.
type RenderResult struct {
	ID          string               `json:"id"`
	Frame       geometry.Frame       `json:"frame"`
	Editing     bool                 `json:"editing"`
	Descriptors []overlay.Descriptor `json:"descriptors"`
}

// PositionsResult is the persisted percentage map.
type PositionsResult struct {
	ID        string                `json:"id"`
	Positions positions.PositionMap `json:"positions"`
}

// ExportResult reports a written PDF.
type ExportResult struct {
	ID    string         `json:"id"`
	Path  string         `json:"path"`
	Pages int            `json:"pages"`
	Frame geometry.Frame `json:"frame"`
	Info  *export.Info   `json:"info"`
}
