package workspace

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-form-overlay/internal/descriptions"
	"github.com/a3tai/mcp-form-overlay/internal/template"
)

// ToolInfo describes an available tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServerInfoResult is the server overview and usage guidance.
type ServerInfoResult struct {
	ServerName        string         `json:"server_name"`
	Version           string         `json:"version"`
	DefaultDirectory  string         `json:"default_directory"`
	MaxFileSize       int64          `json:"max_file_size"`
	MinSize           string         `json:"min_size"`
	Sensitivity       float64        `json:"sensitivity"`
	ExcludedFields    []string       `json:"excluded_fields"`
	AvailableTools    []ToolInfo     `json:"available_tools"`
	DirectoryContents []FileInfo     `json:"directory_contents"`
	Loaded            []DocumentInfo `json:"loaded"`
	FieldTypes        []string       `json:"field_types"`
	UsageGuidance     string         `json:"usage_guidance"`
}

const maxListedTemplates = 100

// ServerInfo returns the server overview. Failing to scan the directory is
// not an error; the listing is just empty.
func (s *Service) ServerInfo(serverName, version string) *ServerInfoResult {
	var files []FileInfo
	var loaded []DocumentInfo
	if res, err := s.ListTemplates(ListTemplatesRequest{}); err == nil {
		files, loaded = res.Files, res.Loaded
	}
	if len(files) > maxListedTemplates {
		files = files[:maxListedTemplates]
	}

	tools := make([]ToolInfo, 0, len(descriptions.ToolDescriptions))
	for _, name := range descriptions.GetAllToolNames() {
		desc := descriptions.GetToolDescription(name)
		if i := strings.IndexByte(desc, '\n'); i > 0 {
			desc = desc[:i]
		}
		tools = append(tools, ToolInfo{Name: name, Description: desc})
	}

	minSize := s.opts.Editor.MinSize

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  s.validator.Root(),
		MaxFileSize:       s.opts.MaxFileSize,
		MinSize:           fmt.Sprintf("%gx%g", minSize.Width, minSize.Height),
		Sensitivity:       s.opts.Editor.Sensitivity,
		ExcludedFields:    s.renderer.Options().ExcludedFields,
		AvailableTools:    tools,
		DirectoryContents: files,
		Loaded:            loaded,
		FieldTypes:        fieldTypes(),
		UsageGuidance:     usageGuidance,
	}
}

func fieldTypes() []string {
	return []string{
		string(template.FieldText), string(template.FieldTextarea), string(template.FieldDate),
		string(template.FieldSelect), string(template.FieldImage), string(template.FieldRichText),
		string(template.FieldEmail), string(template.FieldPhone),
	}
}

const usageGuidance = `Form Overlay MCP Server Usage Guide:

1. LOAD:
   - 'template_list' shows template files and open documents
   - 'template_load' opens one; its id is used by every other tool

2. SIZE THE CANVAS:
   - 'display_set' with the pixel size you draw the page at
   - all pointer coordinates and rendered boxes use this frame

3. EDIT:
   - 'edit_mode_set' on=true
   - 'pointer_down' at a box to drag it, or on a corner or edge midpoint to resize
   - 'pointer_move' as often as you like, then 'pointer_up'
   - 'position_set' places a box numerically; pass space=pixel or space=percent

4. CHECK AND SAVE:
   - 'overlay_render' lists what would be drawn
   - 'template_save' writes positions in percentage space

5. EXPORT:
   - 'document_export' writes a PDF at natural image size
   - 'document_inspect' reads it back

IMPORTANT NOTES:
- Paths are resolved inside the configured directory
- Only one drag or resize can be active at a time, across all documents
- Boxes never shrink below the configured minimum size during a resize`
