package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-form-overlay/internal/config"
	"github.com/a3tai/mcp-form-overlay/internal/descriptions"
	"github.com/a3tai/mcp-form-overlay/internal/editor"
	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/logging"
	"github.com/a3tai/mcp-form-overlay/internal/workspace"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *workspace.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *workspace.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		service:   service,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

func idArg() mcp.ToolOption {
	return mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Template id of a loaded document"),
	)
}

func fieldArg() mcp.ToolOption {
	return mcp.WithString("field_id",
		mcp.Required(),
		mcp.Description("Field id within the template"),
	)
}

func pointArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Pointer x in display pixels")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Pointer y in display pixels")),
	}
}

func tool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(descriptions.GetToolDescription(name))}, opts...)...)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Template lifecycle
	s.mcpServer.AddTool(tool("template_load",
		mcp.WithString("path", mcp.Required(), mcp.Description("Template file (.json, .yaml, .yml), relative to the configured directory")),
	), s.handleTemplateLoad)

	s.mcpServer.AddTool(tool("template_save",
		idArg(),
		mcp.WithString("path", mcp.Description("Target file; defaults to the file the template was loaded from")),
		mcp.WithBoolean("blank", mcp.Description("Clear field values in the written copy")),
	), s.handleTemplateSave)

	s.mcpServer.AddTool(tool("template_list",
		mcp.WithString("directory", mcp.Description("Directory to search (uses default if empty)")),
		mcp.WithString("query", mcp.Description("Optional fuzzy match on file name")),
	), s.handleTemplateList)

	// Display and fields
	s.mcpServer.AddTool(tool("display_set",
		idArg(),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Display width in pixels")),
		mcp.WithNumber("height", mcp.Required(), mcp.Description("Display height in pixels")),
	), s.handleDisplaySet)

	s.mcpServer.AddTool(tool("edit_mode_set",
		idArg(),
		mcp.WithBoolean("on", mcp.Required(), mcp.Description("true to enable editing")),
	), s.handleEditModeSet)

	s.mcpServer.AddTool(tool("field_value_set",
		idArg(), fieldArg(),
		mcp.WithString("value", mcp.Required(), mcp.Description("New field value; empty hides the field")),
	), s.handleFieldValueSet)

	s.mcpServer.AddTool(tool("field_remove", idArg(), fieldArg()), s.handleFieldRemove)

	// Positions
	s.mcpServer.AddTool(tool("position_get", idArg(), fieldArg()), s.handlePositionGet)

	s.mcpServer.AddTool(tool("position_set",
		idArg(), fieldArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Left edge")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Top edge")),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Box width")),
		mcp.WithNumber("height", mcp.Required(), mcp.Description("Box height")),
		mcp.WithString("space",
			mcp.Description("How to read the box: pixel, percent or auto (default)"),
			mcp.Enum("auto", "pixel", "percent"),
		),
	), s.handlePositionSet)

	// Gestures
	s.mcpServer.AddTool(tool("pointer_down", append(append([]mcp.ToolOption{idArg()}, pointArgs()...),
		mcp.WithString("field_id", mcp.Description("Field to act on; hit-tested from x,y when empty")),
		mcp.WithString("handle",
			mcp.Description("Resize handle when field_id is given; omit to drag"),
			mcp.Enum("n", "s", "e", "w", "ne", "nw", "se", "sw"),
		),
	)...), s.handlePointerDown)

	s.mcpServer.AddTool(tool("pointer_move", append([]mcp.ToolOption{idArg()}, pointArgs()...)...), s.handlePointerMove)

	s.mcpServer.AddTool(tool("pointer_up", idArg()), s.handlePointerUp)

	// Output
	s.mcpServer.AddTool(tool("overlay_render", idArg()), s.handleOverlayRender)

	s.mcpServer.AddTool(tool("positions_export", idArg()), s.handlePositionsExport)

	s.mcpServer.AddTool(tool("document_export",
		idArg(),
		mcp.WithString("output", mcp.Required(), mcp.Description("PDF file to write, relative to the configured directory")),
		mcp.WithArray("values",
			mcp.Description("One object of field_id -> value per page; omit to render the current values"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), s.handleDocumentExport)

	s.mcpServer.AddTool(tool("document_inspect",
		mcp.WithString("path", mcp.Required(), mcp.Description("PDF file, relative to the configured directory")),
	), s.handleDocumentInspect)

	s.mcpServer.AddTool(tool("server_info"), s.handleServerInfo)
}

// Handler functions
func (s *Server) handleTemplateLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.service.LoadTemplate(workspace.LoadTemplateRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatDocumentInfo(info)), nil
}

func (s *Server) handleTemplateSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.SaveTemplate(workspace.SaveTemplateRequest{
		ID:    id,
		Path:  request.GetString("path", ""),
		Blank: request.GetBool("blank", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Saved template %s to %s (%d positions", result.ID, result.Path, result.Positions)
	if result.Blank {
		text += ", values cleared"
	}
	return mcp.NewToolResultText(text + ")"), nil
}

func (s *Server) handleTemplateList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.service.ListTemplates(workspace.ListTemplatesRequest{
		Directory: request.GetString("directory", ""),
		Query:     request.GetString("query", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatListTemplatesResult(result)), nil
}

func (s *Server) handleDisplaySet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	width, err := request.RequireFloat("width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	height, err := request.RequireFloat("height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.service.SetDisplay(workspace.DisplayRequest{ID: id, Width: width, Height: height})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatDocumentInfo(info)), nil
}

func (s *Server) handleEditModeSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	on, err := request.RequireBool("on")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.service.SetEditing(workspace.EditModeRequest{ID: id, On: on})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatDocumentInfo(info)), nil
}

func (s *Server) handleFieldValueSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, fieldID, err := requireField(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.service.SetValue(workspace.FieldValueRequest{ID: id, FieldID: fieldID, Value: value}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Set %s.%s", id, fieldID)), nil
}

func (s *Server) handleFieldRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, fieldID, err := requireField(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.service.RemoveField(workspace.FieldRequest{ID: id, FieldID: fieldID}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed field %s from %s", fieldID, id)), nil
}

func (s *Server) handlePositionGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, fieldID, err := requireField(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.GetPosition(workspace.FieldRequest{ID: id, FieldID: fieldID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handlePositionSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, fieldID, err := requireField(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var box geometry.Box
	for _, arg := range []struct {
		name string
		dst  *float64
	}{{"x", &box.X}, {"y", &box.Y}, {"width", &box.Width}, {"height", &box.Height}} {
		if *arg.dst, err = request.RequireFloat(arg.name); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	space, err := geometry.ParseSpace(request.GetString("space", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.SetPosition(workspace.SetPositionRequest{ID: id, FieldID: fieldID, Box: box, Space: space})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handlePointerDown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, p, err := requirePoint(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	handle := editor.HandleNone
	if name := request.GetString("handle", ""); name != "" {
		if handle, err = editor.ParseHandle(name); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result, err := s.service.PointerDown(workspace.PointerDownRequest{
		ID:      id,
		X:       p.X,
		Y:       p.Y,
		FieldID: request.GetString("field_id", ""),
		Handle:  handle,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handlePointerMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, p, err := requirePoint(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.PointerMove(workspace.PointerMoveRequest{ID: id, X: p.X, Y: p.Y})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handlePointerUp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.PointerUp(workspace.DocumentRequest{ID: id})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleOverlayRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Render(workspace.DocumentRequest{ID: id})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handlePositionsExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Positions(workspace.DocumentRequest{ID: id})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleDocumentExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	values, err := valueSets(request.GetArguments()["values"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Export(ctx, workspace.ExportRequest{ID: id, Output: output, Values: values})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatExportResult(result)), nil
}

func (s *Server) handleDocumentInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.service.Inspect(workspace.InspectRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info)
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.service.ServerInfo(s.config.ServerName, s.config.Version)
	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// Argument helpers

func requireField(request mcp.CallToolRequest) (string, string, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return "", "", err
	}
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return "", "", err
	}
	return id, fieldID, nil
}

func requirePoint(request mcp.CallToolRequest) (string, geometry.Point, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return "", geometry.Point{}, err
	}
	x, err := request.RequireFloat("x")
	if err != nil {
		return "", geometry.Point{}, err
	}
	y, err := request.RequireFloat("y")
	if err != nil {
		return "", geometry.Point{}, err
	}
	return id, geometry.Point{X: x, Y: y}, nil
}

// valueSets decodes the optional per-page value objects. Non-string values
// are rendered with their JSON text.
func valueSets(raw any) ([]map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("values must be an array of objects")
	}
	out := make([]map[string]string, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("values[%d] must be an object", i)
		}
		page := make(map[string]string, len(obj))
		for k, v := range obj {
			switch v := v.(type) {
			case string:
				page[k] = v
			case nil:
				page[k] = ""
			default:
				b, err := json.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("values[%d].%s: %w", i, k, err)
				}
				page[k] = string(b)
			}
		}
		out[i] = page
	}
	return out, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// Formatting methods
func (s *Server) formatDocumentInfo(info *workspace.DocumentInfo) string {
	text := fmt.Sprintf("Document %s (%s)\n", info.ID, info.Name)
	text += fmt.Sprintf("File: %s\n", info.Path)
	text += fmt.Sprintf("Fields: %d, stored positions: %d\n", info.Fields, info.Positions)
	text += fmt.Sprintf("Natural frame: %s\n", info.Natural)
	text += fmt.Sprintf("Display frame: %s\n", info.Display)
	text += fmt.Sprintf("Edit mode: %t\n", info.Editing)
	text += fmt.Sprintf("Gesture: %s\n", info.Gesture)
	return text
}

func (s *Server) formatListTemplatesResult(result *workspace.ListTemplatesResult) string {
	var b strings.Builder
	if len(result.Files) == 0 {
		fmt.Fprintf(&b, "No template files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			fmt.Fprintf(&b, " (searched for: %s)", result.SearchQuery)
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "Found %d template file(s) in directory: %s\n", len(result.Files), result.Directory)
		if result.SearchQuery != "" {
			fmt.Fprintf(&b, "Search query: %s\n", result.SearchQuery)
		}
		b.WriteString("\nFiles:\n")
		for i, file := range result.Files {
			fmt.Fprintf(&b, "%d. %s\n", i+1, file.Name)
			fmt.Fprintf(&b, "   Path: %s\n", file.Path)
			fmt.Fprintf(&b, "   Size: %d bytes\n", file.Size)
			fmt.Fprintf(&b, "   Modified: %s\n", file.ModifiedTime)
		}
	}

	if len(result.Loaded) > 0 {
		b.WriteString("\nLoaded documents:\n")
		for _, doc := range result.Loaded {
			fmt.Fprintf(&b, "• %s: %d fields, display %s, editing %t, gesture %s\n",
				doc.ID, doc.Fields, doc.Display, doc.Editing, doc.Gesture)
		}
	}
	return b.String()
}

func (s *Server) formatExportResult(result *workspace.ExportResult) string {
	text := fmt.Sprintf("Exported %s to %s\n", result.ID, result.Path)
	text += fmt.Sprintf("Pages: %d at %s\n", result.Pages, result.Frame)
	if result.Info != nil {
		text += fmt.Sprintf("Size: %d bytes\n", result.Info.Size)
		for _, p := range result.Info.Pages {
			text += fmt.Sprintf("  Page %d: %.0fx%.0f pt\n", p.Page, p.Width, p.Height)
		}
	}
	return text
}

func (s *Server) formatServerInfoResult(result *workspace.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d KB\n", result.MaxFileSize/1024)
	text += fmt.Sprintf("↔️  Minimum Field Size: %s px, sensitivity %g\n", result.MinSize, result.Sensitivity)
	if len(result.ExcludedFields) > 0 {
		text += fmt.Sprintf("🚫 Never drawn: %s\n", strings.Join(result.ExcludedFields, ", "))
	}
	text += "\n"

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d template files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No template files found in default directory\n\n"
	}

	if len(result.Loaded) > 0 {
		text += "📝 Loaded Documents:\n"
		for _, doc := range result.Loaded {
			text += fmt.Sprintf("   • %s (%s), gesture %s\n", doc.ID, doc.Name, doc.Gesture)
		}
		text += "\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("• %s: %s\n", tool.Name, tool.Description)
	}

	text += fmt.Sprintf("\n🏷️  Field Types: %s\n", strings.Join(result.FieldTypes, ", "))
	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx, os.Stdin, os.Stdout)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

// runStdioMode serves JSON-RPC over the given streams until in is exhausted
// or ctx is done.
func (s *Server) runStdioMode(ctx context.Context, in io.Reader, out io.Writer) error {
	logging.Logger().Info("starting MCP server in stdio mode", "directory", s.config.Directory)

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx is done.
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))
	logging.Logger().Info("starting MCP server in SSE mode", "address", addr, "directory", s.config.Directory)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
