// Package workspace is the editing session behind the tool server and the
// terminal editor. It owns the loaded templates, their position stores and
// gesture controllers, and routes every operation through path validation.
package workspace

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/a3tai/mcp-form-overlay/internal/editor"
	"github.com/a3tai/mcp-form-overlay/internal/export"
	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/logging"
	"github.com/a3tai/mcp-form-overlay/internal/overlay"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
	"github.com/a3tai/mcp-form-overlay/internal/security"
	"github.com/a3tai/mcp-form-overlay/internal/template"
)

// Options configures a Service.
type Options struct {
	Directory   string
	MaxFileSize int64
	Editor      editor.Options
	Overlay     overlay.Options
	Export      export.Options
	// HandleTolerance is the hit radius of resize handles, in display pixels.
	HandleTolerance float64
}

// Document is one loaded template and its editing state.
type Document struct {
	Path       string
	Template   *template.Template
	Store      *positions.Store
	Controller *editor.Controller
	Display    geometry.Frame
	Background image.Image
}

// Frame returns the display frame, or the natural frame before a host has
// reported one.
func (d *Document) Frame() geometry.Frame {
	if d.Display.Valid() {
		return d.Display
	}
	return d.Template.NaturalFrame()
}

// Service manages loaded documents.
type Service struct {
	opts      Options
	validator *security.PathValidator
	renderer  *overlay.Renderer
	composer  *export.Composer

	mu   sync.Mutex
	docs map[string]*Document
}

// NewService creates a service rooted at opts.Directory.
func NewService(opts Options) (*Service, error) {
	validator, err := security.NewPathValidator(opts.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if opts.HandleTolerance <= 0 {
		opts.HandleTolerance = 6
	}
	if opts.Editor.MinSize == (editor.MinSize{}) {
		opts.Editor.MinSize = editor.DefaultMinSize
	}
	if opts.Editor.Sensitivity == 0 {
		opts.Editor.Sensitivity = 1
	}

	renderer := overlay.NewRenderer(opts.Overlay)
	exportOpts := opts.Export
	exportOpts.Renderer = renderer
	composer, err := export.NewComposer(exportOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create composer: %w", err)
	}

	return &Service{
		opts:      opts,
		validator: validator,
		renderer:  renderer,
		composer:  composer,
		docs:      make(map[string]*Document),
	}, nil
}

// Directory returns the configured root.
func (s *Service) Directory() string {
	return s.validator.Root()
}

// MaxFileSize returns the template size limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.opts.MaxFileSize
}

// Renderer returns the shared overlay renderer.
func (s *Service) Renderer() *overlay.Renderer {
	return s.renderer
}

// LoadTemplate reads a template file and makes it the document with the
// template's id, replacing any document already loaded under that id.
func (s *Service) LoadTemplate(req LoadTemplateRequest) (*DocumentInfo, error) {
	const op = "load template"
	path, err := s.validator.ResolveFile(req.Path, s.opts.MaxFileSize)
	if err != nil {
		return nil, newError(ErrorKindSecurity, op, req.Path, err)
	}
	t, err := template.Load(path)
	if err != nil {
		return nil, newError(ErrorKindInvalid, op, req.Path, err)
	}

	doc := &Document{Path: path, Template: t, Store: template.BuildStore(t)}
	if t.ImagePath != "" {
		if err := s.attachBackground(doc); err != nil {
			return nil, newError(ErrorKindIO, op, t.ImagePath, err)
		}
	}
	doc.Controller = editor.NewController(doc.Store, editor.NewSurface(), s.opts.Editor)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.docs[t.ID]; ok {
		old.Controller.Cancel()
	}
	s.docs[t.ID] = doc

	logging.Logger().Info("template loaded", "id", t.ID, "path", path,
		"fields", len(t.Fields), "positions", doc.Store.Len())
	return doc.info(t.ID), nil
}

// attachBackground decodes the template image. Images recorded without a
// size take it from the decoded image; positions were already migrated
// against the legacy frame, so this does not move any field.
func (s *Service) attachBackground(doc *Document) error {
	path, err := s.validator.ResolveFile(doc.Template.ImagePath, 0)
	if err != nil {
		return err
	}
	img, err := export.LoadBackground(path)
	if err != nil {
		return err
	}
	doc.Background = img
	if !(geometry.Frame{Width: doc.Template.ImageWidth, Height: doc.Template.ImageHeight}).Valid() {
		f := export.ImageFrame(img)
		doc.Template.ImageWidth, doc.Template.ImageHeight = f.Width, f.Height
	}
	return nil
}

// SaveTemplate writes the document with positions taken from its store.
func (s *Service) SaveTemplate(req SaveTemplateRequest) (*SaveTemplateResult, error) {
	const op = "save template"
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.lookup(op, req.ID)
	if err != nil {
		return nil, err
	}
	target := doc.Path
	if req.Path != "" {
		if target, err = s.validator.Resolve(req.Path); err != nil {
			return nil, newError(ErrorKindSecurity, op, req.Path, err)
		}
	}

	out := template.Snapshot(doc.Template, doc.Store)
	if req.Blank {
		out = template.Blank(out)
	}
	if out.ImagePath != "" {
		if rel, err := filepath.Rel(filepath.Dir(target), out.ImagePath); err == nil && !strings.HasPrefix(rel, "..") {
			out.ImagePath = rel
		}
	}
	if err := template.Save(target, out); err != nil {
		return nil, newError(ErrorKindIO, op, target, err)
	}

	logging.Logger().Info("template saved", "id", req.ID, "path", target, "blank", req.Blank)
	return &SaveTemplateResult{ID: req.ID, Path: target, Positions: len(out.FieldPositions), Blank: req.Blank}, nil
}

// ListTemplates finds template files, optionally fuzzy-filtered by name.
func (s *Service) ListTemplates(req ListTemplatesRequest) (*ListTemplatesResult, error) {
	const op = "list templates"
	dir := s.validator.Root()
	if req.Directory != "" {
		var err error
		if dir, err = s.validator.Resolve(req.Directory); err != nil {
			return nil, newError(ErrorKindSecurity, op, req.Directory, err)
		}
	}

	var files []FileInfo
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() || !template.IsTemplateFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:         path,
			Name:         d.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return nil, newError(ErrorKindIO, op, dir, err)
	}

	if q := strings.TrimSpace(req.Query); q != "" {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		matches := fuzzy.Find(q, names)
		filtered := make([]FileInfo, len(matches))
		for i, m := range matches {
			filtered[i] = files[m.Index]
		}
		files = filtered
	}

	s.mu.Lock()
	loaded := make([]DocumentInfo, 0, len(s.docs))
	for _, id := range s.idsLocked() {
		loaded = append(loaded, *s.docs[id].info(id))
	}
	s.mu.Unlock()

	return &ListTemplatesResult{Directory: dir, SearchQuery: req.Query, Files: files, Loaded: loaded}, nil
}

// Info returns the summary of a loaded document.
func (s *Service) Info(req DocumentRequest) (*DocumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("document info", req.ID)
	if err != nil {
		return nil, err
	}
	return doc.info(req.ID), nil
}

// Document returns the loaded document with the given id. Hosts use it to
// reach the controller's surface directly.
func (s *Service) Document(id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup("document", id)
}

// SetDisplay records the frame a host is painting into.
func (s *Service) SetDisplay(req DisplayRequest) (*DocumentInfo, error) {
	const op = "set display"
	frame := geometry.Frame{Width: req.Width, Height: req.Height}
	if !frame.Valid() {
		return nil, invalid(op, "display frame must be positive, got %s", frame)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup(op, req.ID)
	if err != nil {
		return nil, err
	}
	if doc.Controller.State() != editor.StateIdle {
		// The active gesture measured its deltas against the old frame.
		doc.Controller.Cancel()
	}
	doc.Display = frame
	return doc.info(req.ID), nil
}

// SetEditing toggles edit mode; turning it off cancels any gesture.
func (s *Service) SetEditing(req EditModeRequest) (*DocumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("set edit mode", req.ID)
	if err != nil {
		return nil, err
	}
	doc.Controller.SetEditing(req.On)
	return doc.info(req.ID), nil
}

// SetValue updates a field value.
func (s *Service) SetValue(req FieldValueRequest) error {
	const op = "set field value"
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup(op, req.ID)
	if err != nil {
		return err
	}
	f, err := s.field(op, doc, req.FieldID)
	if err != nil {
		return err
	}
	f.Value = req.Value
	return nil
}

// RemoveField deletes a field and its position.
func (s *Service) RemoveField(req FieldRequest) error {
	const op = "remove field"
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup(op, req.ID)
	if err != nil {
		return err
	}
	if g, ok := doc.Controller.Active(); ok && g.FieldID == req.FieldID {
		doc.Controller.Cancel()
	}
	if !template.RemoveField(doc.Template, doc.Store, req.FieldID) {
		return notFound(op, "field", req.FieldID, doc.Template.FieldIDs())
	}
	return nil
}

// GetPosition returns a field's box in percentage space and in pixels of
// the display frame. A field without a stored box reports the default
// without storing it.
func (s *Service) GetPosition(req FieldRequest) (*PositionResult, error) {
	const op = "get position"
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup(op, req.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.field(op, doc, req.FieldID); err != nil {
		return nil, err
	}
	return positionOf(doc, req.FieldID), nil
}

// SetPosition stores a box for a field. Pixel boxes are measured against
// the display frame.
func (s *Service) SetPosition(req SetPositionRequest) (*PositionResult, error) {
	const op = "set position"
	if req.Box.Width <= 0 || req.Box.Height <= 0 {
		return nil, invalid(op, "box size must be positive, got %s", req.Box)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup(op, req.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.field(op, doc, req.FieldID); err != nil {
		return nil, err
	}
	if g, ok := doc.Controller.Active(); ok && g.FieldID == req.FieldID {
		return nil, newError(ErrorKindConflict, op, req.FieldID, fmt.Errorf("field is being %s", g.State))
	}
	doc.Store.Ingest(req.FieldID, req.Box, req.Space, doc.Frame())
	return positionOf(doc, req.FieldID), nil
}

// PointerDown starts a drag or resize. Only one gesture may be active across
// all documents; a pointer-down elsewhere is refused until it ends.
func (s *Service) PointerDown(req PointerDownRequest) (*GestureResult, error) {
	const op = "pointer down"
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup(op, req.ID)
	if err != nil {
		return nil, err
	}
	if !doc.Controller.Editing() {
		return nil, newError(ErrorKindConflict, op, req.ID, fmt.Errorf("edit mode is off"))
	}
	for id, other := range s.docs {
		if id != req.ID && other.Controller.State() != editor.StateIdle {
			return nil, newError(ErrorKindConflict, op, req.ID,
				fmt.Errorf("a gesture is active on document %q", id))
		}
	}

	p := geometry.Point{X: req.X, Y: req.Y}
	fieldID, handle := req.FieldID, req.Handle
	if fieldID == "" {
		fieldID, handle = s.hitTest(doc, p)
		if fieldID == "" {
			return &GestureResult{ID: req.ID, State: doc.Controller.State().String()}, nil
		}
	} else if _, err := s.field(op, doc, fieldID); err != nil {
		return nil, err
	}

	frame := doc.Frame()
	var accepted bool
	if handle != editor.HandleNone {
		accepted = doc.Controller.BeginResize(fieldID, handle, p, frame)
	} else {
		accepted = doc.Controller.BeginDrag(fieldID, p, frame)
	}
	return gestureOf(req.ID, doc, accepted), nil
}

// PointerMove feeds a pointer position to the document's input surface.
func (s *Service) PointerMove(req PointerMoveRequest) (*GestureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("pointer move", req.ID)
	if err != nil {
		return nil, err
	}
	active := doc.Controller.State() != editor.StateIdle
	doc.Controller.Surface().Move(geometry.Point{X: req.X, Y: req.Y})
	return gestureOf(req.ID, doc, active), nil
}

// PointerUp releases the pointer, ending any gesture.
func (s *Service) PointerUp(req DocumentRequest) (*GestureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("pointer up", req.ID)
	if err != nil {
		return nil, err
	}
	g, active := doc.Controller.Active()
	doc.Controller.Surface().Up()

	res := gestureOf(req.ID, doc, active)
	if active {
		res.FieldID = g.FieldID
		res.Position = positionOf(doc, g.FieldID)
	}
	return res, nil
}

// Render returns the overlay descriptors for the display frame.
func (s *Service) Render(req DocumentRequest) (*RenderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("render overlay", req.ID)
	if err != nil {
		return nil, err
	}
	return &RenderResult{
		ID:          req.ID,
		Frame:       doc.Frame(),
		Editing:     doc.Controller.Editing(),
		Descriptors: s.render(doc),
	}, nil
}

func (s *Service) render(doc *Document) []overlay.Descriptor {
	return s.renderer.Render(overlay.Input{
		Fields:  doc.Template.Fields,
		Header:  doc.Template.HeaderFields(),
		Store:   doc.Store,
		Frame:   doc.Frame(),
		Editing: doc.Controller.Editing(),
	})
}

// Positions returns the persisted percentage map.
func (s *Service) Positions(req DocumentRequest) (*PositionsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("export positions", req.ID)
	if err != nil {
		return nil, err
	}
	return &PositionsResult{ID: req.ID, Positions: doc.Store.Snapshot()}, nil
}

// Export renders one page per value set and writes a PDF.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	const op = "export document"
	output, err := s.validator.Resolve(req.Output)
	if err != nil {
		return nil, newError(ErrorKindSecurity, op, req.Output, err)
	}
	if !strings.EqualFold(filepath.Ext(output), ".pdf") {
		return nil, invalid(op, "output must be a .pdf file, got %q", req.Output)
	}

	s.mu.Lock()
	doc, err := s.lookup(op, req.ID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	job := export.Job{
		Template:   template.Snapshot(doc.Template, doc.Store),
		Store:      doc.Store.Clone(),
		Background: doc.Background,
		Values:     req.Values,
	}
	s.mu.Unlock()

	pages, err := s.composer.ComposeAll(ctx, job)
	if err != nil {
		return nil, newError(ErrorKindIO, op, req.ID, err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, newError(ErrorKindIO, op, output, err)
	}
	if err := export.WritePDFFile(output, pages); err != nil {
		return nil, newError(ErrorKindIO, op, output, err)
	}
	info, err := export.Inspect(output)
	if err != nil {
		return nil, newError(ErrorKindIO, op, output, err)
	}

	logging.Logger().Info("document exported", "id", req.ID, "path", output, "pages", len(pages))
	return &ExportResult{
		ID:    req.ID,
		Path:  output,
		Pages: len(pages),
		Frame: s.composer.Frame(job.Template),
		Info:  info,
	}, nil
}

// Inspect reads back a PDF under the configured directory.
func (s *Service) Inspect(req InspectRequest) (*export.Info, error) {
	const op = "inspect document"
	path, err := s.validator.ResolveFile(req.Path, 0)
	if err != nil {
		return nil, newError(ErrorKindSecurity, op, req.Path, err)
	}
	info, err := export.Inspect(path)
	if err != nil {
		return nil, newError(ErrorKindIO, op, req.Path, err)
	}
	return info, nil
}

// hitTest finds the field under p. Handles are only live in edit mode and
// win over bodies; later fields are drawn on top and win ties.
func (s *Service) hitTest(doc *Document, p geometry.Point) (string, editor.Handle) {
	descriptors := s.render(doc)
	for i := len(descriptors) - 1; i >= 0; i-- {
		d := descriptors[i]
		if h, ok := editor.HitHandle(d.Box, p, s.opts.HandleTolerance); ok {
			return d.FieldID, h
		}
	}
	for i := len(descriptors) - 1; i >= 0; i-- {
		if descriptors[i].Box.Contains(p) {
			return descriptors[i].FieldID, editor.HandleNone
		}
	}
	return "", editor.HandleNone
}

func (s *Service) lookup(op, id string) (*Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, notFound(op, "template", id, s.idsLocked())
	}
	return doc, nil
}

func (s *Service) field(op string, doc *Document, id string) (*template.Field, error) {
	f, ok := doc.Template.Field(id)
	if !ok {
		return nil, notFound(op, "field", id, doc.Template.FieldIDs())
	}
	return f, nil
}

func (s *Service) idsLocked() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *Document) info(id string) *DocumentInfo {
	return &DocumentInfo{
		ID:        id,
		Name:      d.Template.Name,
		Path:      d.Path,
		Fields:    len(d.Template.Fields),
		Positions: d.Store.Len(),
		Natural:   d.Template.NaturalFrame(),
		Display:   d.Frame(),
		Editing:   d.Controller.Editing(),
		Gesture:   d.Controller.State().String(),
	}
}

func positionOf(doc *Document, fieldID string) *PositionResult {
	frame := doc.Frame()
	pct, stored := doc.Store.Lookup(fieldID)
	if !stored {
		pct, _ = doc.Store.Default(frame)
	}
	return &PositionResult{
		FieldID: fieldID,
		Percent: pct,
		Pixel:   geometry.ToPixels(pct, frame),
		Frame:   frame,
		Stored:  stored,
	}
}

func gestureOf(id string, doc *Document, accepted bool) *GestureResult {
	res := &GestureResult{ID: id, State: doc.Controller.State().String(), Accepted: accepted}
	if g, ok := doc.Controller.Active(); ok {
		res.FieldID = g.FieldID
		if g.Handle != editor.HandleNone {
			res.Handle = g.Handle.String()
		}
		res.Position = positionOf(doc, g.FieldID)
	}
	return res
}
