// Package overlay produces per-field draw descriptors in the pixel space of
// whatever frame a host is painting into.
package overlay

import (
	"slices"
	"strings"

	"github.com/a3tai/mcp-form-overlay/internal/editor"
	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
	"github.com/a3tai/mcp-form-overlay/internal/template"
)

// Options configures a Renderer.
type Options struct {
	// ExcludedFields are never drawn on the canvas.
	ExcludedFields []string
	// HeaderFields get header styling in addition to the template's first
	// layout section.
	HeaderFields []string
}

// DefaultOptions excludes the email field, which is collected but not
// printed on the page.
func DefaultOptions() Options {
	return Options{
		ExcludedFields: []string{"email"},
		HeaderFields:   []string{"name", "email"},
	}
}

// Input is everything one render pass needs.
type Input struct {
	Fields []template.Field
	// Values override Field.Value when present.
	Values map[string]string
	// Header lists additional header field ids for this template.
	Header  []string
	Store   *positions.Store
	Frame   geometry.Frame
	Editing bool
}

// HandleAnchor is a resize handle and where to draw it.
type HandleAnchor struct {
	Handle editor.Handle  `json:"handle"`
	At     geometry.Point `json:"at"`
}

// Descriptor is the drawable form of one field.
type Descriptor struct {
	FieldID  string             `json:"fieldId"`
	Label    string             `json:"label"`
	Kind     template.FieldType `json:"kind"`
	Box      geometry.Box       `json:"box"`
	Content  string             `json:"content"`
	Editable bool               `json:"editable"`
	Header   bool               `json:"header"`
	Handles  []HandleAnchor     `json:"handles,omitempty"`
}

// Renderer turns fields into descriptors.
type Renderer struct {
	opts Options
}

// NewRenderer returns a renderer with the given options.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Options returns the renderer configuration.
func (r *Renderer) Options() Options {
	return r.opts
}

// Excluded reports whether id is never drawn.
func (r *Renderer) Excluded(id string) bool {
	return slices.Contains(r.opts.ExcludedFields, id)
}

// Render emits one descriptor per field that has a non-blank value and is
// not excluded, in field order. Fields without a stored position are
// resolved through the store, which records the default box.
func (r *Renderer) Render(in Input) []Descriptor {
	out := make([]Descriptor, 0, len(in.Fields))
	for _, f := range in.Fields {
		if r.Excluded(f.ID) {
			continue
		}
		value := f.Value
		if v, ok := in.Values[f.ID]; ok {
			value = v
		}
		if strings.TrimSpace(value) == "" {
			continue
		}

		box := in.Store.Resolve(f.ID, in.Frame)
		d := Descriptor{
			FieldID:  f.ID,
			Label:    f.Label,
			Kind:     f.Type,
			Box:      box,
			Content:  value,
			Editable: in.Editing,
			Header:   slices.Contains(r.opts.HeaderFields, f.ID) || slices.Contains(in.Header, f.ID),
		}
		if in.Editing {
			d.Handles = Handles(box)
		}
		out = append(out, d)
	}
	return out
}

// Handles returns the eight resize anchors of b.
func Handles(b geometry.Box) []HandleAnchor {
	out := make([]HandleAnchor, len(editor.AllHandles))
	for i, h := range editor.AllHandles {
		out[i] = HandleAnchor{Handle: h, At: editor.Anchor(b, h)}
	}
	return out
}
