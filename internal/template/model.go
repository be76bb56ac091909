// Package template defines the form template model and its persistence.
//
// A template pairs a background image with a set of fields. Field geometry
// lives in FieldPositions, keyed by field id, and is kept in percentage space
// of the image once it has passed through a position store.
package template

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
)

// Kind is the category of a template.
type Kind string

const (
	KindCV     Kind = "cv"
	KindResume Kind = "resume"
	KindSWOT   Kind = "swot"
	KindCustom Kind = "custom"
)

// FieldType is the input type of a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldImage    FieldType = "image"
	FieldRichText FieldType = "richtext"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
)

var fieldTypes = []FieldType{
	FieldText, FieldTextarea, FieldDate, FieldSelect,
	FieldImage, FieldRichText, FieldEmail, FieldPhone,
}

// Multiline reports whether values of this type wrap onto several lines.
func (t FieldType) Multiline() bool {
	return t == FieldTextarea || t == FieldRichText
}

// LegacyFrame is the fixed container older templates were authored against
// when the image size was not recorded.
var LegacyFrame = geometry.Frame{Width: 800, Height: 600}

// Field is a single form field.
type Field struct {
	ID          string    `json:"id" yaml:"id"`
	Label       string    `json:"label" yaml:"label"`
	Type        FieldType `json:"type" yaml:"type"`
	Value       string    `json:"value" yaml:"value"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`

	// Position is an authoring or OCR hint in pixels of the natural image.
	// It is only consulted for fields without a stored position.
	Position *geometry.Box `json:"position,omitempty" yaml:"position,omitempty"`
}

// Section groups fields for layout. The first section is the header.
type Section struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	FieldIDs []string `json:"fieldIds" yaml:"fieldIds"`
}

// Layout is the ordered list of sections.
type Layout struct {
	Sections []Section `json:"sections" yaml:"sections"`
}

// Template is a form template.
type Template struct {
	ID             string                `json:"id" yaml:"id"`
	Name           string                `json:"name" yaml:"name"`
	Type           Kind                  `json:"type" yaml:"type"`
	Fields         []Field               `json:"fields" yaml:"fields"`
	FieldPositions positions.PositionMap `json:"fieldPositions" yaml:"fieldPositions"`
	Layout         *Layout               `json:"layout,omitempty" yaml:"layout,omitempty"`
	ImagePath      string                `json:"imagePath,omitempty" yaml:"imagePath,omitempty"`
	ImageWidth     float64               `json:"imageWidth,omitempty" yaml:"imageWidth,omitempty"`
	ImageHeight    float64               `json:"imageHeight,omitempty" yaml:"imageHeight,omitempty"`
	IsPublic       bool                  `json:"isPublic,omitempty" yaml:"isPublic,omitempty"`

	// PositionSpace declares the convention of FieldPositions. Templates
	// written by this package always say "percent"; older files leave it
	// empty and are classified box by box.
	PositionSpace geometry.Space `json:"positionSpace,omitempty" yaml:"positionSpace,omitempty"`
}

// Submission is one filled-in set of values for a template.
type Submission struct {
	ID         string            `json:"id" yaml:"id"`
	TemplateID string            `json:"template_id" yaml:"template_id"`
	Email      string            `json:"email" yaml:"email"`
	Values     map[string]string `json:"form_data" yaml:"form_data"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
}

// NaturalFrame returns the image's intrinsic size, or LegacyFrame when the
// template does not record it.
func (t *Template) NaturalFrame() geometry.Frame {
	f := geometry.Frame{Width: t.ImageWidth, Height: t.ImageHeight}
	if !f.Valid() {
		return LegacyFrame
	}
	return f
}

// Field returns the field with the given id.
func (t *Template) Field(id string) (*Field, bool) {
	for i := range t.Fields {
		if t.Fields[i].ID == id {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// FieldIDs returns the field ids in declaration order.
func (t *Template) FieldIDs() []string {
	ids := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		ids[i] = f.ID
	}
	return ids
}

// HeaderFields returns the field ids of the first layout section.
func (t *Template) HeaderFields() []string {
	if t.Layout == nil || len(t.Layout.Sections) == 0 {
		return nil
	}
	return slices.Clone(t.Layout.Sections[0].FieldIDs)
}

// Values returns the field values keyed by id.
func (t *Template) Values() map[string]string {
	out := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		out[f.ID] = f.Value
	}
	return out
}

// Validate checks ids and types.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template id is required")
	}
	switch t.Type {
	case "", KindCV, KindResume, KindSWOT, KindCustom:
	default:
		return fmt.Errorf("template %s: unknown type %q", t.ID, t.Type)
	}

	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("template %s: field with empty id", t.ID)
		}
		if seen[f.ID] {
			return fmt.Errorf("template %s: duplicate field id %q", t.ID, f.ID)
		}
		seen[f.ID] = true
		if f.Type != "" && !slices.Contains(fieldTypes, f.Type) {
			return fmt.Errorf("template %s: field %s has unknown type %q", t.ID, f.ID, f.Type)
		}
	}
	return nil
}
