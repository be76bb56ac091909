package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/logging"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
)

// Format is a template file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the encoding from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return FormatJSON, fmt.Errorf("unsupported template extension %q", filepath.Ext(path))
}

// IsTemplateFile reports whether path has a template extension.
func IsTemplateFile(path string) bool {
	_, err := FormatFor(path)
	return err == nil
}

// Decode parses a template in the given format and validates it.
func Decode(data []byte, format Format) (*Template, error) {
	var t Template
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &t)
	} else {
		err = json.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Encode serializes t in the given format.
func Encode(t *Template, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(t)
	}
	return json.MarshalIndent(t, "", "  ")
}

// Load reads and validates a template file. A relative ImagePath is resolved
// against the template's directory.
func Load(path string) (*Template, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	t, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if t.ImagePath != "" && !filepath.IsAbs(t.ImagePath) {
		t.ImagePath = filepath.Join(filepath.Dir(path), t.ImagePath)
	}
	return t, nil
}

// Save writes t to path, creating parent directories as needed.
func Save(path string, t *Template) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(t, format)
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create template directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}

// BuildStore seeds a position store for t. Saved positions are ingested
// first using the template's declared space, measured against the natural
// frame. Fields without a saved entry then take their Position hint, which
// is always pixels. Entries for fields that no longer exist are dropped.
func BuildStore(t *Template) *positions.Store {
	ref := t.NaturalFrame()
	store := positions.New(nil)
	store.SetDefaultFrame(ref)
	store.IngestAll(t.FieldPositions, t.PositionSpace, ref)

	for _, f := range t.Fields {
		if f.Position == nil {
			continue
		}
		if _, ok := store.Lookup(f.ID); ok {
			continue
		}
		store.Ingest(f.ID, *f.Position, geometry.SpacePixel, ref)
	}

	if removed := store.Prune(t.FieldIDs()); len(removed) > 0 {
		logging.Logger().Info("dropped positions of unknown fields",
			"template", t.ID, "fields", removed)
	}
	return store
}

// Snapshot returns a copy of t whose positions come from store, marked as
// percentage space.
func Snapshot(t *Template, store *positions.Store) *Template {
	out := clone(t)
	out.FieldPositions = store.Snapshot()
	out.PositionSpace = geometry.SpacePercent
	return out
}

// RemoveField deletes the field id from t, its layout sections and store.
// It reports whether the field existed.
func RemoveField(t *Template, store *positions.Store, id string) bool {
	idx := -1
	for i, f := range t.Fields {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	t.Fields = append(t.Fields[:idx], t.Fields[idx+1:]...)
	delete(t.FieldPositions, id)
	if t.Layout != nil {
		for i := range t.Layout.Sections {
			s := &t.Layout.Sections[i]
			kept := s.FieldIDs[:0]
			for _, fid := range s.FieldIDs {
				if fid != id {
					kept = append(kept, fid)
				}
			}
			s.FieldIDs = kept
		}
	}
	if store != nil {
		store.Remove(id)
	}
	return true
}

// Blank returns a copy of t with every field value cleared, the form that
// is stored when a filled template is saved for reuse.
func Blank(t *Template) *Template {
	out := clone(t)
	for i := range out.Fields {
		out.Fields[i].Value = ""
	}
	return out
}

func clone(t *Template) *Template {
	out := *t
	out.Fields = make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		if f.Position != nil {
			p := *f.Position
			f.Position = &p
		}
		if f.Options != nil {
			f.Options = append([]string(nil), f.Options...)
		}
		out.Fields[i] = f
	}
	out.FieldPositions = t.FieldPositions.Clone()
	if t.Layout != nil {
		l := Layout{Sections: make([]Section, len(t.Layout.Sections))}
		for i, s := range t.Layout.Sections {
			s.FieldIDs = append([]string(nil), s.FieldIDs...)
			l.Sections[i] = s
		}
		out.Layout = &l
	}
	return &out
}
