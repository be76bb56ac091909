package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
)

func sampleTemplate() *Template {
	return &Template{
		ID:          "cv-basic",
		Name:        "Basic CV",
		Type:        KindCV,
		ImageWidth:  1000,
		ImageHeight: 500,
		Fields: []Field{
			{ID: "name", Label: "Full Name", Type: FieldText, Value: "Ada Lovelace"},
			{ID: "email", Label: "Email", Type: FieldEmail, Value: "ada@example.com"},
			{ID: "summary", Label: "Summary", Type: FieldTextarea, Value: "Analyst"},
		},
		FieldPositions: positions.PositionMap{
			"name": {X: 10, Y: 10, Width: 30, Height: 8},
		},
		Layout: &Layout{Sections: []Section{
			{ID: "header", Title: "Header", FieldIDs: []string{"name", "email"}},
			{ID: "body", FieldIDs: []string{"summary"}},
		}},
		PositionSpace: geometry.SpacePercent,
	}
}

func TestNaturalFrame(t *testing.T) {
	tpl := sampleTemplate()
	assert.Equal(t, geometry.Frame{Width: 1000, Height: 500}, tpl.NaturalFrame())

	tpl.ImageWidth = 0
	assert.Equal(t, LegacyFrame, tpl.NaturalFrame())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, sampleTemplate().Validate())

	tpl := sampleTemplate()
	tpl.Fields = append(tpl.Fields, Field{ID: "name"})
	assert.ErrorContains(t, tpl.Validate(), "duplicate field id")

	tpl = sampleTemplate()
	tpl.Fields[0].Type = "checkbox"
	assert.ErrorContains(t, tpl.Validate(), "unknown type")

	tpl = sampleTemplate()
	tpl.ID = " "
	assert.Error(t, tpl.Validate())

	tpl = sampleTemplate()
	tpl.Type = "letter"
	assert.Error(t, tpl.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"cv.json", "cv.yaml", "cv.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			require.NoError(t, Save(path, sampleTemplate()))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, sampleTemplate(), got)
		})
	}
}

func TestLoadResolvesImagePath(t *testing.T) {
	dir := t.TempDir()
	tpl := sampleTemplate()
	tpl.ImagePath = "cv.png"
	path := filepath.Join(dir, "cv.json")
	require.NoError(t, Save(path, tpl))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cv.png"), got.ImagePath)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "cv.txt"))
	assert.ErrorContains(t, err, "unsupported template extension")

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read template")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse template")
}

func TestDecodeLegacyYAML(t *testing.T) {
	data := []byte(`
id: legacy
name: Legacy
type: resume
fields:
  - id: name
    label: Name
    type: text
    value: Grace
fieldPositions:
  name: {x: 100, y: 100, width: 250, height: 40}
`)
	tpl, err := Decode(data, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, geometry.SpaceAuto, tpl.PositionSpace)

	store := BuildStore(tpl)
	assert.Equal(t, geometry.Box{X: 12.5, Y: 16.67, Width: 31.25, Height: 6.67}, store.Get("name"))
}

func TestBuildStore(t *testing.T) {
	tpl := sampleTemplate()
	tpl.FieldPositions["ghost"] = geometry.Box{X: 1, Y: 1, Width: 1, Height: 1}
	tpl.Fields[1].Position = &geometry.Box{X: 500, Y: 50, Width: 200, Height: 25}
	tpl.Fields[0].Position = &geometry.Box{X: 0, Y: 0, Width: 999, Height: 99}

	store := BuildStore(tpl)

	assert.Equal(t, []string{"email", "name"}, store.IDs())
	// A saved position wins over the pixel hint.
	assert.Equal(t, geometry.Box{X: 10, Y: 10, Width: 30, Height: 8}, store.Get("name"))
	assert.Equal(t, geometry.Box{X: 50, Y: 10, Width: 20, Height: 5}, store.Get("email"))
	_, ok := store.Lookup("summary")
	assert.False(t, ok)
}

func TestBuildStoreIsIdempotentAcrossSaves(t *testing.T) {
	tpl := sampleTemplate()
	tpl.PositionSpace = geometry.SpaceAuto
	tpl.FieldPositions["summary"] = geometry.Box{X: 100, Y: 200, Width: 400, Height: 80}

	first := Snapshot(tpl, BuildStore(tpl))
	second := Snapshot(first, BuildStore(first))

	assert.Equal(t, first.FieldPositions, second.FieldPositions)
	assert.Equal(t, geometry.SpacePercent, second.PositionSpace)
	assert.Equal(t, geometry.Box{X: 10, Y: 40, Width: 40, Height: 16}, second.FieldPositions["summary"])
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	tpl := sampleTemplate()
	store := BuildStore(tpl)
	store.Set("summary", geometry.Box{X: 100, Y: 100, Width: 200, Height: 50}, tpl.NaturalFrame())

	snap := Snapshot(tpl, store)
	snap.Fields[0].Value = "changed"
	snap.Layout.Sections[0].FieldIDs[0] = "changed"

	assert.Equal(t, "Ada Lovelace", tpl.Fields[0].Value)
	assert.Equal(t, "name", tpl.Layout.Sections[0].FieldIDs[0])
	assert.Equal(t, geometry.Box{X: 10, Y: 20, Width: 20, Height: 10}, snap.FieldPositions["summary"])
	_, ok := tpl.FieldPositions["summary"]
	assert.False(t, ok)
}

func TestRemoveField(t *testing.T) {
	tpl := sampleTemplate()
	store := BuildStore(tpl)

	assert.True(t, RemoveField(tpl, store, "name"))
	assert.False(t, RemoveField(tpl, store, "name"))

	assert.Equal(t, []string{"email", "summary"}, tpl.FieldIDs())
	assert.Equal(t, []string{"email"}, tpl.HeaderFields())
	_, ok := store.Lookup("name")
	assert.False(t, ok)
	_, ok = tpl.FieldPositions["name"]
	assert.False(t, ok)
}

func TestBlank(t *testing.T) {
	tpl := sampleTemplate()
	blank := Blank(tpl)

	for _, f := range blank.Fields {
		assert.Empty(t, f.Value)
	}
	assert.Equal(t, "Ada Lovelace", tpl.Fields[0].Value)
	assert.Equal(t, tpl.FieldPositions, blank.FieldPositions)
}

func TestAccessors(t *testing.T) {
	tpl := sampleTemplate()

	f, ok := tpl.Field("email")
	require.True(t, ok)
	assert.Equal(t, FieldEmail, f.Type)
	_, ok = tpl.Field("phone")
	assert.False(t, ok)

	assert.Equal(t, []string{"name", "email"}, tpl.HeaderFields())
	assert.Equal(t, "Analyst", tpl.Values()["summary"])
	assert.True(t, FieldRichText.Multiline())
	assert.False(t, FieldDate.Multiline())
	assert.True(t, IsTemplateFile("a.YML"))
	assert.False(t, IsTemplateFile("a.pdf"))
}
