package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
	"github.com/a3tai/mcp-form-overlay/internal/template"
)

func TestFlattenRichText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo"},
		{"line break", "a<br>b", "a\nb"},
		{"list", "<ul><li>Go</li><li>SQL</li></ul>", "• Go\n• SQL"},
		{"inline markup", "<p><b>Bold</b> and <i>italic</i></p>", "Bold and italic"},
		{"script dropped", "<p>x</p><script>alert(1)</script>", "x"},
		{"entities", "<p>R&amp;D</p>", "R&D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenRichText(tt.in))
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "Jos\u00e9", NormalizeValue("Jose\u0301"))
	assert.Equal(t, "a\nb", NormalizeValue("a\r\nb"))
}

func TestWrap(t *testing.T) {
	perRune := func(s string) float64 { return float64(len([]rune(s))) }

	assert.Equal(t, []string{"the quick", "brown fox"}, Wrap("the quick brown fox", 9, perRune))
	assert.Equal(t, []string{"a", "", "b"}, Wrap("a\n\nb", 10, perRune))
	assert.Equal(t, []string{"supercalifragilistic", "x"}, Wrap("supercalifragilistic x", 5, perRune))
	assert.Equal(t, []string{""}, Wrap("", 5, perRune))
}

func TestScaleImage(t *testing.T) {
	src := solid(10, 10, color.RGBA{R: 200, A: 255})
	assert.Same(t, src, ScaleImage(src, 10, 10))

	out := ScaleImage(src, 40, 20)
	assert.Equal(t, image.Rect(0, 0, 40, 20), out.Bounds())
	assertNearColor(t, color.RGBA{R: 200, A: 255}, out.At(20, 10))
}

func TestLoadBackground(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bg.png")
	writePNG(t, path, solid(30, 20, color.RGBA{B: 255, A: 255}))

	img, err := LoadBackground(path)
	require.NoError(t, err)
	assert.Equal(t, geometry.Frame{Width: 30, Height: 20}, ImageFrame(img))

	_, err = LoadBackground(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
	_, err = LoadBackground(bad)
	assert.ErrorContains(t, err, "failed to decode background")
}

func testTemplate() *template.Template {
	return &template.Template{
		ID:          "cv",
		ImageWidth:  200,
		ImageHeight: 100,
		Fields: []template.Field{
			{ID: "name", Label: "Name", Type: template.FieldText, Value: "Ada"},
			{ID: "bio", Label: "Bio", Type: template.FieldRichText, Value: "<p>Analyst</p>"},
		},
		FieldPositions: positions.PositionMap{
			"name": {X: 5, Y: 5, Width: 50, Height: 30},
		},
		PositionSpace: geometry.SpacePercent,
	}
}

func TestComposeUsesExportFrame(t *testing.T) {
	opts := DefaultOptions()
	opts.Scale = 2
	c, err := NewComposer(opts)
	require.NoError(t, err)

	tpl := testTemplate()
	store := template.BuildStore(tpl)
	bg := solid(50, 25, color.RGBA{R: 255, A: 255})

	img, err := c.Compose(tpl, store, bg, nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 200), img.Bounds())
	assertNearColor(t, color.RGBA{R: 255, A: 255}, img.At(380, 180))

	// The field without a position got the default, measured against the
	// natural image size rather than the scaled export frame.
	stored, ok := store.Lookup("bio")
	require.True(t, ok)
	assert.Equal(t, geometry.ToPercentage(positions.DefaultBox, geometry.Frame{Width: 200, Height: 100}), stored)
}

func TestComposeAllKeepsOrder(t *testing.T) {
	c, err := NewComposer(Options{Workers: 2})
	require.NoError(t, err)

	tpl := testTemplate()
	pages, err := c.ComposeAll(context.Background(), Job{
		Template: tpl,
		Store:    template.BuildStore(tpl),
		Values: []map[string]string{
			{"name": "one"}, {"name": "two"}, {"name": "three"},
		},
	})
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for _, p := range pages {
		assert.Equal(t, image.Rect(0, 0, 200, 100), p.Bounds())
	}
}

func TestComposeAllDefaultsToTemplateValues(t *testing.T) {
	c, err := NewComposer(DefaultOptions())
	require.NoError(t, err)
	tpl := testTemplate()

	pages, err := c.ComposeAll(context.Background(), Job{Template: tpl, Store: template.BuildStore(tpl)})
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	_, err = c.ComposeAll(context.Background(), Job{Template: tpl})
	assert.Error(t, err)
}

func TestComposeAllCancelled(t *testing.T) {
	c, err := NewComposer(Options{Workers: 1})
	require.NoError(t, err)
	tpl := testTemplate()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.ComposeAll(ctx, Job{
		Template: tpl,
		Store:    template.BuildStore(tpl),
		Values:   []map[string]string{{}, {}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWritePDFAndInspect(t *testing.T) {
	pages := []image.Image{
		solid(200, 100, color.White),
		solid(200, 100, color.Black),
	}
	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, WritePDFFile(path, pages))

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 2, info.PageCount)
	assert.Positive(t, info.Size)
	require.Len(t, info.Pages, 2)
	for _, p := range info.Pages {
		require.Positive(t, p.Height)
		assert.InDelta(t, 2.0, p.Width/p.Height, 0.01)
	}
}

func TestWritePDFRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WritePDF(&buf, nil))
	assert.Zero(t, buf.Len())
}

func TestInspectMissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "none.pdf"))
	assert.Error(t, err)
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func assertNearColor(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()
	r, g, b, a := got.RGBA()
	assert.InDelta(t, float64(want.R), float64(r>>8), 3)
	assert.InDelta(t, float64(want.G), float64(g>>8), 3)
	assert.InDelta(t, float64(want.B), float64(b>>8), 3)
	assert.InDelta(t, float64(want.A), float64(a>>8), 3)
}
