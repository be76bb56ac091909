// Package export rasterizes filled templates and assembles them into PDFs.
//
// Pages are laid out against an export frame that is the template's natural
// frame times a scale factor. Field boxes come from the same overlay renderer
// interactive hosts use, resolved against that frame, so an exported page
// matches the editor at any size.
package export

import (
	"context"
	"fmt"
	"image"
	"math"
	"runtime"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/logging"
	"github.com/a3tai/mcp-form-overlay/internal/overlay"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
	"github.com/a3tai/mcp-form-overlay/internal/template"
)

// Options configures a Composer.
type Options struct {
	// Scale multiplies the natural frame. Zero means 1.
	Scale float64
	// FontSize is the body text size in pixels at scale 1.
	FontSize float64
	// Padding is the inset of text inside a field box at scale 1.
	Padding float64
	// Workers bounds concurrent page rendering. Zero means GOMAXPROCS.
	Workers int
	// Renderer selects and places fields. Nil uses overlay.DefaultOptions.
	Renderer *overlay.Renderer
}

// DefaultOptions renders at natural size with 14px text.
func DefaultOptions() Options {
	return Options{Scale: 1, FontSize: 14, Padding: 4}
}

// Job is one template plus the value sets to render, one page each.
type Job struct {
	Template   *template.Template
	Store      *positions.Store
	Background image.Image
	Values     []map[string]string
}

// Composer draws pages with gg.
type Composer struct {
	opts    Options
	regular *text.FontSource
	bold    *text.FontSource
}

// NewComposer loads the embedded Go fonts.
func NewComposer(opts Options) (*Composer, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultOptions().FontSize
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Renderer == nil {
		opts.Renderer = overlay.NewRenderer(overlay.DefaultOptions())
	}

	regular, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load regular font: %w", err)
	}
	bold, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load bold font: %w", err)
	}
	return &Composer{opts: opts, regular: regular, bold: bold}, nil
}

// Frame returns the export frame for t.
func (c *Composer) Frame(t *template.Template) geometry.Frame {
	return t.NaturalFrame().Scaled(c.opts.Scale)
}

// ComposeAll renders one page per value set, concurrently, and returns them
// in input order. A job without value sets renders the template's own values.
func (c *Composer) ComposeAll(ctx context.Context, job Job) ([]image.Image, error) {
	if job.Template == nil || job.Store == nil {
		return nil, fmt.Errorf("export job needs a template and a position store")
	}
	sets := job.Values
	if len(sets) == 0 {
		sets = []map[string]string{job.Template.Values()}
	}

	pages := make([]image.Image, len(sets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, values := range sets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := c.Compose(job.Template, job.Store, job.Background, values)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			pages[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Logger().Debug("composed pages", "template", job.Template.ID, "pages", len(pages))
	return pages, nil
}

// Compose renders a single page.
func (c *Composer) Compose(t *template.Template, store *positions.Store, background image.Image, values map[string]string) (image.Image, error) {
	frame := c.Frame(t)
	w, h := int(math.Round(frame.Width)), int(math.Round(frame.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid export frame %s", frame)
	}

	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.ClearWithColor(gg.White)

	if background != nil {
		dc.DrawImage(gg.ImageBufFromImage(ScaleImage(background, w, h)), 0, 0)
	}

	descriptors := c.opts.Renderer.Render(overlay.Input{
		Fields: t.Fields,
		Values: values,
		Header: t.HeaderFields(),
		Store:  store,
		Frame:  frame,
	})
	for _, d := range descriptors {
		c.drawField(dc, d)
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("failed to flush page: %w", err)
	}
	return dc.Image(), nil
}

func (c *Composer) drawField(dc *gg.Context, d overlay.Descriptor) {
	content := NormalizeValue(d.Content)
	if d.Kind == template.FieldRichText {
		content = FlattenRichText(content)
	}

	size := c.opts.FontSize * c.opts.Scale
	source := c.regular
	if d.Header {
		source = c.bold
	}
	face := source.Face(size)
	m := face.Metrics()
	lineHeight := m.LineHeight()
	if lineHeight <= 0 {
		lineHeight = size * 1.2
	}
	pad := c.opts.Padding * c.opts.Scale

	dc.ClipRect(d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height)
	defer dc.ResetClip()

	dc.SetFont(face)
	dc.SetRGB(0.07, 0.09, 0.15)
	lines := Wrap(content, d.Box.Width-2*pad, face.Advance)
	y := d.Box.Y + pad + m.Ascent
	for _, line := range lines {
		if y-m.Ascent > d.Box.Bottom() {
			break
		}
		dc.DrawString(line, d.Box.X+pad, y)
		y += lineHeight
	}
}
