package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// WritePDF writes pages as a PDF with one full-bleed image per page and
// validates the result before returning.
func WritePDF(w io.Writer, pages []image.Image) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to write")
	}

	readers := make([]io.Reader, len(pages))
	for i, p := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, p); err != nil {
			return fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		readers[i] = &buf
	}

	imp, err := pdfcpu.ParseImportDetails("pos:full", types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse import details: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, readers, imp, conf); err != nil {
		return fmt.Errorf("failed to assemble PDF: %w", err)
	}

	conf = model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(out.Bytes()), conf); err != nil {
		return fmt.Errorf("assembled PDF failed validation: %w", err)
	}

	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// WritePDFFile writes pages to path.
func WritePDFFile(path string, pages []image.Image) error {
	var buf bytes.Buffer
	if err := WritePDF(&buf, pages); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// PageBox is a page's MediaBox in points.
type PageBox struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Info summarizes an exported PDF.
type Info struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	PageCount int       `json:"pageCount"`
	Pages     []PageBox `json:"pages"`
}

// Inspect reads back a PDF: pdfcpu counts the pages and ledongthuc/pdf
// reports each page's MediaBox.
func Inspect(path string) (*Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF: %w", err)
	}

	count, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	info := &Info{Path: path, Size: stat.Size(), PageCount: count}
	for i := 1; i <= reader.NumPage(); i++ {
		box := mediaBox(reader.Page(i))
		if box.Len() != 4 {
			continue
		}
		info.Pages = append(info.Pages, PageBox{
			Page:   i,
			Width:  box.Index(2).Float64() - box.Index(0).Float64(),
			Height: box.Index(3).Float64() - box.Index(1).Float64(),
		})
	}
	return info, nil
}

// mediaBox returns the page's MediaBox, inherited from the page tree when the
// page itself has none.
func mediaBox(p pdf.Page) pdf.Value {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		if box := v.Key("MediaBox"); box.Len() == 4 {
			return box
		}
	}
	return pdf.Value{}
}
