package export

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
)

// LoadBackground decodes a template image. PNG, JPEG, GIF, WebP and BMP are
// supported.
func LoadBackground(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open background: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode background %s: %w", path, err)
	}
	return img, nil
}

// ImageFrame returns the pixel size of img as a frame.
func ImageFrame(img image.Image) geometry.Frame {
	b := img.Bounds()
	return geometry.Frame{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// ScaleImage resamples src to w x h with Catmull-Rom.
func ScaleImage(src image.Image, w, h int) image.Image {
	if b := src.Bounds(); b.Dx() == w && b.Dy() == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
