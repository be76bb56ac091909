package editor

import (
	"fmt"
	"math"
	"strings"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
)

// Handle names one of the eight resize grab points.
type Handle int

const (
	HandleNone Handle = iota
	HandleN
	HandleS
	HandleE
	HandleW
	HandleNE
	HandleNW
	HandleSE
	HandleSW
)

// AllHandles lists the handles in the order hosts draw them: corners first.
var AllHandles = []Handle{HandleNW, HandleNE, HandleSW, HandleSE, HandleW, HandleE, HandleN, HandleS}

var handleNames = map[Handle]string{
	HandleN: "n", HandleS: "s", HandleE: "e", HandleW: "w",
	HandleNE: "ne", HandleNW: "nw", HandleSE: "se", HandleSW: "sw",
}

func (h Handle) String() string {
	if name, ok := handleNames[h]; ok {
		return name
	}
	return "none"
}

// ParseHandle parses a handle tag such as "se".
func ParseHandle(s string) (Handle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for h, name := range handleNames {
		if name == s {
			return h, nil
		}
	}
	return HandleNone, fmt.Errorf("unknown resize handle %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	if s := string(text); s == "" || s == "none" {
		*h = HandleNone
		return nil
	}
	v, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// MinSize is the smallest usable box, in pixels.
type MinSize struct {
	Width  float64
	Height float64
}

// DefaultMinSize is 100x30 pixels.
var DefaultMinSize = MinSize{Width: 100, Height: 30}

// moves reports which edges a handle drags.
func (h Handle) moves() (left, right, top, bottom bool) {
	switch h {
	case HandleN:
		return false, false, true, false
	case HandleS:
		return false, false, false, true
	case HandleE:
		return false, true, false, false
	case HandleW:
		return true, false, false, false
	case HandleNE:
		return false, true, true, false
	case HandleNW:
		return true, false, true, false
	case HandleSE:
		return false, true, false, true
	case HandleSW:
		return true, false, false, true
	}
	return false, false, false, false
}

// Translate moves b by (dx, dy) keeping its size.
func Translate(b geometry.Box, dx, dy float64) geometry.Box {
	return geometry.Box{X: b.X + dx, Y: b.Y + dy, Width: b.Width, Height: b.Height}
}

// Resize applies the pointer delta to the edges h drags, then clamps the size
// to limit. When a clamp kicks in on a left or top edge of a box that already
// met the minimum, the opposite edge stays where it was. A box that starts
// below the minimum grows away from the dragged edge instead.
func Resize(b geometry.Box, h Handle, dx, dy float64, limit MinSize) geometry.Box {
	left, right, top, bottom := h.moves()
	out := b

	switch {
	case left:
		out.X = b.X + dx
		out.Width = b.Width - dx
	case right:
		out.Width = b.Width + dx
	}
	switch {
	case top:
		out.Y = b.Y + dy
		out.Height = b.Height - dy
	case bottom:
		out.Height = b.Height + dy
	}

	if out.Width < limit.Width {
		out.Width = limit.Width
		if left && b.Width >= limit.Width {
			out.X = b.Right() - limit.Width
		}
	}
	if out.Height < limit.Height {
		out.Height = limit.Height
		if top && b.Height >= limit.Height {
			out.Y = b.Bottom() - limit.Height
		}
	}
	return out
}

// Anchor returns the pixel position of handle h on b.
func Anchor(b geometry.Box, h Handle) geometry.Point {
	cx, cy := b.X+b.Width/2, b.Y+b.Height/2
	switch h {
	case HandleN:
		return geometry.Point{X: cx, Y: b.Y}
	case HandleS:
		return geometry.Point{X: cx, Y: b.Bottom()}
	case HandleE:
		return geometry.Point{X: b.Right(), Y: cy}
	case HandleW:
		return geometry.Point{X: b.X, Y: cy}
	case HandleNE:
		return geometry.Point{X: b.Right(), Y: b.Y}
	case HandleNW:
		return geometry.Point{X: b.X, Y: b.Y}
	case HandleSE:
		return geometry.Point{X: b.Right(), Y: b.Bottom()}
	case HandleSW:
		return geometry.Point{X: b.X, Y: b.Bottom()}
	}
	return geometry.Point{X: cx, Y: cy}
}

// HitHandle returns the handle whose anchor lies within tolerance pixels of p.
// Corners win over edges when both are in reach.
func HitHandle(b geometry.Box, p geometry.Point, tolerance float64) (Handle, bool) {
	for _, h := range AllHandles {
		a := Anchor(b, h)
		if math.Abs(a.X-p.X) <= tolerance && math.Abs(a.Y-p.Y) <= tolerance {
			return h, true
		}
	}
	return HandleNone, false
}
