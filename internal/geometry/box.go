// Package geometry converts field boxes between container pixels and a
// resolution-independent percentage space.
//
// Percentage boxes are expressed as a fraction (0-100) of a reference frame,
// usually the natural image dimensions. Pixel boxes are relative to whatever
// frame is supplied at conversion time. The two flavors share the Box type and
// are told apart only by convention; see IsPercentage and Space for the
// places where that convention has to be recovered from data.
package geometry

import (
	"fmt"
	"math"

	"github.com/a3tai/mcp-form-overlay/internal/logging"
)

// Box is a rectangle given by its top-left offset and size.
type Box struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Zero is the box returned when a conversion cannot be performed.
var Zero = Box{}

// IsZero reports whether all four components are zero.
func (b Box) IsZero() bool {
	return b == Zero
}

// Right returns the x coordinate of the right edge.
func (b Box) Right() float64 { return b.X + b.Width }

// Bottom returns the y coordinate of the bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.Height }

// Contains reports whether p lies inside b, edges included.
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.Right() && p.Y >= b.Y && p.Y <= b.Bottom()
}

func (b Box) String() string {
	return fmt.Sprintf("{x:%g y:%g w:%g h:%g}", b.X, b.Y, b.Width, b.Height)
}

// Point is a pointer position in device-independent pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is the width and height of a rendering surface at one point in time.
type Frame struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are strictly positive.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0
}

// Scaled returns the frame multiplied by factor.
func (f Frame) Scaled(factor float64) Frame {
	return Frame{Width: f.Width * factor, Height: f.Height * factor}
}

func (f Frame) String() string {
	return fmt.Sprintf("%gx%g", f.Width, f.Height)
}

// ToPercentage converts a pixel box relative to ref into percentage space.
// Every component is rounded to two decimals. An invalid frame yields Zero
// and a warning; it never panics.
func ToPercentage(b Box, ref Frame) Box {
	if !ref.Valid() {
		logging.Logger().Warn("invalid reference frame for percentage conversion",
			"width", ref.Width, "height", ref.Height)
		return Zero
	}
	return Box{
		X:      round2(b.X / ref.Width * 100),
		Y:      round2(b.Y / ref.Height * 100),
		Width:  round2(b.Width / ref.Width * 100),
		Height: round2(b.Height / ref.Height * 100),
	}
}

// ToPixels projects a percentage box onto ref. The result is not rounded;
// hosts snap to device pixels when they paint.
func ToPixels(b Box, ref Frame) Box {
	if !ref.Valid() {
		logging.Logger().Warn("invalid reference frame for pixel conversion",
			"width", ref.Width, "height", ref.Height)
		return Zero
	}
	return Box{
		X:      b.X / 100 * ref.Width,
		Y:      b.Y / 100 * ref.Height,
		Width:  b.Width / 100 * ref.Width,
		Height: b.Height / 100 * ref.Height,
	}
}

// Rescale re-projects a pixel box measured against from onto to.
func Rescale(b Box, from, to Frame) Box {
	if !from.Valid() || !to.Valid() {
		return Zero
	}
	sx, sy := to.Width/from.Width, to.Height/from.Height
	return Box{X: b.X * sx, Y: b.Y * sy, Width: b.Width * sx, Height: b.Height * sy}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
