package geometry

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-overlay/internal/logging"
)

func assertBoxNear(t *testing.T, want, got Box, tol float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Width, got.Width, tol, "width")
	assert.InDelta(t, want.Height, got.Height, tol, "height")
}

func TestToPercentage(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		ref  Frame
		want Box
	}{
		{
			name: "default box on 1000x500",
			box:  Box{X: 100, Y: 100, Width: 250, Height: 40},
			ref:  Frame{Width: 1000, Height: 500},
			want: Box{X: 10, Y: 20, Width: 25, Height: 8},
		},
		{
			name: "rounds to two decimals",
			box:  Box{X: 1, Y: 2, Width: 1, Height: 1},
			ref:  Frame{Width: 3, Height: 3},
			want: Box{X: 33.33, Y: 66.67, Width: 33.33, Height: 33.33},
		},
		{
			name: "negative offset is kept",
			box:  Box{X: -50, Y: -20, Width: 100, Height: 40},
			ref:  Frame{Width: 200, Height: 400},
			want: Box{X: -25, Y: -5, Width: 50, Height: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPercentage(tt.box, tt.ref))
		})
	}
}

func TestInvalidFrameDegradesToZero(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(logging.NewTextLogger(&buf, "warn"))
	defer logging.SetLogger(nil)

	frames := []Frame{{0, 100}, {100, 0}, {-1, 100}, {100, -5}, {}}
	box := Box{X: 10, Y: 10, Width: 10, Height: 10}
	for _, f := range frames {
		assert.Equal(t, Zero, ToPercentage(box, f), "ToPercentage %v", f)
		assert.Equal(t, Zero, ToPixels(box, f), "ToPixels %v", f)
	}
	assert.Contains(t, buf.String(), "invalid reference frame")
}

func TestToPixels(t *testing.T) {
	got := ToPixels(Box{X: 10, Y: 20, Width: 25, Height: 8}, Frame{Width: 1000, Height: 500})
	assert.Equal(t, Box{X: 100, Y: 100, Width: 250, Height: 40}, got)
}

func TestRoundTrip(t *testing.T) {
	frames := []Frame{
		{Width: 1, Height: 1},
		{Width: 37, Height: 91},
		{Width: 100, Height: 100},
		{Width: 199, Height: 150},
		{Width: 800, Height: 600},
		{Width: 1920, Height: 1080},
		{Width: 4961, Height: 7016},
	}
	boxes := []Box{
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 100, Y: 100, Width: 250, Height: 40},
		{X: 13, Y: 7, Width: 29, Height: 3},
		{X: 512.5, Y: 300.25, Width: 77.75, Height: 12.5},
	}

	for _, f := range frames {
		for _, b := range boxes {
			got := ToPixels(ToPercentage(b, f), f)
			// Percentages carry two decimals, so the pixel error is bounded by
			// half a hundredth of a percent of the frame. That equals the flat
			// 0.01 px bound up to 200 px (TestRoundTripWithinHundredthOnSmallFrames)
			// and grows linearly past it; the rounding, not the conversion, sets it.
			tolX := math.Max(0.01, 0.005*f.Width/100) + 1e-9
			tolY := math.Max(0.01, 0.005*f.Height/100) + 1e-9
			assert.InDelta(t, b.X, got.X, tolX, "x %v %v", b, f)
			assert.InDelta(t, b.Width, got.Width, tolX, "width %v %v", b, f)
			assert.InDelta(t, b.Y, got.Y, tolY, "y %v %v", b, f)
			assert.InDelta(t, b.Height, got.Height, tolY, "height %v %v", b, f)
		}
	}
}

func TestRoundTripWithinHundredthOnSmallFrames(t *testing.T) {
	for w := 1.0; w <= 200; w += 13 {
		f := Frame{Width: w, Height: 200 - w + 1}
		b := Box{X: w / 3, Y: 5, Width: w / 2, Height: 7}
		assertBoxNear(t, b, ToPixels(ToPercentage(b, f), f), 0.01+1e-9)
	}
}

func TestScaleInvariance(t *testing.T) {
	pct := Box{X: 12.5, Y: 33.33, Width: 20, Height: 4.75}
	f1 := Frame{Width: 640, Height: 480}
	f2 := Frame{Width: 2480, Height: 3508}

	p1 := ToPixels(pct, f1)
	p2 := ToPixels(pct, f2)

	assert.InDelta(t, p1.X/f1.Width, p2.X/f2.Width, 1e-9)
	assert.InDelta(t, p1.Y/f1.Height, p2.Y/f2.Height, 1e-9)
	assert.InDelta(t, p1.Width/f1.Width, p2.Width/f2.Width, 1e-9)
	assert.InDelta(t, p1.Height/f1.Height, p2.Height/f2.Height, 1e-9)
}

func TestRescale(t *testing.T) {
	got := Rescale(Box{X: 100, Y: 50, Width: 200, Height: 20}, Frame{800, 600}, Frame{1600, 300})
	assert.Equal(t, Box{X: 200, Y: 25, Width: 400, Height: 10}, got)
	assert.Equal(t, Zero, Rescale(Box{X: 1}, Frame{}, Frame{1, 1}))
}

func TestBoxHelpers(t *testing.T) {
	b := Box{X: 10, Y: 20, Width: 30, Height: 40}
	assert.Equal(t, 40.0, b.Right())
	assert.Equal(t, 60.0, b.Bottom())
	assert.True(t, b.Contains(Point{X: 10, Y: 20}))
	assert.True(t, b.Contains(Point{X: 40, Y: 60}))
	assert.False(t, b.Contains(Point{X: 41, Y: 30}))
	assert.True(t, Zero.IsZero())
	assert.False(t, b.IsZero())
	require.Equal(t, "{x:10 y:20 w:30 h:40}", b.String())
	assert.Equal(t, Frame{Width: 20, Height: 10}, Frame{Width: 10, Height: 5}.Scaled(2))
}
