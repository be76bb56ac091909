package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
)

func TestTranslate(t *testing.T) {
	got := Translate(geometry.Box{X: 100, Y: 100, Width: 250, Height: 40}, 30, -20)
	assert.Equal(t, geometry.Box{X: 130, Y: 80, Width: 250, Height: 40}, got)
}

func TestResizeHandles(t *testing.T) {
	start := geometry.Box{X: 100, Y: 100, Width: 200, Height: 100}

	tests := []struct {
		handle Handle
		dx, dy float64
		want   geometry.Box
	}{
		{HandleNW, 20, 10, geometry.Box{X: 120, Y: 110, Width: 180, Height: 90}},
		{HandleNE, 20, 10, geometry.Box{X: 100, Y: 110, Width: 220, Height: 90}},
		{HandleSW, 20, 10, geometry.Box{X: 120, Y: 100, Width: 180, Height: 110}},
		{HandleSE, 20, 10, geometry.Box{X: 100, Y: 100, Width: 220, Height: 110}},
		{HandleN, 20, 10, geometry.Box{X: 100, Y: 110, Width: 200, Height: 90}},
		{HandleS, 20, 10, geometry.Box{X: 100, Y: 100, Width: 200, Height: 110}},
		{HandleE, 20, 10, geometry.Box{X: 100, Y: 100, Width: 220, Height: 100}},
		{HandleW, 20, 10, geometry.Box{X: 120, Y: 100, Width: 180, Height: 100}},
		{HandleNone, 20, 10, start},
	}

	for _, tt := range tests {
		t.Run(tt.handle.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Resize(start, tt.handle, tt.dx, tt.dy, DefaultMinSize))
		})
	}
}

func TestResizeClampsToMinimum(t *testing.T) {
	got := Resize(geometry.Box{X: 0, Y: 0, Width: 100, Height: 30}, HandleSE, -500, -500, DefaultMinSize)
	assert.Equal(t, 100.0, got.Width)
	assert.Equal(t, 30.0, got.Height)
	assert.Equal(t, 0.0, got.X)
	assert.Equal(t, 0.0, got.Y)
}

func TestResizeClampPinsOppositeEdge(t *testing.T) {
	start := geometry.Box{X: 100, Y: 100, Width: 200, Height: 100}
	got := Resize(start, HandleNW, 500, 500, DefaultMinSize)

	assert.Equal(t, geometry.Box{X: 200, Y: 170, Width: 100, Height: 30}, got)
	assert.Equal(t, start.Right(), got.Right())
	assert.Equal(t, start.Bottom(), got.Bottom())
}

func TestResizeUndersizedBoxDoesNotJump(t *testing.T) {
	start := geometry.Box{X: 100, Y: 100, Width: 60, Height: 20}

	got := Resize(start, HandleNW, 0, 0, DefaultMinSize)
	assert.Equal(t, geometry.Box{X: 100, Y: 100, Width: 100, Height: 30}, got)

	got = Resize(start, HandleW, 10, 0, DefaultMinSize)
	assert.Equal(t, geometry.Box{X: 110, Y: 100, Width: 100, Height: 30}, got)
}

func TestParseHandle(t *testing.T) {
	for _, h := range AllHandles {
		parsed, err := ParseHandle(h.String())
		require.NoError(t, err)
		assert.Equal(t, h, parsed)
	}
	h, err := ParseHandle(" SE ")
	require.NoError(t, err)
	assert.Equal(t, HandleSE, h)

	_, err = ParseHandle("middle")
	assert.Error(t, err)
	assert.Equal(t, "none", HandleNone.String())
}

func TestHitHandle(t *testing.T) {
	b := geometry.Box{X: 100, Y: 100, Width: 200, Height: 100}

	tests := []struct {
		name string
		p    geometry.Point
		want Handle
		ok   bool
	}{
		{"top left corner", geometry.Point{X: 102, Y: 99}, HandleNW, true},
		{"bottom right corner", geometry.Point{X: 300, Y: 200}, HandleSE, true},
		{"right edge middle", geometry.Point{X: 301, Y: 150}, HandleE, true},
		{"top edge middle", geometry.Point{X: 200, Y: 100}, HandleN, true},
		{"inside body", geometry.Point{X: 150, Y: 140}, HandleNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := HitHandle(b, tt.p, 4)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, h)
		})
	}
}
