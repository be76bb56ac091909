package geometry

import (
	"fmt"
	"strings"
)

// IsPercentage is the range heuristic used to decide whether a stored box is
// already in percentage space. Y may be negative because a field can be
// dragged partially above the canvas.
//
// A small pixel box on a large image (20px wide on a 2000px image) passes
// this check and is misread as percentage data. Callers that know the space
// should say so with SpacePixel or SpacePercent instead of SpaceAuto.
func IsPercentage(b Box) bool {
	return b.X >= 0 && b.X <= 100 &&
		b.Y >= -100 && b.Y <= 100 &&
		b.Width > 0 && b.Width <= 100 &&
		b.Height > 0 && b.Height <= 100
}

// Space tags the coordinate convention of a box whose origin is not the
// position store.
type Space int

const (
	// SpaceAuto classifies with IsPercentage.
	SpaceAuto Space = iota
	// SpacePixel marks pixels relative to the supplied frame.
	SpacePixel
	// SpacePercent marks boxes already in percentage space.
	SpacePercent
)

func (s Space) String() string {
	switch s {
	case SpacePixel:
		return "pixel"
	case SpacePercent:
		return "percent"
	default:
		return "auto"
	}
}

// ParseSpace accepts "", "auto", "pixel"/"px" and "percent"/"%".
func ParseSpace(s string) (Space, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SpaceAuto, nil
	case "pixel", "pixels", "px":
		return SpacePixel, nil
	case "percent", "percentage", "%":
		return SpacePercent, nil
	}
	return SpaceAuto, fmt.Errorf("unknown coordinate space %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Space) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Space) UnmarshalText(text []byte) error {
	v, err := ParseSpace(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Resolve reports the concrete space of b: the declared space, or the
// heuristic result for SpaceAuto.
func (s Space) Resolve(b Box) Space {
	if s != SpaceAuto {
		return s
	}
	if IsPercentage(b) {
		return SpacePercent
	}
	return SpacePixel
}

// Normalize returns b in percentage space. Percentage input is returned
// unchanged, so normalizing twice is the same as normalizing once.
func Normalize(b Box, s Space, ref Frame) Box {
	if s.Resolve(b) == SpacePercent {
		return b
	}
	return ToPercentage(b, ref)
}
