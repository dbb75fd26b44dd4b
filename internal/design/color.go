package design

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tools.zach/dev/iconsmith/internal/raster"
)

// ParseHexColor parses a "#RRGGBB" or "#RRGGBBAA" hex color string. Alpha
// defaults to fully opaque.
func ParseHexColor(hex string) (raster.Pixel, error) {
	digits := strings.TrimPrefix(hex, "#")
	if len(digits) != 6 && len(digits) != 8 {
		return raster.Pixel{}, fmt.Errorf("invalid hex color %q: must be 6 or 8 hex digits", hex)
	}
	var ch [4]float64
	ch[3] = 1
	for i := 0; i < len(digits)/2; i++ {
		v, err := strconv.ParseUint(digits[2*i:2*i+2], 16, 8)
		if err != nil {
			return raster.Pixel{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		ch[i] = float64(v) / 255
	}
	return raster.Pixel{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

// ColorSpec is a color as written in a design document: either a string
// (a "#RRGGBB[AA]" literal or a palette name) or a list of 3 or 4 channel
// values in [0, 1].
type ColorSpec struct {
	Ref      string
	Channels []float64
}

// UnmarshalJSON accepts either representation.
func (c *ColorSpec) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		*c = ColorSpec{}
		return json.Unmarshal(b, &c.Ref)
	}
	var ch []float64
	if err := json.Unmarshal(b, &ch); err != nil {
		return fmt.Errorf("color must be a string or a list of numbers: %w", err)
	}
	*c = ColorSpec{Channels: ch}
	return nil
}

// MarshalJSON writes the color back in the form it was read.
func (c ColorSpec) MarshalJSON() ([]byte, error) {
	if c.Channels != nil {
		return json.Marshal(c.Channels)
	}
	return json.Marshal(c.Ref)
}

// literal resolves a color that does not reference the palette.
func (c ColorSpec) literal() (raster.Pixel, bool, error) {
	switch {
	case c.Channels != nil:
		if n := len(c.Channels); n != 3 && n != 4 {
			return raster.Pixel{}, true, fmt.Errorf("color needs 3 or 4 channels, got %d", n)
		}
		p := raster.Pixel{R: c.Channels[0], G: c.Channels[1], B: c.Channels[2], A: 1}
		if len(c.Channels) == 4 {
			p.A = c.Channels[3]
		}
		return p, true, nil
	case strings.HasPrefix(c.Ref, "#"):
		p, err := ParseHexColor(c.Ref)
		return p, true, err
	default:
		return raster.Pixel{}, false, nil
	}
}

func (c ColorSpec) String() string {
	if c.Channels != nil {
		return fmt.Sprint(c.Channels)
	}
	return c.Ref
}
