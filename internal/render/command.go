package render

import (
	"math"

	"seehuhn.de/go/geom/vec"

	"tools.zach/dev/iconsmith/internal/raster"
)

// Command is one entry of a draw list. The set of implementations is closed:
// [RoundedRect], [Line], [Polygon] and [Disk]. Geometry is given in output
// pixels; the pipeline scales it by the oversampling factor before drawing.
type Command interface {
	isCommand()
}

// RoundedRect fills the whole canvas, shrunk by Inset on every side, as a
// rounded rectangle. Radius describes the un-inset outline; the inset shape
// stays concentric with radius Radius-Inset (never below zero).
//
// Gradient, when non-nil, takes precedence over Color. Gradients span the
// full canvas regardless of Inset.
type RoundedRect struct {
	Radius   float64
	Inset    float64
	Color    raster.Pixel
	Gradient *raster.Gradient
}

// Line strokes the segment From–To with round caps.
type Line struct {
	From, To vec.Vec2
	Width    float64
	Color    raster.Pixel
}

// Polygon fills a closed polygon with the even-odd rule.
type Polygon struct {
	Points []vec.Vec2
	Color  raster.Pixel
}

// Disk fills a circle.
type Disk struct {
	Center vec.Vec2
	Radius float64
	Color  raster.Pixel
}

func (RoundedRect) isCommand() {}
func (Line) isCommand()        {}
func (Polygon) isCommand()     {}
func (Disk) isCommand()        {}

// Draw executes cmd on c with every coordinate and length multiplied by
// scale. Rounded-rect radius and inset are rounded to whole canvas pixels
// after scaling.
func Draw(c *raster.Canvas, cmd Command, scale float64) {
	switch cmd := cmd.(type) {
	case RoundedRect:
		r := wholePixels(cmd.Radius * scale)
		inset := wholePixels(cmd.Inset * scale)
		shade := raster.Solid(cmd.Color)
		if cmd.Gradient != nil {
			shade = cmd.Gradient.Shader(c.Width(), c.Height())
		}
		raster.FillRoundedRect(c, inset, inset,
			c.Width()-2*inset, c.Height()-2*inset, max(0, r-inset), shade)

	case Line:
		raster.StrokeLine(c, cmd.From.Mul(scale), cmd.To.Mul(scale), cmd.Width*scale, cmd.Color)

	case Polygon:
		pts := make([]vec.Vec2, len(cmd.Points))
		for i, p := range cmd.Points {
			pts[i] = p.Mul(scale)
		}
		raster.FillPolygon(c, pts, cmd.Color)

	case Disk:
		raster.FillDisk(c, cmd.Center.Mul(scale), cmd.Radius*scale, cmd.Color)
	}
}

// maxWholePixels bounds rounded-rect radius and inset so the integer corner
// arithmetic cannot overflow. It is far beyond any canvas side.
const maxWholePixels = 1 << 30

// wholePixels rounds v to the nearest pixel count, saturating at
// ±maxWholePixels.
func wholePixels(v float64) int {
	return int(math.Round(max(-maxWholePixels, min(maxWholePixels, v))))
}
