package raster

// Shader returns the source color for canvas pixel (x, y). It is consulted
// only for pixels a shape covers.
type Shader func(x, y int) Pixel

// Solid returns a Shader that paints every pixel with p.
func Solid(p Pixel) Shader {
	return func(int, int) Pixel { return p }
}

// Gradient is a diagonal two-stop ramp running from the top-left canvas
// corner (From) to the bottom-right corner (To), with an optional additive
// highlight that fades out along the same diagonal.
//
// At parameter t = (x+y)/((w-1)+(h-1)) the color is lerp(From, To, t) with
// max(0, HighlightExtent-t)*HighlightGain added to R, G and B, each clamped
// to [0, 1]. Alpha is lerped and never highlighted.
type Gradient struct {
	From, To        Pixel
	HighlightExtent float64
	HighlightGain   float64
}

// Shader binds g to a canvas of the given size.
func (g Gradient) Shader(width, height int) Shader {
	span := float64((width - 1) + (height - 1))
	return func(x, y int) Pixel {
		t := 0.0
		if span > 0 {
			t = float64(x+y) / span
		}
		p := g.From.Lerp(g.To, t)
		if hi := max(0, g.HighlightExtent-t) * g.HighlightGain; hi > 0 {
			p.R = clamp01(p.R + hi)
			p.G = clamp01(p.G + hi)
			p.B = clamp01(p.B + hi)
		}
		return p
	}
}
