// Package raster is the drawing core of iconsmith: a floating-point RGBA
// canvas, the source-over compositor and the hard-edged shape fillers.
//
// Nothing here anti-aliases. A pixel is either covered by a shape or not;
// smooth edges come from drawing on a supersampled canvas and box-filtering
// it down (see package render).
package raster

// ///////////////////////////////////////////////
// Pixel
// ///////////////////////////////////////////////

// Pixel is a straight (non-premultiplied) RGBA color. Channels are nominally
// in [0, 1]; intermediate values outside that range are tolerated and only
// clamped at quantization time.
type Pixel struct {
	R, G, B, A float64
}

// Transparent is the zero pixel every canvas starts out as.
var Transparent = Pixel{}

// Blend composites src over dst and returns the result. Both colors are
// straight alpha; color channels are weighted by their alpha, summed, and
// divided by the resulting alpha.
//
// A fully transparent src leaves dst untouched and a fully opaque src
// replaces it. When the composite alpha is zero the result is Transparent.
func Blend(dst, src Pixel) Pixel {
	switch {
	case src.A <= 0:
		return dst
	case src.A >= 1:
		return src
	}

	outA := src.A + dst.A*(1-src.A)
	if outA <= 0 {
		return Transparent
	}
	k := dst.A * (1 - src.A)
	return Pixel{
		R: (src.R*src.A + dst.R*k) / outA,
		G: (src.G*src.A + dst.G*k) / outA,
		B: (src.B*src.A + dst.B*k) / outA,
		A: outA,
	}
}

// Lerp interpolates every channel between p and q.
func (p Pixel) Lerp(q Pixel, t float64) Pixel {
	return Pixel{
		R: p.R + (q.R-p.R)*t,
		G: p.G + (q.G-p.G)*t,
		B: p.B + (q.B-p.B)*t,
		A: p.A + (q.A-p.A)*t,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
