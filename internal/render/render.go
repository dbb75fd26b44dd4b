// Package render turns a list of draw commands into size×size RGBA8 pixels.
//
// The pipeline allocates a transparent canvas of (size·F)² pixels, executes
// the commands in order, averages each F×F block (a box filter over straight
// alpha channels) and quantizes the result to bytes. F comes from a [Policy].
//
// Identical inputs always produce identical bytes.
package render

import (
	"fmt"
	"math"

	"tools.zach/dev/iconsmith/internal/raster"
)

// Render rasterizes cmds at size with [DefaultPolicy].
func Render(size int, cmds []Command) []byte {
	return DefaultPolicy().Render(size, cmds)
}

// RenderFactor rasterizes cmds at size with an explicit oversampling factor.
// The result is size*size*4 bytes, row-major RGBA. It panics if size or
// factor is not positive.
func RenderFactor(size, factor int, cmds []Command) []byte {
	if size <= 0 {
		panic(fmt.Sprintf("render: size must be positive, got %d", size))
	}
	if factor <= 0 {
		panic(fmt.Sprintf("render: factor must be positive, got %d", factor))
	}

	c := raster.NewCanvas(size*factor, size*factor)
	scale := float64(factor)
	for _, cmd := range cmds {
		Draw(c, cmd, scale)
	}
	return Quantize(Downsample(c, factor))
}

// Downsample averages every factor×factor block of c into one pixel. The
// canvas dimensions must be multiples of factor.
func Downsample(c *raster.Canvas, factor int) []raster.Pixel {
	if factor <= 0 || c.Width()%factor != 0 || c.Height()%factor != 0 {
		panic(fmt.Sprintf("render: cannot downsample %dx%d by %d", c.Width(), c.Height(), factor))
	}
	w, h := c.Width()/factor, c.Height()/factor
	out := make([]raster.Pixel, w*h)
	n := float64(factor * factor)

	for oy := 0; oy < h; oy++ {
		for ox := 0; ox < w; ox++ {
			var sum raster.Pixel
			for sy := 0; sy < factor; sy++ {
				for sx := 0; sx < factor; sx++ {
					p := c.At(ox*factor+sx, oy*factor+sy)
					sum.R += p.R
					sum.G += p.G
					sum.B += p.B
					sum.A += p.A
				}
			}
			out[oy*w+ox] = raster.Pixel{R: sum.R / n, G: sum.G / n, B: sum.B / n, A: sum.A / n}
		}
	}
	return out
}

// Quantize converts pixels to RGBA8 bytes.
func Quantize(pix []raster.Pixel) []byte {
	out := make([]byte, 0, len(pix)*4)
	for _, p := range pix {
		out = append(out, ToByte(p.R), ToByte(p.G), ToByte(p.B), ToByte(p.A))
	}
	return out
}

// ToByte clamps v to [0, 1], scales by 255 and rounds half away from zero.
func ToByte(v float64) byte {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 1:
		return 255
	}
	return byte(math.Round(v * 255))
}
