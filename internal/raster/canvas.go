package raster

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"
)

// Canvas is a width×height grid of pixels stored row-major. Pixel (x, y)
// covers the unit square [x, x+1)×[y, y+1), so its center is (x+0.5, y+0.5).
type Canvas struct {
	width, height int
	pix           []Pixel
}

// NewCanvas returns a fully transparent canvas. It panics if either
// dimension is negative.
func NewCanvas(width, height int) *Canvas {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("raster: invalid canvas size %dx%d", width, height))
	}
	return &Canvas{
		width:  width,
		height: height,
		pix:    make([]Pixel, width*height),
	}
}

func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }

// Pix exposes the backing slice, row-major, len Width*Height.
func (c *Canvas) Pix() []Pixel { return c.pix }

// At returns the pixel at (x, y), or Transparent outside the canvas.
func (c *Canvas) At(x, y int) Pixel {
	if !c.in(x, y) {
		return Transparent
	}
	return c.pix[y*c.width+x]
}

// Set overwrites the pixel at (x, y). Out-of-bounds writes are dropped.
func (c *Canvas) Set(x, y int, p Pixel) {
	if !c.in(x, y) {
		return
	}
	c.pix[y*c.width+x] = p
}

// BlendAt composites p over the pixel at (x, y). Out-of-bounds writes are
// dropped.
func (c *Canvas) BlendAt(x, y int, p Pixel) {
	if !c.in(x, y) {
		return
	}
	i := y*c.width + x
	c.pix[i] = Blend(c.pix[i], p)
}

func (c *Canvas) in(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

// cover converts a floating-point bounding box to the inclusive pixel range
// that may be touched by a shape inside it: the lower corner is floored, the
// upper corner ceiled, and both are clipped to the canvas. ok is false when
// nothing of the box lands on the canvas.
func (c *Canvas) cover(b rect.Rect) (x0, y0, x1, y1 int, ok bool) {
	x0 = max(0, floorPixel(b.LLx, c.width))
	y0 = max(0, floorPixel(b.LLy, c.height))
	x1 = min(c.width-1, ceilPixel(b.URx, c.width))
	y1 = min(c.height-1, ceilPixel(b.URy, c.height))
	return x0, y0, x1, y1, x0 <= x1 && y0 <= y1
}

// floorPixel and ceilPixel round a coordinate on an axis of n pixels to a
// pixel index. The coordinate is first limited to [-1, n], which keeps the
// int conversion in range without changing what gets clipped.
func floorPixel(v float64, n int) int {
	return int(math.Floor(limit(v, n)))
}

func ceilPixel(v float64, n int) int {
	return int(math.Ceil(limit(v, n)))
}

func limit(v float64, n int) float64 {
	switch {
	case v < -1:
		return -1
	case v > float64(n):
		return float64(n)
	}
	return v
}
