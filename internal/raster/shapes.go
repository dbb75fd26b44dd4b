package raster

import (
	"math"
	"slices"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// ///////////////////////////////////////////////
// Rounded Rectangles
// ///////////////////////////////////////////////

// InsideRoundedRect reports whether the integer pixel (x, y) belongs to the
// w×h rectangle anchored at the origin whose corners are rounded with
// radius r.
//
// Points outside [0, w)×[0, h) never match. Inside the central cross bands
// (r <= x < w-r, or r <= y < h-r) every point matches. In a corner square the
// point must lie within r-1 of the corner circle's center, which sits at
// r-1 on the near side and w-r (or h-r) on the far side. For r <= 0 this is
// the plain rectangle test.
func InsideRoundedRect(x, y, w, h, r int) bool {
	if x < 0 || y < 0 || x >= w || y >= h {
		return false
	}
	if r <= 0 {
		return true
	}
	if r <= x && x < w-r {
		return true
	}
	if r <= y && y < h-r {
		return true
	}

	cx := w - r
	if x < r {
		cx = r - 1
	}
	cy := h - r
	if y < r {
		cy = r - 1
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= (r-1)*(r-1)
}

// FillRoundedRect blends shade into every canvas pixel inside the w×h
// rounded rectangle whose top-left pixel is (x0, y0).
func FillRoundedRect(c *Canvas, x0, y0, w, h, r int, shade Shader) {
	ys, ye := max(0, y0), min(c.height, y0+h)
	xs, xe := max(0, x0), min(c.width, x0+w)
	for y := ys; y < ye; y++ {
		for x := xs; x < xe; x++ {
			if InsideRoundedRect(x-x0, y-y0, w, h, r) {
				c.BlendAt(x, y, shade(x, y))
			}
		}
	}
}

// ///////////////////////////////////////////////
// Lines
// ///////////////////////////////////////////////

// degenerateLen2 is the squared segment length below which a segment is
// treated as a single point.
const degenerateLen2 = 1e-9

// DistToSegment returns the Euclidean distance from p to the closed segment
// ab. A degenerate segment measures the distance to a.
func DistToSegment(p, a, b vec.Vec2) float64 {
	ab := b.Sub(a)
	ap := p.Sub(a)
	len2 := ab.X*ab.X + ab.Y*ab.Y
	if len2 <= degenerateLen2 {
		return ap.Length()
	}
	t := (ap.X*ab.X + ap.Y*ab.Y) / len2
	t = clamp01(t)
	return p.Sub(a.Add(ab.Mul(t))).Length()
}

// StrokeLine blends col into every pixel whose center lies within width/2 of
// the segment ab. The ends are therefore round caps.
func StrokeLine(c *Canvas, a, b vec.Vec2, width float64, col Pixel) {
	half := width / 2
	pad := half + 2
	box := rect.Rect{
		LLx: min(a.X, b.X) - pad,
		LLy: min(a.Y, b.Y) - pad,
		URx: max(a.X, b.X) + pad,
		URy: max(a.Y, b.Y) + pad,
	}
	x0, y0, x1, y1, ok := c.cover(box)
	if !ok {
		return
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			center := vec.Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			if DistToSegment(center, a, b) <= half {
				c.BlendAt(x, y, col)
			}
		}
	}
}

// ///////////////////////////////////////////////
// Polygons
// ///////////////////////////////////////////////

// FillPolygon fills the closed polygon pts with the even-odd rule.
//
// Each pixel row is sampled along its center line y+0.5. An edge contributes
// a crossing when it straddles that line half-open (one endpoint at or below,
// the other strictly above), so horizontal edges never count and a shared
// vertex is counted once. Sorted crossings are paired; each span is widened
// to whole pixels by flooring its left end and ceiling its right end, and the
// pixels of the widened span are blended inclusively.
//
// Polygons with fewer than three distinct consecutive vertices draw nothing.
func FillPolygon(c *Canvas, pts []vec.Vec2, col Pixel) {
	pts = dedupe(pts)
	if len(pts) < 3 {
		return
	}

	box := rect.Rect{LLx: math.Inf(1), LLy: math.Inf(1), URx: math.Inf(-1), URy: math.Inf(-1)}
	for _, p := range pts {
		box.LLx = min(box.LLx, p.X)
		box.LLy = min(box.LLy, p.Y)
		box.URx = max(box.URx, p.X)
		box.URy = max(box.URy, p.Y)
	}
	_, y0, _, y1, ok := c.cover(box)
	if !ok {
		return
	}

	xs := make([]float64, 0, len(pts))
	for y := y0; y <= y1; y++ {
		line := float64(y) + 0.5
		xs = xs[:0]
		for i, p := range pts {
			q := pts[(i+1)%len(pts)]
			if (p.Y <= line && line < q.Y) || (q.Y <= line && line < p.Y) {
				t := (line - p.Y) / (q.Y - p.Y)
				xs = append(xs, p.X+t*(q.X-p.X))
			}
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			xa := max(0, floorPixel(xs[i], c.width))
			xb := min(c.width-1, ceilPixel(xs[i+1], c.width))
			for x := xa; x <= xb; x++ {
				c.BlendAt(x, y, col)
			}
		}
	}
}

// dedupe drops vertices equal to their predecessor, including the wrap-around
// from last to first.
func dedupe(pts []vec.Vec2) []vec.Vec2 {
	out := make([]vec.Vec2, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	return out
}

// ///////////////////////////////////////////////
// Disks
// ///////////////////////////////////////////////

// FillDisk blends col into every pixel whose center lies within r of center.
// A negative radius draws nothing.
func FillDisk(c *Canvas, center vec.Vec2, r float64, col Pixel) {
	if r < 0 {
		return
	}
	pad := r + 1
	box := rect.Rect{
		LLx: center.X - pad,
		LLy: center.Y - pad,
		URx: center.X + pad,
		URy: center.Y + pad,
	}
	x0, y0, x1, y1, ok := c.cover(box)
	if !ok {
		return
	}
	r2 := r * r
	for y := y0; y <= y1; y++ {
		dy := float64(y) + 0.5 - center.Y
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - center.X
			if dx*dx+dy*dy <= r2 {
				c.BlendAt(x, y, col)
			}
		}
	}
}
