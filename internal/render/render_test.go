// Package render tests verify the oversampling policy, the box-filter
// downsample, quantization rounding, and end-to-end pipeline properties.
package render

import (
	"bytes"
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"

	"tools.zach/dev/iconsmith/internal/raster"
)

// ///////////////////////////////////////////////
// Policy
// ///////////////////////////////////////////////

func TestPolicy_Factor(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		size int
		want int
	}{
		{1, 10},
		{16, 10},
		{17, 4},
		{48, 4},
		{49, 2},
		{128, 2},
		{1024, 2},
	}
	for _, tt := range tests {
		if got := p.Factor(tt.size); got != tt.want {
			t.Errorf("Factor(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestPolicy_FactorUnorderedTiers(t *testing.T) {
	p := Policy{
		Tiers:   []Tier{{MaxSize: 64, Factor: 3}, {MaxSize: 32, Factor: 6}},
		Default: 1,
	}
	if got := p.Factor(20); got != 6 {
		t.Errorf("Factor(20) = %d, want 6 from the tightest tier", got)
	}
	if got := p.Factor(40); got != 3 {
		t.Errorf("Factor(40) = %d, want 3", got)
	}
	if got := p.Factor(65); got != 1 {
		t.Errorf("Factor(65) = %d, want default 1", got)
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	bad := []Policy{
		{Default: 0},
		{Default: 2, Tiers: []Tier{{MaxSize: 0, Factor: 2}}},
		{Default: 2, Tiers: []Tier{{MaxSize: 16, Factor: 0}}},
		{Default: 2, Tiers: []Tier{{MaxSize: 16, Factor: 2}, {MaxSize: 16, Factor: 3}}},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: expected error for %+v", i, p)
		}
	}
}

// ///////////////////////////////////////////////
// Downsample and Quantize
// ///////////////////////////////////////////////

func TestDownsample_ConstantIsIdentity(t *testing.T) {
	col := raster.Pixel{R: 0.12, G: 0.37, B: 0.83, A: 0.55}
	for _, f := range []int{1, 2, 4, 10} {
		c := raster.NewCanvas(3*f, 3*f)
		for y := 0; y < 3*f; y++ {
			for x := 0; x < 3*f; x++ {
				c.Set(x, y, col)
			}
		}
		out := Downsample(c, f)
		if len(out) != 9 {
			t.Fatalf("f=%d: got %d pixels, want 9", f, len(out))
		}
		for i, p := range out {
			if math.Abs(p.R-col.R) > 1e-12 || math.Abs(p.G-col.G) > 1e-12 ||
				math.Abs(p.B-col.B) > 1e-12 || math.Abs(p.A-col.A) > 1e-12 {
				t.Errorf("f=%d pixel %d = %v, want %v", f, i, p, col)
			}
		}
		want := Quantize([]raster.Pixel{col})
		got := Quantize(out[:1])
		if !bytes.Equal(got, want) {
			t.Errorf("f=%d: quantized %v, want %v", f, got, want)
		}
	}
}

func TestDownsample_Averages(t *testing.T) {
	c := raster.NewCanvas(2, 2)
	c.Set(0, 0, raster.Pixel{R: 1, A: 1})
	out := Downsample(c, 2)
	if out[0].A != 0.25 || out[0].R != 0.25 {
		t.Errorf("average = %v, want R=0.25 A=0.25", out[0])
	}
}

func TestDownsample_PanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-multiple canvas size")
		}
	}()
	Downsample(raster.NewCanvas(5, 4), 2)
}

func TestToByte(t *testing.T) {
	tests := []struct {
		v    float64
		want byte
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 128}, // 127.5 rounds away from zero
		{0.2, 51},
		{0.999, 255},
		{1, 255},
		{7, 255},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ToByte(tt.v); got != tt.want {
			t.Errorf("ToByte(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// Pipeline
// ///////////////////////////////////////////////

func TestRender_EmptyIsTransparent(t *testing.T) {
	pix := Render(16, nil)
	if len(pix) != 16*16*4 {
		t.Fatalf("len = %d, want %d", len(pix), 16*16*4)
	}
	for i, b := range pix {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestRender_Disk(t *testing.T) {
	cmds := []Command{Disk{
		Center: vec.Vec2{X: 8, Y: 8},
		Radius: 5,
		Color:  raster.Pixel{R: 1, G: 1, B: 1, A: 1},
	}}
	for _, f := range []int{1, 4, 10} {
		pix := RenderFactor(16, f, cmds)
		alpha := func(x, y int) byte { return pix[(y*16+x)*4+3] }
		if a := alpha(8, 8); a != 255 {
			t.Errorf("F=%d: center alpha = %d, want 255", f, a)
		}
		if a := alpha(0, 0); a != 0 {
			t.Errorf("F=%d: corner alpha = %d, want 0", f, a)
		}
	}
}

func TestRender_EdgesAreSmoothed(t *testing.T) {
	cmds := []Command{Disk{
		Center: vec.Vec2{X: 8, Y: 8},
		Radius: 5.3,
		Color:  raster.Pixel{A: 1},
	}}
	pix := Render(16, cmds)
	partial := 0
	for i := 3; i < len(pix); i += 4 {
		if pix[i] > 0 && pix[i] < 255 {
			partial++
		}
	}
	if partial == 0 {
		t.Error("expected partially covered edge pixels after downsampling")
	}
}

func TestRender_Deterministic(t *testing.T) {
	cmds := []Command{
		RoundedRect{Radius: 4, Gradient: &raster.Gradient{
			From: raster.Pixel{R: 0.04, G: 0.06, B: 0.08, A: 1},
			To:   raster.Pixel{R: 0.06, G: 0.09, B: 0.13, A: 1},
		}},
		Line{From: vec.Vec2{X: 4, Y: 3}, To: vec.Vec2{X: 11, Y: 10}, Width: 1.5,
			Color: raster.Pixel{R: 0.93, G: 0.95, B: 0.98, A: 1}},
		Polygon{Points: []vec.Vec2{{X: 9, Y: 9}, {X: 13, Y: 11}, {X: 11.5, Y: 14}, {X: 7, Y: 12}},
			Color: raster.Pixel{R: 1, G: 0.69, A: 1}},
		Disk{Center: vec.Vec2{X: 5, Y: 12}, Radius: 0.6, Color: raster.Pixel{R: 0.88, G: 0.92, B: 0.98, A: 0.55}},
	}
	a := Render(16, cmds)
	b := Render(16, cmds)
	if !bytes.Equal(a, b) {
		t.Error("two renders of the same input differ")
	}
}

func TestRender_RoundedRectInset(t *testing.T) {
	border := raster.Pixel{R: 1, A: 1}
	fill := raster.Pixel{B: 1, A: 1}
	cmds := []Command{
		RoundedRect{Radius: 0, Color: border},
		RoundedRect{Radius: 0, Inset: 2, Color: fill},
	}
	pix := RenderFactor(8, 1, cmds)
	at := func(x, y int) []byte { i := (y*8 + x) * 4; return pix[i : i+4] }

	if got := at(0, 0); !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Errorf("border pixel = %v", got)
	}
	if got := at(4, 4); !bytes.Equal(got, []byte{0, 0, 255, 255}) {
		t.Errorf("inner pixel = %v", got)
	}
	if got := at(1, 6); !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Errorf("border pixel near bottom = %v", got)
	}
}

func TestRender_RoundedCornersAreTransparent(t *testing.T) {
	pix := Render(32, []Command{RoundedRect{Radius: 8, Color: raster.Pixel{G: 1, A: 1}}})
	if a := pix[3]; a != 0 {
		t.Errorf("top-left corner alpha = %d, want 0", a)
	}
	center := (16*32 + 16) * 4
	if a := pix[center+3]; a != 255 {
		t.Errorf("center alpha = %d, want 255", a)
	}
}

func TestRender_HugeGeometryClips(t *testing.T) {
	red := raster.Pixel{R: 1, A: 1}
	opaque := func(pix []byte) int {
		n := 0
		for i := 3; i < len(pix); i += 4 {
			if pix[i] == 255 {
				n++
			}
		}
		return n
	}

	if n := opaque(RenderFactor(8, 2, []Command{RoundedRect{Inset: 1e19, Color: red}})); n != 0 {
		t.Errorf("rect inset past the canvas covered %d pixels, want 0", n)
	}
	if n := opaque(RenderFactor(8, 2, []Command{Disk{Center: vec.Vec2{X: 4, Y: 4}, Radius: 1e19, Color: red}})); n != 64 {
		t.Errorf("huge disk covered %d pixels, want 64", n)
	}
}

func TestRenderFactor_PanicsOnBadSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("size %d: expected panic", size)
				}
			}()
			RenderFactor(size, 2, nil)
		}()
	}
}
