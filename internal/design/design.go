// Package design reads icon design documents and compiles them into draw
// lists for the render pipeline.
//
// A design is a TOML, YAML or JSON document with a palette, a list of
// output targets and an ordered list of layers. Layer geometry is written in
// unit space: coordinates and lengths are fractions of the icon side, so one
// document renders at any size. min_size / max_size let a document carry
// per-size variants, such as a high-contrast 16 px version.
//
// Documents are validated against an embedded JSON schema before they are
// decoded (see [Parse]). Sources may be local files, glob patterns, http(s)
// URLs or builtin:<name> references (see [Resolve] and [LoadSource]).
package design

import (
	"fmt"

	"seehuhn.de/go/geom/vec"

	"tools.zach/dev/iconsmith/internal/paths"
	"tools.zach/dev/iconsmith/internal/raster"
	"tools.zach/dev/iconsmith/internal/render"
)

// CurrentVersion is the only design document version this build reads.
const CurrentVersion = 1

// Layer kinds.
const (
	KindRoundedRect = "rounded_rect"
	KindLine        = "line"
	KindPolygon     = "polygon"
	KindDisk        = "disk"
)

// Highlight defaults for gradients that leave them unset.
const (
	DefaultHighlightExtent = 0.22
	DefaultHighlightGain   = 0.55
)

// ///////////////////////////////////////////////
// Document Types
// ///////////////////////////////////////////////

// Document is a decoded design.
type Document struct {
	Version     int                  `json:"version"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Palette     map[string]ColorSpec `json:"palette,omitempty"`
	Targets     []Target             `json:"targets"`
	Layers      []Layer              `json:"layers"`

	// Source describes where the document was loaded from. Set by the
	// loaders, never read from the document itself.
	Source string `json:"-"`
}

// Target is one output icon.
type Target struct {
	Size int    `json:"size"`
	File string `json:"file,omitempty"`
}

// FileName returns the output file name, defaulting to icon<size>.png.
func (t Target) FileName() string {
	if t.File != "" {
		return t.File
	}
	return paths.IconFile(t.Size)
}

// Point is an [x, y] pair in unit space.
type Point [2]float64

func (p Point) scaled(s float64) vec.Vec2 {
	return vec.Vec2{X: p[0] * s, Y: p[1] * s}
}

// GradientSpec is a diagonal gradient fill. Nil highlight fields take the
// package defaults; an explicit zero extent disables the highlight.
type GradientSpec struct {
	From            ColorSpec `json:"from"`
	To              ColorSpec `json:"to"`
	HighlightExtent *float64  `json:"highlight_extent,omitempty"`
	HighlightGain   *float64  `json:"highlight_gain,omitempty"`
}

// Layer is one draw operation. Which fields apply depends on Kind.
type Layer struct {
	Name    string `json:"name,omitempty"`
	Kind    string `json:"kind"`
	MinSize int    `json:"min_size,omitempty"`
	MaxSize int    `json:"max_size,omitempty"`

	// rounded_rect, disk
	Radius float64 `json:"radius,omitempty"`
	// rounded_rect
	Inset    float64       `json:"inset,omitempty"`
	Gradient *GradientSpec `json:"gradient,omitempty"`
	// line
	From  *Point  `json:"from,omitempty"`
	To    *Point  `json:"to,omitempty"`
	Width float64 `json:"width,omitempty"`
	// polygon
	Points []Point `json:"points,omitempty"`
	// disk
	Center *Point `json:"center,omitempty"`

	Color *ColorSpec `json:"color,omitempty"`
}

// Applies reports whether the layer is drawn for an icon of the given size.
// Zero bounds are open.
func (l Layer) Applies(size int) bool {
	if l.MinSize > 0 && size < l.MinSize {
		return false
	}
	if l.MaxSize > 0 && size > l.MaxSize {
		return false
	}
	return true
}

func (l Layer) label(i int) string {
	if l.Name != "" {
		return fmt.Sprintf("layer %d (%s)", i, l.Name)
	}
	return fmt.Sprintf("layer %d", i)
}

// ///////////////////////////////////////////////
// Colors
// ///////////////////////////////////////////////

// Color resolves c against the document palette. Palette entries must be
// literals; they cannot refer to other entries.
func (d *Document) Color(c ColorSpec) (raster.Pixel, error) {
	if p, ok, err := c.literal(); ok {
		return p, err
	}
	entry, ok := d.Palette[c.Ref]
	if !ok {
		return raster.Pixel{}, fmt.Errorf("unknown palette color %q", c.Ref)
	}
	p, ok, err := entry.literal()
	if !ok {
		return raster.Pixel{}, fmt.Errorf("palette color %q refers to %q: palette entries must be literal colors", c.Ref, entry.Ref)
	}
	if err != nil {
		return raster.Pixel{}, fmt.Errorf("palette color %q: %w", c.Ref, err)
	}
	return p, nil
}

func (d *Document) gradient(g *GradientSpec) (*raster.Gradient, error) {
	from, err := d.Color(g.From)
	if err != nil {
		return nil, fmt.Errorf("gradient from: %w", err)
	}
	to, err := d.Color(g.To)
	if err != nil {
		return nil, fmt.Errorf("gradient to: %w", err)
	}
	out := &raster.Gradient{
		From:            from,
		To:              to,
		HighlightExtent: DefaultHighlightExtent,
		HighlightGain:   DefaultHighlightGain,
	}
	if g.HighlightExtent != nil {
		out.HighlightExtent = *g.HighlightExtent
	}
	if g.HighlightGain != nil {
		out.HighlightGain = *g.HighlightGain
	}
	return out, nil
}

// ///////////////////////////////////////////////
// Compilation
// ///////////////////////////////////////////////

// Commands compiles the layers that apply to size into draw commands, in
// document order, with unit coordinates multiplied by size.
func (d *Document) Commands(size int) ([]render.Command, error) {
	s := float64(size)
	cmds := make([]render.Command, 0, len(d.Layers))
	for i, l := range d.Layers {
		if !l.Applies(size) {
			continue
		}
		cmd, err := d.compile(l, s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", l.label(i), err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func (d *Document) compile(l Layer, s float64) (render.Command, error) {
	var col raster.Pixel
	if l.Color != nil {
		var err error
		if col, err = d.Color(*l.Color); err != nil {
			return nil, err
		}
	}

	switch l.Kind {
	case KindRoundedRect:
		cmd := render.RoundedRect{Radius: l.Radius * s, Inset: l.Inset * s, Color: col}
		if l.Gradient != nil {
			g, err := d.gradient(l.Gradient)
			if err != nil {
				return nil, err
			}
			cmd.Gradient = g
		} else if l.Color == nil {
			return nil, fmt.Errorf("rounded_rect needs a color or a gradient")
		}
		return cmd, nil

	case KindLine:
		if l.From == nil || l.To == nil {
			return nil, fmt.Errorf("line needs from and to")
		}
		return render.Line{From: l.From.scaled(s), To: l.To.scaled(s), Width: l.Width * s, Color: col}, nil

	case KindPolygon:
		pts := make([]vec.Vec2, len(l.Points))
		for i, p := range l.Points {
			pts[i] = p.scaled(s)
		}
		return render.Polygon{Points: pts, Color: col}, nil

	case KindDisk:
		if l.Center == nil {
			return nil, fmt.Errorf("disk needs a center")
		}
		return render.Disk{Center: l.Center.scaled(s), Radius: l.Radius * s, Color: col}, nil

	default:
		return nil, fmt.Errorf("unknown layer kind %q", l.Kind)
	}
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// Validate checks what the schema cannot express: color references,
// size bounds, and unique output names.
func (d *Document) Validate() error {
	if d.Version != CurrentVersion {
		return fmt.Errorf("unsupported design version %d", d.Version)
	}
	if len(d.Targets) == 0 {
		return fmt.Errorf("design %q has no targets", d.Name)
	}
	seen := make(map[string]bool, len(d.Targets))
	for _, t := range d.Targets {
		if t.Size <= 0 {
			return fmt.Errorf("target size must be positive, got %d", t.Size)
		}
		name := t.FileName()
		if seen[name] {
			return fmt.Errorf("duplicate target file %q", name)
		}
		seen[name] = true
	}
	for name, c := range d.Palette {
		if _, ok, err := c.literal(); !ok || err != nil {
			if err == nil {
				err = fmt.Errorf("must be a literal color, got %q", c.Ref)
			}
			return fmt.Errorf("palette color %q: %w", name, err)
		}
	}
	for i, l := range d.Layers {
		if l.MinSize > 0 && l.MaxSize > 0 && l.MinSize > l.MaxSize {
			return fmt.Errorf("%s: min_size %d exceeds max_size %d", l.label(i), l.MinSize, l.MaxSize)
		}
		// Compiling at unit size resolves every color reference.
		if _, err := d.compile(l, 1); err != nil {
			return fmt.Errorf("%s: %w", l.label(i), err)
		}
	}
	return nil
}
