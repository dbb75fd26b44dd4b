// Package design tests verify document parsing in every format, schema and
// semantic validation, color resolution, compilation to draw commands,
// source resolution, and remote fetching with cache fallback.
package design

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tools.zach/dev/iconsmith/internal/pngenc"
	"tools.zach/dev/iconsmith/internal/raster"
	"tools.zach/dev/iconsmith/internal/render"
)

const tinyTOML = `
version = 1
name = "tiny"

[palette]
red = "#ff0000"

[[targets]]
size = 8

[[layers]]
kind = "disk"
center = [0.5, 0.5]
radius = 0.25
color = "red"

[[layers]]
kind = "line"
from = [0.1, 0.1]
to = [0.9, 0.9]
width = 0.1
color = [0.0, 0.0, 1.0, 0.5]
`

const tinyYAML = `
version: 1
name: tiny
palette:
  red: "#ff0000"
targets:
  - size: 8
layers:
  - kind: disk
    center: [0.5, 0.5]
    radius: 0.25
    color: red
  - kind: line
    from: [0.1, 0.1]
    to: [0.9, 0.9]
    width: 0.1
    color: [0.0, 0.0, 1.0, 0.5]
`

const tinyJSON = `{
  "version": 1,
  "name": "tiny",
  "palette": {"red": "#ff0000"},
  "targets": [{"size": 8}],
  "layers": [
    {"kind": "disk", "center": [0.5, 0.5], "radius": 0.25, "color": "red"},
    {"kind": "line", "from": [0.1, 0.1], "to": [0.9, 0.9], "width": 0.1, "color": [0.0, 0.0, 1.0, 0.5]}
  ]
}`

func mustParse(t *testing.T, data string, f Format) *Document {
	t.Helper()
	doc, err := Parse([]byte(data), f)
	if err != nil {
		t.Fatalf("Parse(%s): %v", f, err)
	}
	return doc
}

// ///////////////////////////////////////////////
// Colors
// ///////////////////////////////////////////////

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    raster.Pixel
		wantErr bool
	}{
		{"#FF0000", raster.Pixel{R: 1, A: 1}, false},
		{"#00ff00", raster.Pixel{G: 1, A: 1}, false},
		{"0000FF", raster.Pixel{B: 1, A: 1}, false},
		{"#FFFFFF00", raster.Pixel{R: 1, G: 1, B: 1, A: 0}, false},
		{"#FFF", raster.Pixel{}, true},
		{"#GG0000", raster.Pixel{}, true},
		{"", raster.Pixel{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHexColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHexColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseHexColor_Alpha(t *testing.T) {
	got, err := ParseHexColor("#00000080")
	if err != nil {
		t.Fatal(err)
	}
	if want := 128.0 / 255; math.Abs(got.A-want) > 1e-12 {
		t.Errorf("alpha = %v, want %v", got.A, want)
	}
}

func TestDocumentColor(t *testing.T) {
	doc := &Document{Palette: map[string]ColorSpec{
		"teal": {Channels: []float64{0, 0.5, 0.5}},
		"red":  {Ref: "#ff0000"},
	}}
	tests := []struct {
		name    string
		spec    ColorSpec
		want    raster.Pixel
		wantErr bool
	}{
		{"palette channels", ColorSpec{Ref: "teal"}, raster.Pixel{G: 0.5, B: 0.5, A: 1}, false},
		{"palette hex", ColorSpec{Ref: "red"}, raster.Pixel{R: 1, A: 1}, false},
		{"inline hex", ColorSpec{Ref: "#0000ff"}, raster.Pixel{B: 1, A: 1}, false},
		{"inline rgba", ColorSpec{Channels: []float64{1, 1, 1, 0.25}}, raster.Pixel{R: 1, G: 1, B: 1, A: 0.25}, false},
		{"unknown name", ColorSpec{Ref: "mauve"}, raster.Pixel{}, true},
		{"two channels", ColorSpec{Channels: []float64{1, 1}}, raster.Pixel{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doc.Color(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Color(%v) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Color(%v) = %+v, want %+v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestColorSpec_UnmarshalRejectsObjects(t *testing.T) {
	var c ColorSpec
	if err := c.UnmarshalJSON([]byte(`{"r": 1}`)); err == nil {
		t.Error("UnmarshalJSON(object) succeeded, want error")
	}
}

// ///////////////////////////////////////////////
// Parsing
// ///////////////////////////////////////////////

func TestParse_FormatsAgree(t *testing.T) {
	want, err := mustParse(t, tinyTOML, FormatTOML).Commands(8)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		f    Format
		data string
	}{{FormatYAML, tinyYAML}, {FormatJSON, tinyJSON}} {
		got, err := mustParse(t, tc.data, tc.f).Commands(8)
		if err != nil {
			t.Fatalf("%s: Commands: %v", tc.f, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s commands = %+v, want %+v", tc.f, got, want)
		}
	}
}

func TestParse_CompilesToOutputPixels(t *testing.T) {
	cmds, err := mustParse(t, tinyTOML, FormatTOML).Commands(8)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	disk, ok := cmds[0].(render.Disk)
	if !ok {
		t.Fatalf("command 0 is %T, want render.Disk", cmds[0])
	}
	if disk.Center.X != 4 || disk.Center.Y != 4 || disk.Radius != 2 {
		t.Errorf("disk = %+v, want center (4,4) radius 2", disk)
	}
	if disk.Color != (raster.Pixel{R: 1, A: 1}) {
		t.Errorf("disk color = %+v, want opaque red", disk.Color)
	}
	line, ok := cmds[1].(render.Line)
	if !ok {
		t.Fatalf("command 1 is %T, want render.Line", cmds[1])
	}
	if math.Abs(line.Width-0.8) > 1e-12 {
		t.Errorf("line width = %v, want 0.8", line.Width)
	}
	if line.Color.A != 0.5 {
		t.Errorf("line alpha = %v, want 0.5", line.Color.A)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing targets", `{"version": 1, "name": "x", "layers": []}`},
		{"empty targets", `{"version": 1, "name": "x", "targets": [], "layers": []}`},
		{"future version", `{"version": 2, "name": "x", "targets": [{"size": 8}], "layers": []}`},
		{"unknown top-level key", `{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [], "extra": true}`},
		{"unknown kind", `{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [{"kind": "star", "color": "#ffffff"}]}`},
		{"line without width", `{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [{"kind": "line", "from": [0,0], "to": [1,1], "color": "#ffffff"}]}`},
		{"line with radius", `{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [{"kind": "line", "from": [0,0], "to": [1,1], "width": 0.1, "radius": 1, "color": "#ffffff"}]}`},
		{"rect without paint", `{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [{"kind": "rounded_rect", "radius": 0.2}]}`},
		{"three-element point", `{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [{"kind": "disk", "center": [0,0,0], "radius": 0.1, "color": "#ffffff"}]}`},
		{"channel out of range", `{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [{"kind": "disk", "center": [0,0], "radius": 0.1, "color": [2, 0, 0]}]}`},
		{"palette reference in palette", `{"version": 1, "name": "x", "palette": {"a": "#ffffff", "b": "a"}, "targets": [{"size": 8}], "layers": []}`},
		{"zero size", `{"version": 1, "name": "x", "targets": [{"size": 0}], "layers": []}`},
		{"file with directory", `{"version": 1, "name": "x", "targets": [{"size": 8, "file": "../x.png"}], "layers": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			if !errors.Is(err, ErrSchema) {
				t.Errorf("Parse() error = %v, want ErrSchema", err)
			}
		})
	}
}

func TestParse_SemanticViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"unknown palette color",
			`{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [{"kind": "disk", "center": [0,0], "radius": 0.1, "color": "mauve"}]}`,
			"unknown palette color",
		},
		{
			"duplicate output file",
			`{"version": 1, "name": "x", "targets": [{"size": 8}, {"size": 16, "file": "icon8.png"}], "layers": []}`,
			"duplicate target file",
		},
		{
			"inverted size bounds",
			`{"version": 1, "name": "x", "targets": [{"size": 8}], "layers": [{"kind": "disk", "min_size": 32, "max_size": 16, "center": [0,0], "radius": 0.1, "color": "#ffffff"}]}`,
			"exceeds max_size",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if errors.Is(err, ErrSchema) {
				t.Errorf("Parse() error = %v, want a semantic error", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, f := range []Format{FormatTOML, FormatYAML, FormatJSON} {
		if _, err := Parse([]byte("{{{ not a document"), f); err == nil {
			t.Errorf("Parse(%s) of garbage succeeded", f)
		}
	}
	if _, err := Parse([]byte(tinyJSON), Format("xml")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Parse(xml) error = %v, want ErrUnknownFormat", err)
	}
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name string
		want Format
		ok   bool
	}{
		{"a.toml", FormatTOML, true},
		{"dir/b.YAML", FormatYAML, true},
		{"c.yml", FormatYAML, true},
		{"d.json", FormatJSON, true},
		{"e.txt", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, err := FormatFromName(tt.name)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("FormatFromName(%q) = %q, %v, want %q ok=%v", tt.name, got, err, tt.want, tt.ok)
		}
	}
}

func TestFormatFromContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want Format
	}{
		{"application/json; charset=utf-8", FormatJSON},
		{"application/yaml", FormatYAML},
		{"text/x-yaml", FormatYAML},
		{"application/toml", FormatTOML},
	}
	for _, tt := range tests {
		if got, err := FormatFromContentType(tt.ct); err != nil || got != tt.want {
			t.Errorf("FormatFromContentType(%q) = %q, %v, want %q", tt.ct, got, err, tt.want)
		}
	}
	if _, err := FormatFromContentType("text/plain"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("FormatFromContentType(text/plain) error = %v, want ErrUnknownFormat", err)
	}
}

// ///////////////////////////////////////////////
// Compilation
// ///////////////////////////////////////////////

func TestLayer_Applies(t *testing.T) {
	tests := []struct {
		min, max, size int
		want           bool
	}{
		{0, 0, 16, true},
		{0, 16, 16, true},
		{0, 16, 17, false},
		{17, 0, 16, false},
		{17, 0, 17, true},
		{17, 48, 48, true},
		{17, 48, 49, false},
	}
	for _, tt := range tests {
		l := Layer{MinSize: tt.min, MaxSize: tt.max}
		if got := l.Applies(tt.size); got != tt.want {
			t.Errorf("Layer{min %d, max %d}.Applies(%d) = %v, want %v", tt.min, tt.max, tt.size, got, tt.want)
		}
	}
}

func TestCommands_GradientDefaults(t *testing.T) {
	zero := 0.0
	doc := &Document{
		Version: 1,
		Targets: []Target{{Size: 8}},
		Layers: []Layer{
			{Kind: KindRoundedRect, Radius: 0.25, Gradient: &GradientSpec{From: ColorSpec{Ref: "#000000"}, To: ColorSpec{Ref: "#ffffff"}}},
			{Kind: KindRoundedRect, Inset: 0.125, Gradient: &GradientSpec{From: ColorSpec{Ref: "#000000"}, To: ColorSpec{Ref: "#ffffff"}, HighlightExtent: &zero}},
		},
	}
	cmds, err := doc.Commands(8)
	if err != nil {
		t.Fatal(err)
	}
	first := cmds[0].(render.RoundedRect)
	if first.Radius != 2 {
		t.Errorf("radius = %v, want 2", first.Radius)
	}
	if first.Gradient == nil || first.Gradient.HighlightExtent != DefaultHighlightExtent || first.Gradient.HighlightGain != DefaultHighlightGain {
		t.Errorf("gradient = %+v, want default highlight", first.Gradient)
	}
	second := cmds[1].(render.RoundedRect)
	if second.Inset != 1 {
		t.Errorf("inset = %v, want 1", second.Inset)
	}
	if second.Gradient.HighlightExtent != 0 {
		t.Errorf("highlight extent = %v, want explicit 0", second.Gradient.HighlightExtent)
	}
}

func TestTarget_FileName(t *testing.T) {
	if got := (Target{Size: 48}).FileName(); got != "icon48.png" {
		t.Errorf("FileName() = %q, want icon48.png", got)
	}
	if got := (Target{Size: 48, File: "logo.png"}).FileName(); got != "logo.png" {
		t.Errorf("FileName() = %q, want logo.png", got)
	}
}

// ///////////////////////////////////////////////
// Built-in broom
// ///////////////////////////////////////////////

func loadBroom(t *testing.T) *Document {
	t.Helper()
	doc, err := LoadSource(context.Background(), Source{Builtin: "broom"}, nil)
	if err != nil {
		t.Fatalf("LoadSource(builtin:broom): %v", err)
	}
	return doc
}

func TestBroom_Variants(t *testing.T) {
	doc := loadBroom(t)
	if doc.Source != "builtin:broom" {
		t.Errorf("Source = %q, want builtin:broom", doc.Source)
	}

	var sizes []int
	for _, tg := range doc.Targets {
		sizes = append(sizes, tg.Size)
	}
	if !reflect.DeepEqual(sizes, []int{16, 48, 128}) {
		t.Errorf("target sizes = %v, want [16 48 128]", sizes)
	}

	tests := []struct {
		size int
		want int
	}{
		{16, 3},
		{48, 11},
		{128, 11},
	}
	for _, tt := range tests {
		cmds, err := doc.Commands(tt.size)
		if err != nil {
			t.Fatalf("Commands(%d): %v", tt.size, err)
		}
		if len(cmds) != tt.want {
			t.Errorf("Commands(%d) returned %d commands, want %d", tt.size, len(cmds), tt.want)
		}
		if _, ok := cmds[0].(render.RoundedRect); !ok {
			t.Errorf("Commands(%d)[0] is %T, want the tile", tt.size, cmds[0])
		}
	}
}

func TestBroom_RendersAndEncodes(t *testing.T) {
	doc := loadBroom(t)
	for _, tg := range doc.Targets {
		cmds, err := doc.Commands(tg.Size)
		if err != nil {
			t.Fatal(err)
		}
		pix := render.Render(tg.Size, cmds)
		alpha := func(x, y int) byte { return pix[(y*tg.Size+x)*4+3] }
		if a := alpha(0, 0); a != 0 {
			t.Errorf("size %d: corner alpha = %d, want 0 (rounded tile)", tg.Size, a)
		}
		if a := alpha(tg.Size/2, tg.Size/4); a != 255 {
			t.Errorf("size %d: tile alpha = %d, want 255", tg.Size, a)
		}

		data, err := pngenc.Encode(tg.Size, tg.Size, pix)
		if err != nil {
			t.Fatalf("Encode(%d): %v", tg.Size, err)
		}
		img, err := pngenc.Decode(data)
		if err != nil {
			t.Fatalf("Decode(%d): %v", tg.Size, err)
		}
		if img.Width != tg.Size || string(img.Pix) != string(pix) {
			t.Errorf("size %d: decoded image differs from rendered pixels", tg.Size)
		}
	}
}

// The built-in broom reproduces the hand-drawn generator it replaces; these
// digests cover the straight-alpha RGBA bytes of each target, so any drift in
// the rasterizers, the oversampling policy or quantization shows up here.
func TestBroom_GoldenPixels(t *testing.T) {
	want := map[int]string{
		16:  "3df19598bfb6d47ca593694fc22c39e1304e554185aeccba24da31918f90475e",
		48:  "e794a72caf4f865cb7cdea839d77beeac8e202d8fe2f3d556b89cf5910a06d5c",
		128: "57f78b14312a5c9f1dfb59f347ce8ec00a602e3813d9e635d1ac6c5bf9bcab09",
	}
	doc := loadBroom(t)
	if len(doc.Targets) != len(want) {
		t.Fatalf("broom has %d targets, want %d", len(doc.Targets), len(want))
	}
	for _, tg := range doc.Targets {
		cmds, err := doc.Commands(tg.Size)
		if err != nil {
			t.Fatal(err)
		}
		sum := sha256.Sum256(render.Render(tg.Size, cmds))
		if got := hex.EncodeToString(sum[:]); got != want[tg.Size] {
			t.Errorf("size %d: pixel digest = %s, want %s", tg.Size, got, want[tg.Size])
		}
	}
}

// ///////////////////////////////////////////////
// Resolve
// ///////////////////////////////////////////////

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(tinyTOML), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolve_Glob(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.yaml", "a.toml", "notes.txt", "sub/c.json")

	got, err := Resolve([]string{filepath.Join(dir, "**", "*")}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Source{
		{Path: filepath.Join(dir, "a.toml")},
		{Path: filepath.Join(dir, "b.yaml")},
		{Path: filepath.Join(dir, "sub", "c.json")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestResolve_SkipAndDedupe(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.toml", "b.toml")

	skip := func(p string) bool { return filepath.Base(p) == "b.toml" }
	got, err := Resolve([]string{
		filepath.Join(dir, "a.toml"),
		filepath.Join(dir, "*.toml"),
		"builtin:broom",
		"https://example.com/x.yaml",
		"builtin:broom",
	}, skip)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Source{
		{Path: filepath.Join(dir, "a.toml")},
		{Builtin: "broom"},
		{URL: "https://example.com/x.yaml"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestResolve_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "notes.txt")

	if _, err := Resolve([]string{filepath.Join(dir, "*")}, nil); err == nil {
		t.Error("glob matching no design files succeeded, want error")
	}
	if _, err := Resolve([]string{"builtin:nope"}, nil); err == nil {
		t.Error("unknown builtin succeeded, want error")
	}
}

func TestSource_String(t *testing.T) {
	tests := []struct {
		src  Source
		want string
	}{
		{Source{Path: "a.toml"}, "a.toml"},
		{Source{URL: "https://x/y.json"}, "https://x/y.json"},
		{Source{Builtin: "broom"}, "builtin:broom"},
	}
	for _, tt := range tests {
		if got := tt.src.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestLoadSource_Path(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "tiny.toml")
	path := filepath.Join(dir, "tiny.toml")

	doc, err := LoadSource(context.Background(), Source{Path: path}, nil)
	if err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if doc.Name != "tiny" || doc.Source != path {
		t.Errorf("doc = %q from %q, want tiny from %q", doc.Name, doc.Source, path)
	}

	if _, err := LoadSource(context.Background(), Source{Path: filepath.Join(dir, "missing.toml")}, nil); err == nil {
		t.Error("LoadSource(missing) succeeded, want error")
	}
}

// ///////////////////////////////////////////////
// Fetch
// ///////////////////////////////////////////////

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f := NewFetcher(t.TempDir(), 5*time.Second)
	f.client.RetryWaitMin = time.Millisecond
	f.client.RetryWaitMax = time.Millisecond
	return f
}

func TestFetch_CachesAndFallsBack(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(tinyYAML))
	}))
	defer srv.Close()

	f := testFetcher(t)
	url := srv.URL + "/designs/tiny.yaml"

	data, format, err := f.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if format != FormatYAML || string(data) != tinyYAML {
		t.Fatalf("Fetch = %q (%s), want the served YAML", data, format)
	}
	if _, _, err := f.Cached(url); err == nil {
		t.Error("Fetch cached an unparsed download")
	}

	doc, err := LoadSource(context.Background(), Source{URL: url}, f)
	if err != nil || doc.Name != "tiny" {
		t.Fatalf("LoadSource = %v, %v, want the tiny design", doc, err)
	}

	failing.Store(true)
	data, format, err = f.Fetch(context.Background(), url)
	if err == nil {
		t.Error("Fetch from cache returned nil error, want fallback warning")
	}
	if format != FormatYAML || string(data) != tinyYAML {
		t.Errorf("cached Fetch = %q (%s), want the cached YAML", data, format)
	}

	doc, err = LoadSource(context.Background(), Source{URL: url}, f)
	if doc == nil || doc.Name != "tiny" {
		t.Errorf("LoadSource from cache = %v, %v, want the tiny design", doc, err)
	}
	if err == nil {
		t.Error("LoadSource from cache returned nil error, want fallback warning")
	}
}

func TestLoadSource_InvalidDownloadKeepsLastGoodCopy(t *testing.T) {
	const broken = "version: 1\nname: broken\n"
	var state atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch state.Load() {
		case 0:
			w.Write([]byte(tinyYAML))
		case 1:
			w.Write([]byte(broken))
		default:
			http.Error(w, "down", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := testFetcher(t)
	url := srv.URL + "/designs/tiny.yaml"
	src := Source{URL: url}

	if doc, err := LoadSource(context.Background(), src, f); err != nil || doc.Name != "tiny" {
		t.Fatalf("LoadSource(good) = %v, %v", doc, err)
	}

	state.Store(1)
	doc, err := LoadSource(context.Background(), src, f)
	if doc == nil || doc.Name != "tiny" {
		t.Fatalf("LoadSource(malformed) = %v, %v, want the cached tiny design", doc, err)
	}
	if err == nil {
		t.Error("LoadSource(malformed) returned nil error, want a fallback warning")
	}
	if cached, _, err := f.Cached(url); err != nil || string(cached) != tinyYAML {
		t.Errorf("cache = %q, %v after a malformed download, want the last good copy", cached, err)
	}

	state.Store(2)
	doc, err = LoadSource(context.Background(), src, f)
	if doc == nil || doc.Name != "tiny" {
		t.Fatalf("LoadSource(server error) = %v, %v, want the cached tiny design", doc, err)
	}
	if err == nil {
		t.Error("LoadSource(server error) returned nil error, want a fallback warning")
	}
}

func TestLoadSource_InvalidDownloadWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("version: 1\nname: broken\n"))
	}))
	defer srv.Close()

	doc, err := LoadSource(context.Background(), Source{URL: srv.URL + "/x.yaml"}, testFetcher(t))
	if doc != nil || !errors.Is(err, ErrSchema) {
		t.Errorf("LoadSource = %v, %v, want nil and an ErrSchema error", doc, err)
	}
}

func TestFetch_NoCache(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	data, _, err := testFetcher(t).Fetch(context.Background(), srv.URL+"/x.toml")
	if err == nil || data != nil {
		t.Errorf("Fetch = %q, %v, want nil data and an error", data, err)
	}
}

func TestFetch_ErrorNamesRequestOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := testFetcher(t).Fetch(context.Background(), srv.URL+"/x.toml")
	if err == nil {
		t.Fatal("Fetch succeeded against a failing server")
	}
	if n := strings.Count(err.Error(), "GET "); n != 1 {
		t.Errorf("error mentions the request %d times, want 1: %v", n, err)
	}
}

func TestFetch_ContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tinyJSON))
	}))
	defer srv.Close()

	_, format, err := testFetcher(t).Fetch(context.Background(), srv.URL+"/design")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if format != FormatJSON {
		t.Errorf("format = %q, want json", format)
	}
}

func TestFetch_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, maxDesignBytes+1))
	}))
	defer srv.Close()

	if _, _, err := testFetcher(t).Fetch(context.Background(), srv.URL+"/big.json"); err == nil {
		t.Error("Fetch of oversized response succeeded, want error")
	}
}
