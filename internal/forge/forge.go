// Package forge runs one icon build: every design is compiled at each of its
// target sizes, rendered, encoded and written to the output directory as a
// single all-or-nothing file set. Optional extras (previews, a zip bundle
// and a Windows icon) are written after the icons.
package forge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tools.zach/dev/iconsmith/internal/atomicfile"
	"tools.zach/dev/iconsmith/internal/bundle"
	"tools.zach/dev/iconsmith/internal/config"
	"tools.zach/dev/iconsmith/internal/design"
	"tools.zach/dev/iconsmith/internal/paths"
	"tools.zach/dev/iconsmith/internal/pngenc"
	"tools.zach/dev/iconsmith/internal/preview"
	"tools.zach/dev/iconsmith/internal/render"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Options controls a build.
type Options struct {
	// OutputDir receives the icons.
	OutputDir string
	// Policy picks the oversampling factor per size.
	Policy render.Policy
	// Bundle, when set, is the path of a zip archive of all icons.
	Bundle string
	// BundlePassword encrypts the bundle entries when set.
	BundlePassword string
	// ICO, when set, is the path of a Windows icon holding sizes up to 256.
	ICO string
	// PreviewScale enables enlarged previews in PreviewDir when positive.
	PreviewScale int
	// PreviewDir receives previews.
	PreviewDir string
	// Verify decodes every encoded icon and compares it with the rendered
	// pixels before anything is written.
	Verify bool
}

// OptionsFromConfig builds Options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputDir:      cfg.Output.Dir,
		Policy:         cfg.Policy(),
		Bundle:         cfg.Output.Bundle,
		BundlePassword: cfg.Output.BundlePassword,
		ICO:            cfg.Output.ICO,
		PreviewScale:   cfg.Output.PreviewScale,
		PreviewDir:     cfg.Output.PreviewDir,
	}
}

// Icon is one rendered target.
type Icon struct {
	Design string // document source
	Name   string // output file name
	Size   int
	Factor int
	Pix    []byte // straight-alpha RGBA, Size×Size
	PNG    []byte
}

// Report summarizes a build.
type Report struct {
	Icons int
	Files []string
	Bytes int64
}

// ///////////////////////////////////////////////
// Rendering
// ///////////////////////////////////////////////

// Render renders every target of doc. The context is checked between
// targets.
func Render(ctx context.Context, doc *design.Document, policy render.Policy) ([]Icon, error) {
	icons := make([]Icon, 0, len(doc.Targets))
	for _, t := range doc.Targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cmds, err := doc.Commands(t.Size)
		if err != nil {
			return nil, fmt.Errorf("compile %s at %d px: %w", doc.Name, t.Size, err)
		}
		factor := policy.Factor(t.Size)
		pix := render.RenderFactor(t.Size, factor, cmds)
		data, err := pngenc.Encode(t.Size, t.Size, pix)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", t.FileName(), err)
		}
		slog.Debug("rendered icon",
			"design", doc.Name, "size", t.Size, "factor", factor, "commands", len(cmds), "bytes", len(data))
		icons = append(icons, Icon{
			Design: doc.Source,
			Name:   t.FileName(),
			Size:   t.Size,
			Factor: factor,
			Pix:    pix,
			PNG:    data,
		})
	}
	return icons, nil
}

// Verify decodes each icon's PNG and checks that it reproduces the rendered
// pixels exactly.
func Verify(icons []Icon) error {
	for _, ic := range icons {
		img, err := pngenc.Decode(ic.PNG)
		if err != nil {
			return fmt.Errorf("verify %s: %w", ic.Name, err)
		}
		if img.Width != ic.Size || img.Height != ic.Size {
			return fmt.Errorf("verify %s: decoded %d×%d, want %d×%d", ic.Name, img.Width, img.Height, ic.Size, ic.Size)
		}
		if string(img.Pix) != string(ic.Pix) {
			return fmt.Errorf("verify %s: decoded pixels differ from rendered pixels", ic.Name)
		}
	}
	return nil
}

// ///////////////////////////////////////////////
// Build
// ///////////////////////////////////////////////

// Build renders docs and writes the results. Two targets claiming the same
// output file name are an error, even across designs. Nothing is written
// unless every icon rendered.
func Build(ctx context.Context, opts Options, docs []*design.Document) (*Report, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no designs to build")
	}

	var icons []Icon
	owner := make(map[string]string)
	for _, doc := range docs {
		rendered, err := Render(ctx, doc, opts.Policy)
		if err != nil {
			return nil, err
		}
		for _, ic := range rendered {
			if prev, ok := owner[ic.Name]; ok {
				return nil, fmt.Errorf("output %s is produced by both %s and %s", ic.Name, prev, ic.Design)
			}
			owner[ic.Name] = ic.Design
		}
		icons = append(icons, rendered...)
	}

	if opts.Verify {
		if err := Verify(icons); err != nil {
			return nil, err
		}
	}

	report := &Report{Icons: len(icons)}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	files := make([]atomicfile.File, 0, len(icons))
	for _, ic := range icons {
		files = append(files, atomicfile.File{Path: filepath.Join(opts.OutputDir, ic.Name), Data: ic.PNG, Perm: 0o644})
	}
	if err := writeSet(report, files, "wrote icon"); err != nil {
		return nil, fmt.Errorf("write icons: %w", err)
	}

	extras, err := extraFiles(opts, icons)
	if err != nil {
		return report, err
	}
	if err := writeSet(report, extras, "wrote file"); err != nil {
		return report, fmt.Errorf("write extras: %w", err)
	}
	return report, nil
}

func writeSet(report *Report, files []atomicfile.File, msg string) error {
	if len(files) == 0 {
		return nil
	}
	if err := atomicfile.WriteSet(files); err != nil {
		return err
	}
	for _, f := range files {
		slog.Info(msg, "path", f.Path, "bytes", len(f.Data))
		report.Files = append(report.Files, f.Path)
		report.Bytes += int64(len(f.Data))
	}
	return nil
}

// extraFiles builds previews, the zip bundle and the ICO, creating the
// directories they land in.
func extraFiles(opts Options, icons []Icon) ([]atomicfile.File, error) {
	var files []atomicfile.File

	if opts.PreviewScale > 0 {
		if err := os.MkdirAll(opts.PreviewDir, 0o755); err != nil {
			return nil, fmt.Errorf("create preview directory: %w", err)
		}
		for _, ic := range icons {
			data, err := preview.Enlarge(ic.Size, ic.Pix, opts.PreviewScale)
			if err != nil {
				return nil, fmt.Errorf("preview %s: %w", ic.Name, err)
			}
			files = append(files, atomicfile.File{
				Path: filepath.Join(opts.PreviewDir, paths.PreviewFile(ic.Name, opts.PreviewScale)),
				Data: data,
				Perm: 0o644,
			})
		}
	}

	if opts.Bundle != "" {
		entries := make([]bundle.Entry, len(icons))
		for i, ic := range icons {
			entries[i] = bundle.Entry{Name: ic.Name, Data: ic.PNG}
		}
		data, err := bundle.Zip(entries, opts.BundlePassword)
		if err != nil {
			return nil, fmt.Errorf("bundle: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(opts.Bundle), 0o755); err != nil {
			return nil, fmt.Errorf("create bundle directory: %w", err)
		}
		files = append(files, atomicfile.File{Path: opts.Bundle, Data: data, Perm: 0o644})
	}

	if opts.ICO != "" {
		images := make([]bundle.Image, len(icons))
		for i, ic := range icons {
			images[i] = bundle.Image{Size: ic.Size, PNG: ic.PNG}
		}
		data, err := bundle.ICO(images)
		if err != nil {
			return nil, fmt.Errorf("ico: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(opts.ICO), 0o755); err != nil {
			return nil, fmt.Errorf("create ico directory: %w", err)
		}
		files = append(files, atomicfile.File{Path: opts.ICO, Data: data, Perm: 0o644})
	}

	return files, nil
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// LoadDesigns loads every source. A remote design served from the cache is
// kept and its fetch failure logged as a warning; any other failure aborts.
func LoadDesigns(ctx context.Context, sources []design.Source, fetcher *design.Fetcher) ([]*design.Document, error) {
	docs := make([]*design.Document, 0, len(sources))
	for _, src := range sources {
		doc, err := design.LoadSource(ctx, src, fetcher)
		if err != nil {
			if doc == nil {
				return nil, fmt.Errorf("load design %s: %w", src, err)
			}
			slog.Warn("using cached design", "source", src.String(), "error", err)
		}
		slog.Debug("loaded design", "name", doc.Name, "source", doc.Source, "targets", len(doc.Targets), "layers", len(doc.Layers))
		docs = append(docs, doc)
	}
	return docs, nil
}
