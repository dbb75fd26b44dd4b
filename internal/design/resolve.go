package design

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/iconsmith"
	"tools.zach/dev/iconsmith/internal/paths"
)

// Source is one resolved design source. Exactly one field is set.
type Source struct {
	Path    string
	URL     string
	Builtin string
}

func (s Source) String() string {
	switch {
	case s.URL != "":
		return s.URL
	case s.Builtin != "":
		return paths.BuiltinScheme + s.Builtin
	default:
		return s.Path
	}
}

// IsRemote reports whether s is fetched over HTTP.
func (s Source) IsRemote() bool { return s.URL != "" }

// Resolve expands source patterns into individual sources. Glob patterns
// (doublestar syntax, ** allowed) expand to the sorted design files they
// match; a glob matching no design file is an error. Local paths for which
// skip returns true are dropped. Duplicates keep their first position.
func Resolve(patterns []string, skip func(path string) bool) ([]Source, error) {
	var out []Source
	seen := make(map[Source]bool)
	add := func(s Source) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, p := range patterns {
		switch {
		case strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://"):
			add(Source{URL: p})

		case strings.HasPrefix(p, paths.BuiltinScheme):
			name := strings.TrimPrefix(p, paths.BuiltinScheme)
			if _, ok := iconsmith.BuiltinDesign(name); !ok {
				return nil, fmt.Errorf("unknown builtin design %q (available: %s)",
					name, strings.Join(iconsmith.BuiltinDesigns(), ", "))
			}
			add(Source{Builtin: name})

		case hasMeta(p):
			matches, err := doublestar.FilepathGlob(p)
			if err != nil {
				return nil, fmt.Errorf("glob %q: %w", p, err)
			}
			slices.Sort(matches)
			n := 0
			for _, m := range matches {
				if _, err := FormatFromName(m); err != nil {
					continue
				}
				n++
				if skip != nil && skip(m) {
					slog.Debug("design excluded", "path", m)
					continue
				}
				add(Source{Path: filepath.Clean(m)})
			}
			if n == 0 {
				return nil, fmt.Errorf("pattern %q matched no design files", p)
			}

		default:
			if skip != nil && skip(p) {
				slog.Debug("design excluded", "path", p)
				continue
			}
			add(Source{Path: filepath.Clean(p)})
		}
	}
	return out, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(filepath.ToSlash(p), "*?[{")
}

// LoadSource loads the design behind src. Remote sources go through fetcher.
//
// Like [Fetcher.Fetch], a remote source served from the cache yields both a
// document and a non-nil error.
func LoadSource(ctx context.Context, src Source, fetcher *Fetcher) (*Document, error) {
	switch {
	case src.Builtin != "":
		data, ok := iconsmith.BuiltinDesign(src.Builtin)
		if !ok {
			return nil, fmt.Errorf("unknown builtin design %q", src.Builtin)
		}
		doc, err := Parse(data, FormatTOML)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		doc.Source = src.String()
		return doc, nil

	case src.URL != "":
		if fetcher == nil {
			return nil, fmt.Errorf("%s: remote designs need a fetcher", src)
		}
		data, format, fetchErr := fetcher.Fetch(ctx, src.URL)
		if data == nil {
			return nil, fetchErr
		}
		doc, err := Parse(data, format)
		if err != nil && fetchErr == nil {
			// A fresh but broken download falls back to the last good copy.
			cached, cachedFormat, cacheErr := fetcher.Cached(src.URL)
			if cacheErr != nil {
				return nil, fmt.Errorf("%s: %w", src, err)
			}
			fetchErr = fmt.Errorf("using cached design: downloaded copy is invalid: %w", err)
			doc, err = Parse(cached, cachedFormat)
		} else if err == nil && fetchErr == nil {
			if storeErr := fetcher.Store(src.URL, data, format); storeErr != nil {
				slog.Warn("failed to write design cache", "url", src.URL, "error", storeErr)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		doc.Source = src.String()
		return doc, fetchErr

	default:
		return Load(src.Path)
	}
}
