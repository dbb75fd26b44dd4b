// Package iconsmith provides embedded assets for the iconsmith tool.
//
// The root package exists solely to embed [config.default.toml] and the
// built-in design documents under designs/. The config package and the
// -init flag use [DefaultConfigTOML]; the design loader resolves
// builtin:<name> sources through [BuiltinDesigns].
package iconsmith

import (
	"embed"
	"io/fs"
	"path"
	"strings"
)

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time. cmd/iconsmith writes it out when run with -init.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte

//go:embed designs/*.toml
var designFS embed.FS

// BuiltinDesign returns the embedded design document called name (the file
// name under designs/ without its extension).
func BuiltinDesign(name string) ([]byte, bool) {
	data, err := designFS.ReadFile(path.Join("designs", name+".toml"))
	if err != nil {
		return nil, false
	}
	return data, true
}

// BuiltinDesigns lists the names of all embedded designs, sorted.
func BuiltinDesigns() []string {
	entries, err := fs.ReadDir(designFS, "designs")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	return names
}
