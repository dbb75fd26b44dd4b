// Package paths centralizes file and directory names used across the project.
// Output, cache and preview names are defined here as the single source of
// truth.
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Default file and directory names, relative to the config file.
const (
	ConfigFile = "iconsmith.toml"
	OutputDir  = "icons"
	CacheDir   = ".iconsmith-cache"
	PreviewDir = "preview"
)

// BuiltinScheme prefixes design sources that name an embedded design.
const BuiltinScheme = "builtin:"

// BinaryName is the name of the command-line tool.
const BinaryName = "iconsmith"

// ///////////////////////////////////////////////
// Output Names
// ///////////////////////////////////////////////

// IconFile returns the default file name for a rendered icon of the given
// size. For example, IconFile(16) returns "icon16.png".
func IconFile(size int) string {
	return fmt.Sprintf("icon%d.png", size)
}

// PreviewFile returns the file name of an enlarged preview for the icon
// named name. For example, PreviewFile("icon16.png", 8) returns
// "icon16@8x.png".
func PreviewFile(name string, scale int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s@%dx%s", strings.TrimSuffix(name, ext), scale, ext)
}

// DesignCacheFile returns the cache file name for a remote design URL: the
// first 16 hex digits of the URL's SHA-256 followed by ext.
func DesignCacheFile(url, ext string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8]) + ext
}
