// Package config provides configuration loading and defaults for iconsmith.
//
// Configuration is loaded from a TOML file (iconsmith.toml by default). It
// selects which design documents are rendered, how they are oversampled,
// where outputs land, and how watch mode and logging behave.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/iconsmith/internal/atomicfile"
	"tools.zach/dev/iconsmith/internal/paths"
	"tools.zach/dev/iconsmith/internal/render"
)

// CurrentVersion is the config schema version this build reads and writes.
const CurrentVersion = 1

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level configuration.
type Config struct {
	// Version is the config schema version.
	Version int `toml:"version"`
	// Render holds oversampling settings.
	Render RenderConfig `toml:"render"`
	// Design holds design source settings.
	Design DesignConfig `toml:"design"`
	// Output holds output location and packaging settings.
	Output OutputConfig `toml:"output"`
	// Watch holds watch mode settings.
	Watch WatchConfig `toml:"watch"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// RenderConfig holds oversampling settings.
type RenderConfig struct {
	// DefaultFactor is the oversampling factor for sizes above every tier.
	DefaultFactor int `toml:"default_factor"`
	// Oversample lists size tiers; the tightest tier covering a size wins.
	Oversample []OversampleTier `toml:"oversample"`
}

// OversampleTier maps output sizes up to MaxSize to a factor.
type OversampleTier struct {
	// MaxSize is the largest output size (in pixels) this tier covers.
	MaxSize int `toml:"max_size"`
	// Factor is the oversampling factor per axis.
	Factor int `toml:"factor"`
}

// DesignConfig holds design source settings.
type DesignConfig struct {
	// Sources lists design files, glob patterns, http(s) URLs, or
	// builtin:<name> references.
	Sources []string `toml:"sources"`
	// Exclude lists glob patterns for design files to skip.
	Exclude []string `toml:"exclude"`
	// CacheDir stores the last good copy of every remote design.
	CacheDir string `toml:"cache_dir"`
	// FetchTimeoutSeconds bounds each HTTP attempt for remote designs.
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
}

// OutputConfig holds output location and packaging settings.
type OutputConfig struct {
	// Dir receives the rendered PNG files.
	Dir string `toml:"dir"`
	// Bundle, when set, names a zip archive of every rendered PNG.
	Bundle string `toml:"bundle,omitempty"`
	// BundlePassword, when set, AES-encrypts every bundle entry.
	BundlePassword string `toml:"bundle_password,omitempty"`
	// ICO, when set, names a Windows icon file combining all sizes up to 256.
	ICO string `toml:"ico,omitempty"`
	// PreviewScale enlarges every icon by this factor into PreviewDir (0 = off).
	PreviewScale int `toml:"preview_scale"`
	// PreviewDir receives enlarged previews. Relative to Dir when not absolute.
	PreviewDir string `toml:"preview_dir"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	// PollIntervalSeconds is the fallback polling interval when file
	// notifications are unavailable.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// DebounceMillis coalesces bursts of changes into one rebuild.
	DebounceMillis int `toml:"debounce_millis"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// File, when set, also writes logs to a rotating file.
	File string `toml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	p := render.DefaultPolicy()
	tiers := make([]OversampleTier, len(p.Tiers))
	for i, t := range p.Tiers {
		tiers[i] = OversampleTier{MaxSize: t.MaxSize, Factor: t.Factor}
	}
	return &Config{
		Version: CurrentVersion,
		Render: RenderConfig{
			DefaultFactor: p.Default,
			Oversample:    tiers,
		},
		Design: DesignConfig{
			Sources:             []string{"builtin:broom"},
			Exclude:             []string{},
			CacheDir:            paths.CacheDir,
			FetchTimeoutSeconds: 10,
		},
		Output: OutputConfig{
			Dir:          paths.OutputDir,
			PreviewScale: 0,
			PreviewDir:   paths.PreviewDir,
		},
		Watch: WatchConfig{
			PollIntervalSeconds: 2,
			DebounceMillis:      200,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
// For this project all defaults are good examples.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file at path. If the file doesn't
// exist, returns DefaultConfig. Either way, relative paths are anchored at
// the directory containing path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.ResolvePaths(filepath.Dir(path))
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if v := PeekVersion(data); v > CurrentVersion {
		return nil, fmt.Errorf("config version %d is newer than supported version %d", v, CurrentVersion)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.ResolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ResolvePaths anchors every relative filesystem path in c at base. URLs and
// builtin references are left alone. Exclude patterns are anchored the same
// way so they match resolved sources.
func (c *Config) ResolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	for i, s := range c.Design.Sources {
		if !IsLocalSource(s) {
			continue
		}
		c.Design.Sources[i] = abs(s)
	}
	for i, p := range c.Design.Exclude {
		c.Design.Exclude[i] = abs(p)
	}
	c.Design.CacheDir = abs(c.Design.CacheDir)
	c.Output.Dir = abs(c.Output.Dir)
	c.Output.Bundle = abs(c.Output.Bundle)
	c.Output.ICO = abs(c.Output.ICO)
	if c.Output.PreviewDir != "" && !filepath.IsAbs(c.Output.PreviewDir) {
		c.Output.PreviewDir = filepath.Join(c.Output.Dir, c.Output.PreviewDir)
	}
	c.Log.File = abs(c.Log.File)
}

// IsLocalSource reports whether a design source names the filesystem rather
// than a URL or a builtin design.
func IsLocalSource(s string) bool {
	return !strings.HasPrefix(s, "http://") &&
		!strings.HasPrefix(s, "https://") &&
		!strings.HasPrefix(s, paths.BuiltinScheme)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid render settings: %w", err)
	}

	if len(c.Design.Sources) == 0 {
		return fmt.Errorf("design.sources must list at least one design")
	}
	for _, p := range c.Design.Exclude {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return fmt.Errorf("invalid design.exclude pattern %q", p)
		}
	}
	if c.Design.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch_timeout_seconds must be > 0, got %d", c.Design.FetchTimeoutSeconds)
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if c.Output.PreviewScale < 0 || c.Output.PreviewScale > 64 {
		return fmt.Errorf("preview_scale must be between 0 and 64, got %d", c.Output.PreviewScale)
	}
	if c.Output.BundlePassword != "" && c.Output.Bundle == "" {
		return fmt.Errorf("bundle_password is set but output.bundle is empty")
	}

	if c.Watch.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be > 0, got %d", c.Watch.PollIntervalSeconds)
	}
	if c.Watch.DebounceMillis < 0 {
		return fmt.Errorf("debounce_millis must be >= 0, got %d", c.Watch.DebounceMillis)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}

// ///////////////////////////////////////////////
// Derived Settings
// ///////////////////////////////////////////////

// Policy converts the render section into an oversampling policy.
func (c *Config) Policy() render.Policy {
	p := render.Policy{Default: c.Render.DefaultFactor}
	for _, t := range c.Render.Oversample {
		p.Tiers = append(p.Tiers, render.Tier{MaxSize: t.MaxSize, Factor: t.Factor})
	}
	return p
}

// PollInterval returns the watch polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalSeconds) * time.Second
}

// Debounce returns the watch debounce delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

// FetchTimeout returns the per-attempt timeout for remote designs.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Design.FetchTimeoutSeconds) * time.Second
}

// IsExcluded reports whether path matches any of the configured exclude
// patterns.
func (c *Config) IsExcluded(path string) bool {
	for _, pattern := range c.Design.Exclude {
		matched, err := doublestar.Match(filepath.ToSlash(pattern), filepath.ToSlash(path))
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
