// Package main implements the iconsmith command, which renders icon design
// documents into anti-aliased PNG icons and, with -watch, keeps them up to
// date as the designs change.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	rootpkg "tools.zach/dev/iconsmith"
	"tools.zach/dev/iconsmith/internal/atomicfile"
	"tools.zach/dev/iconsmith/internal/config"
	"tools.zach/dev/iconsmith/internal/design"
	"tools.zach/dev/iconsmith/internal/forge"
	"tools.zach/dev/iconsmith/internal/logger"
	"tools.zach/dev/iconsmith/internal/paths"
	"tools.zach/dev/iconsmith/internal/watch"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags (-X main.version=...). When unset,
// resolveVersion falls back to the VCS info embedded by the Go toolchain.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the embedded VCS revision and dirty
// state produce a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// options holds the command-line flags that survive past startup.
type options struct {
	configPath string
	designs    string // comma-separated, overrides design.sources
	out        string // overrides output.dir
	logLevel   string // overrides log.level
	watch      bool
	verify     bool
}

// loadConfig loads the config file and applies flag overrides. Paths given
// on the command line are relative to the working directory.
func (o options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, o); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, o options) error {
	if o.designs != "" {
		var sources []string
		for _, s := range strings.Split(o.designs, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if config.IsLocalSource(s) {
				abs, err := filepath.Abs(s)
				if err != nil {
					return fmt.Errorf("resolve -design %s: %w", s, err)
				}
				s = abs
			}
			sources = append(sources, s)
		}
		cfg.Design.Sources = sources
	}

	if o.out != "" {
		abs, err := filepath.Abs(o.out)
		if err != nil {
			return fmt.Errorf("resolve -out: %w", err)
		}
		// Previews that lived under the old output directory move with it.
		if rel, err := filepath.Rel(cfg.Output.Dir, cfg.Output.PreviewDir); err == nil && !strings.HasPrefix(rel, "..") {
			cfg.Output.PreviewDir = filepath.Join(abs, rel)
		}
		cfg.Output.Dir = abs
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}
	return nil
}

// writeDefaultConfig writes the embedded default config to path. An
// existing file is never overwritten.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	return atomicfile.Write(path, rootpkg.DefaultConfigTOML, 0o644)
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", paths.ConfigFile, "Path to the config file")
	flag.StringVar(&o.designs, "design", "", "Comma-separated design sources (overrides design.sources)")
	flag.StringVar(&o.out, "out", "", "Output directory (overrides output.dir)")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides log.level)")
	flag.BoolVar(&o.watch, "watch", false, "Rebuild whenever a design file or the config changes")
	flag.BoolVar(&o.verify, "verify", false, "Decode every encoded icon and compare it with the rendered pixels")
	initFlag := flag.Bool("init", false, "Write a default config file to -config and exit")
	versionFlag := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(paths.BinaryName, resolveVersion())
		return
	}

	if *initFlag {
		if err := writeDefaultConfig(o.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: init: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", o.configPath)
		return
	}

	cfg, err := o.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Log.Level))
	log, logCloser, err := logger.New(logger.Options{
		Level:     level,
		Console:   os.Stderr,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("iconsmith starting", "version", resolveVersion(), "config", o.configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-signalChannel()
		slog.Info("received shutdown signal")
		cancel()
	}()

	sources, err := build(ctx, cfg, o.verify)
	if err != nil {
		slog.Error("build failed", "error", err)
		if !o.watch {
			logCloser.Close()
			os.Exit(1)
		}
	}
	if !o.watch {
		return
	}

	if err := watchLoop(ctx, o, cfg, sources, level); err != nil {
		slog.Error("watch failed", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// ///////////////////////////////////////////////
// Build
// ///////////////////////////////////////////////

// build resolves, loads and renders every configured design. It returns the
// resolved sources even when a later step fails, so watch mode knows which
// files to observe.
func build(ctx context.Context, cfg *config.Config, verify bool) ([]design.Source, error) {
	start := time.Now()

	sources, err := design.Resolve(cfg.Design.Sources, cfg.IsExcluded)
	if err != nil {
		return nil, fmt.Errorf("resolve designs: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("every design source is excluded")
	}

	fetcher := design.NewFetcher(cfg.Design.CacheDir, cfg.FetchTimeout())
	docs, err := forge.LoadDesigns(ctx, sources, fetcher)
	if err != nil {
		return sources, err
	}

	opts := forge.OptionsFromConfig(cfg)
	opts.Verify = verify
	report, err := forge.Build(ctx, opts, docs)
	if err != nil {
		return sources, err
	}

	slog.Info("build complete",
		"designs", len(docs),
		"icons", report.Icons,
		"files", len(report.Files),
		"bytes", report.Bytes,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return sources, nil
}

// ///////////////////////////////////////////////
// Watch Loop
// ///////////////////////////////////////////////

// watchedFiles lists the local design files and the config file.
func watchedFiles(sources []design.Source, configPath string) []string {
	files := []string{configPath}
	for _, s := range sources {
		if s.Path != "" {
			files = append(files, s.Path)
		}
	}
	return files
}

// watchLoop rebuilds after every burst of changes to the watched files,
// once the debounce delay has passed without further changes. The config is
// reloaded on each rebuild; a config that fails to load keeps the previous
// one in effect. Returns nil when ctx is cancelled.
func watchLoop(ctx context.Context, o options, cfg *config.Config, sources []design.Source, level *slog.LevelVar) error {
	files := watchedFiles(sources, o.configPath)
	w, err := watch.New(files, cfg.PollInterval())
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { w.Close() }()
	if w.Polling() {
		slog.Info("using polling mode for file watching", "interval", cfg.PollInterval())
	}
	slog.Info("watching for changes", "files", len(w.Files()))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.Events():
			logger.Trace(slog.Default(), "change detected")
			timer.Reset(cfg.Debounce())

		case <-timer.C:
			if next, err := o.loadConfig(); err != nil {
				slog.Error("config reload failed, keeping previous config", "error", err)
			} else {
				cfg = next
				level.Set(logger.ParseLevel(cfg.Log.Level))
			}

			resolved, err := build(ctx, cfg, o.verify)
			if err != nil {
				slog.Error("rebuild failed", "error", err)
			}
			if resolved == nil {
				continue
			}

			next := watchedFiles(resolved, o.configPath)
			if sameFiles(next, files) {
				continue
			}
			nw, err := watch.New(next, cfg.PollInterval())
			if err != nil {
				slog.Error("failed to update watched files", "error", err)
				continue
			}
			w.Close()
			w, files = nw, next
			slog.Info("watched files changed", "files", len(w.Files()))
		}
	}
}

// sameFiles reports whether a and b name the same set of files.
func sameFiles(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}
