package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "output.preview_scale")
// to their [FieldDoc] entries. Section paths document the section header.
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// Render
	"render": {
		Comment: "Icons are drawn on a canvas oversampled by a per-size factor and\nbox-filtered down. Small sizes need more samples for clean diagonals.",
	},
	"render.default_factor": {
		Comment: "Factor for sizes larger than every tier below.",
	},
	"render.oversample": {
		Comment: "Size tiers: the tightest tier whose max_size covers an icon picks its factor.",
	},

	// Design
	"design.sources": {
		Comment: "Design documents to render. Entries may be files, globs (** allowed),\nhttp(s) URLs, or builtin:<name>. TOML, YAML and JSON are accepted.",
		Alternatives: []string{
			`sources = ["designs/*.toml", "https://example.com/brand/icon.yaml"]`,
		},
	},
	"design.exclude": {
		Comment: "Glob patterns for design files to skip.",
		Alternatives: []string{
			`exclude = ["designs/**/draft-*"]`,
		},
	},
	"design.cache_dir": {
		Comment: "Last good copy of every remote design, used when a fetch fails.",
	},
	"design.fetch_timeout_seconds": {
		Comment: "Timeout for each HTTP attempt (two retries follow a failure).",
	},

	// Output
	"output.dir": {
		Comment: "Rendered PNGs land here, named by each design's targets.",
	},
	"output.bundle": {
		Comment: "Also write every PNG into one zip archive.",
		Alternatives: []string{
			`bundle = "icons.zip"`,
		},
	},
	"output.bundle_password": {
		Comment: "Encrypt bundle entries with AES using this password.",
		Alternatives: []string{
			`bundle_password = "correct horse battery staple"`,
		},
	},
	"output.ico": {
		Comment: "Also write a Windows .ico holding every size up to 256.",
		Alternatives: []string{
			`ico = "favicon.ico"`,
		},
	},
	"output.preview_scale": {
		Comment: "Write nearest-neighbor enlargements for pixel inspection (0 = off).",
		Alternatives: []string{
			"preview_scale = 8",
		},
	},
	"output.preview_dir": {
		Comment: "Preview directory, relative to output.dir unless absolute.",
	},

	// Watch
	"watch.poll_interval_seconds": {
		Comment: "Polling interval used when file notifications are unavailable.",
	},
	"watch.debounce_millis": {
		Comment: "Quiet period after the last change before rebuilding.",
	},

	// Log
	"log.level": {
		Comment: "trace, debug, info, warn, or error",
	},
	"log.file": {
		Comment: "Also log to a rotating file.",
		Alternatives: []string{
			`file = "iconsmith.log"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log file at this size.",
	},
}
