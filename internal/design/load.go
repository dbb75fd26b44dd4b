package design

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchema is returned (wrapped) when a document violates the design schema.
var ErrSchema = errors.New("design does not match schema")

// ErrUnknownFormat is returned (wrapped) for documents whose format cannot be
// determined from their name or content type.
var ErrUnknownFormat = errors.New("unknown design format")

// Format is a design document encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Ext returns the canonical file extension for f, including the dot.
func (f Format) Ext() string { return "." + string(f) }

// FormatFromName picks a format from a file name or URL path extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromContentType picks a format from an HTTP Content-Type header.
func FormatFromContentType(ct string) (Format, error) {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON, nil
	case strings.Contains(ct, "yaml"):
		return FormatYAML, nil
	case strings.Contains(ct, "toml"):
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: content type %q", ErrUnknownFormat, ct)
}

// ///////////////////////////////////////////////
// Schema
// ///////////////////////////////////////////////

//go:embed schema.json
var schemaJSON []byte

var (
	schema     *gojsonschema.Schema
	schemaErr  error
	schemaOnce sync.Once
)

func getSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// SchemaJSON returns the embedded JSON schema that every design must match.
func SchemaJSON() []byte { return schemaJSON }

// ///////////////////////////////////////////////
// Parsing
// ///////////////////////////////////////////////

// Parse decodes a design document. The raw document is first normalized to
// JSON and validated against the schema, so TOML, YAML and JSON documents
// are held to the same rules. Every schema violation is reported in one
// error wrapping [ErrSchema].
func Parse(data []byte, f Format) (*Document, error) {
	var raw map[string]any
	var err error
	switch f {
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s design: %w", f, err)
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s design: %w", f, err)
	}

	s, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("compile design schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(normalized))
	if err != nil {
		return nil, fmt.Errorf("validate design: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}

	var doc Document
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("decode design: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid design %q: %w", doc.Name, err)
	}
	return &doc, nil
}

// Load reads and parses the design file at path. The format follows the
// file extension.
func Load(path string) (*Document, error) {
	f, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read design file: %w", err)
	}
	doc, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}
