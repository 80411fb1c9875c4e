package pricing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies a pricing file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the file format from its extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported pricing file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Load reads and validates a pricing file.
func Load(path string, opts LoadOptions) (*Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	table, err := Parse(data, format, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing file %s: %w", path, err)
	}
	return table, nil
}

// Parse decodes and validates pricing data in the given format.
// Unknown fields are rejected so typos surface at load time.
func Parse(data []byte, format Format, opts LoadOptions) (*Table, error) {
	var doc document

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown pricing fields: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported pricing format %q", format)
	}

	providers, missing := doc.providers()
	return newTable(providers, opts, missing)
}

// Marshal encodes the table in the given format. The output round-trips
// through Parse.
func (t *Table) Marshal(format Format) ([]byte, error) {
	doc := newDocument(t.providers)

	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode TOML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported pricing format %q", format)
	}
}
