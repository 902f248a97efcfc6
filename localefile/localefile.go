// Package localefile implements reading and writing of locale files.
//
// A locale file is a nested key/value document in JSON or YAML:
//
//	{
//	    "greeting": "Hello {{name}}",
//	    "nav": { "home": "Home", "about": "About" }
//	}
//
// Leaf values are usually strings, but numbers, booleans, null and
// arrays are tolerated and passed through untouched. A YAML document
// whose root is not a mapping (plain text, a list) is not
// tree-decomposable; it is carried as an opaque string and translated
// whole-file.
package localefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the serialization of a locale file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// SupportedExtensions lists the file extensions discovery accepts.
var SupportedExtensions = []string{".json", ".yaml", ".yml"}

// DetectFormat maps a file path to its Format by extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported locale file extension: %s", filepath.Ext(path))
	}
}

// Supported reports whether the path has a supported extension.
func Supported(path string) bool {
	_, err := DetectFormat(path)
	return err == nil
}

// File represents a parsed locale file.
type File struct {
	// Path the file was read from.
	Path string
	// Format of the file on disk.
	Format Format
	// Tree holds the parsed content when the file is tree-decomposable.
	Tree map[string]any
	// Raw holds the original text for non-tree YAML documents.
	Raw string
}

// IsTree reports whether the file decomposes into a key/value tree.
// JSON files always do (a non-object root is a parse error); YAML files
// do only when the document root is a mapping.
func (f *File) IsTree() bool {
	return f.Tree != nil
}

// ParseFile reads and parses a locale file, detecting the format from
// the file extension.
func ParseFile(path string) (*File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse parses locale file data in the given format.
func Parse(data []byte, format Format) (*File, error) {
	f := &File{Format: format}

	switch format {
	case FormatJSON:
		var tree map[string]any
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		f.Tree = tree

	case FormatYAML:
		var root any
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		if tree, ok := root.(map[string]any); ok {
			f.Tree = tree
		} else {
			// Plain YAML text: opaque, translated whole-file.
			f.Raw = string(data)
		}

	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	return f, nil
}

// Marshal serializes a tree in the given format. JSON uses 2-space
// indentation with sorted keys; YAML uses yaml.v3 defaults. Both end
// with a trailing newline so files diff cleanly.
func Marshal(tree map[string]any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(tree); err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return buf.Bytes(), nil

	case FormatYAML:
		data, err := yaml.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// WriteFile serializes the tree and writes it to path, creating parent
// directories as needed.
func WriteFile(path string, tree map[string]any, format Format) error {
	data, err := Marshal(tree, format)
	if err != nil {
		return err
	}
	return writeRaw(path, data)
}

// WriteRaw writes opaque (non-tree) content to path, creating parent
// directories as needed.
func WriteRaw(path, content string) error {
	return writeRaw(path, []byte(content))
}

func writeRaw(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
