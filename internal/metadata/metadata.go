// Package metadata loads the photo metadata document and normalizes it
// into a mapping keyed by base filename.
package metadata

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/pkg/errors"
)

// Attributes is the metadata attached to a single image.
type Attributes = map[string]any

// Normalized maps a base filename to its attributes.
type Normalized = map[string]Attributes

// Placeholder returns the attributes shown when an image has no entry.
func Placeholder() Attributes {
	return Attributes{"Note": "No metadata found."}
}

// Normalize converts a decoded JSON document into the canonical shape.
//
// An object has its keys rewritten to base filenames, and non-object values
// are wrapped as {"value": v}. An array contributes every object element
// with a non-empty string "filename", keyed by that file's base name and
// holding the remaining attributes. Any other document yields an empty
// mapping.
func Normalize(doc any) Normalized {
	out := make(Normalized)

	switch v := doc.(type) {
	case map[string]any:
		for k, val := range v {
			if attrs, ok := val.(map[string]any); ok {
				out[naming.BaseName(k)] = attrs
			} else {
				out[naming.BaseName(k)] = Attributes{"value": val}
			}
		}
	case []any:
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, ok := obj["filename"].(string)
			if !ok || name == "" {
				continue
			}
			attrs := make(Attributes, len(obj)-1)
			for k, val := range obj {
				if k != "filename" {
					attrs[k] = val
				}
			}
			out[naming.BaseName(name)] = attrs
		}
	}

	return out
}

// IsInline reports whether source is a JSON document rather than a path.
func IsInline(source string) bool {
	s := strings.TrimSpace(source)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// Load reads source, either an inline JSON document or a file path, and
// normalizes it. Read failures carry METADATA_LOAD and malformed documents
// carry METADATA_PARSE.
func Load(source string) (Normalized, error) {
	if IsInline(source) {
		return Parse(strings.NewReader(source))
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMetadataLoad, "failed to read metadata document").
			WithComponent("metadata").
			WithOperation("load").
			WithContext("path", source)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a single JSON document from r and normalizes it.
func Parse(r io.Reader) (Normalized, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMetadataParse, "malformed metadata document").
			WithComponent("metadata").
			WithOperation("parse")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.NewError(errors.ErrCodeMetadataParse, "trailing data after metadata document").
			WithComponent("metadata").
			WithOperation("parse")
	}

	return Normalize(doc), nil
}
