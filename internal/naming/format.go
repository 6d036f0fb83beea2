package naming

import (
	"fmt"
	"strings"
)

// Format is an output encoding for a derived variant. The declaration
// order is the preference order used when probing candidates.
type Format int

const (
	FormatUnknown Format = iota
	FormatAVIF
	FormatWEBP
	FormatJPEG
)

// PreferenceOrder lists every format from most to least preferred.
var PreferenceOrder = []Format{FormatAVIF, FormatWEBP, FormatJPEG}

// String returns the lowercase format name
func (f Format) String() string {
	switch f {
	case FormatAVIF:
		return "avif"
	case FormatWEBP:
		return "webp"
	case FormatJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// Extension returns the canonical file extension without the dot
func (f Format) Extension() string {
	switch f {
	case FormatAVIF:
		return "avif"
	case FormatWEBP:
		return "webp"
	case FormatJPEG:
		return "jpg"
	default:
		return ""
	}
}

// ContentType returns the MIME type stored with variants of this format
func (f Format) ContentType() string {
	switch f {
	case FormatAVIF:
		return "image/avif"
	case FormatWEBP:
		return "image/webp"
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat accepts a format name or extension, with or without a leading dot
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "avif":
		return FormatAVIF, nil
	case "webp":
		return FormatWEBP, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported variant format: %q", s)
	}
}

// formatForExtension maps only canonical extensions, so that a parsed key
// re-derives to itself.
func formatForExtension(ext string) (Format, bool) {
	for _, f := range PreferenceOrder {
		if f.Extension() == ext {
			return f, true
		}
	}
	return FormatUnknown, false
}
