package naming

import (
	"strconv"
	"strings"
)

// DeriveKey names the variant of originalKey at width in format:
// {stem}_{width}.{ext}, where stem is originalKey without its extension.
func DeriveKey(originalKey string, width int, format Format) string {
	var sb strings.Builder
	stem := StripExtension(originalKey)
	ext := format.Extension()

	sb.Grow(len(stem) + len(ext) + 8)
	sb.WriteString(stem)
	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(width))
	sb.WriteByte('.')
	sb.WriteString(ext)
	return sb.String()
}

// StripExtension removes the final extension of the last path segment.
// Leading dots of a file name do not start an extension.
func StripExtension(key string) string {
	stem, _ := SplitExtension(key)
	return stem
}

// SplitExtension splits key into stem and extension (including the dot).
func SplitExtension(key string) (string, string) {
	base := strings.LastIndex(key, "/") + 1
	dot := strings.LastIndex(key[base:], ".")
	if dot < 0 {
		return key, ""
	}
	if strings.TrimLeft(key[base:base+dot], ".") == "" {
		return key, ""
	}
	return key[:base+dot], key[base+dot:]
}

// BaseName returns the last path segment of key.
func BaseName(key string) string {
	return key[strings.LastIndex(key, "/")+1:]
}

// Derived is the decomposition of a variant key.
type Derived struct {
	Stem   string
	Width  int
	Format Format
}

// Parse reverses DeriveKey. It reports false for keys that DeriveKey
// could not have produced.
func Parse(key string) (Derived, bool) {
	stem, ext := SplitExtension(key)
	if ext == "" {
		return Derived{}, false
	}
	format, ok := formatForExtension(ext[1:])
	if !ok {
		return Derived{}, false
	}

	underscore := strings.LastIndex(stem, "_")
	if underscore < 0 || underscore < strings.LastIndex(stem, "/") {
		return Derived{}, false
	}
	digits := stem[underscore+1:]
	if digits == "" || digits[0] == '0' {
		return Derived{}, false
	}
	width, err := strconv.Atoi(digits)
	if err != nil || width <= 0 || strconv.Itoa(width) != digits {
		return Derived{}, false
	}

	return Derived{Stem: stem[:underscore], Width: width, Format: format}, true
}

// Matches reports whether d belongs to an original with the given key.
func (d Derived) Matches(originalKey string) bool {
	return d.Stem == StripExtension(originalKey)
}
