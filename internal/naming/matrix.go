package naming

import (
	"fmt"
	"sort"
	"strings"
)

// Spec is one (width, format) cell of the generation matrix.
type Spec struct {
	Width  int
	Format Format
}

// String renders the spec as "960/webp"
func (s Spec) String() string {
	return fmt.Sprintf("%d/%s", s.Width, s.Format)
}

// Matrix is the fixed set of widths and formats generated for every
// original. Widths are held in descending order and formats in
// preference order.
type Matrix struct {
	widths  []int
	formats []Format
}

// NewMatrix validates and normalizes widths and formats.
func NewMatrix(widths []int, formats []Format) (Matrix, error) {
	if len(widths) == 0 {
		return Matrix{}, fmt.Errorf("at least one width is required")
	}
	if len(formats) == 0 {
		return Matrix{}, fmt.Errorf("at least one format is required")
	}

	ws := make([]int, 0, len(widths))
	seenW := make(map[int]bool, len(widths))
	for _, w := range widths {
		if w <= 0 {
			return Matrix{}, fmt.Errorf("width must be positive, got %d", w)
		}
		if seenW[w] {
			return Matrix{}, fmt.Errorf("duplicate width %d", w)
		}
		seenW[w] = true
		ws = append(ws, w)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ws)))

	seenF := make(map[Format]bool, len(formats))
	for _, f := range formats {
		if f <= FormatUnknown || f > FormatJPEG {
			return Matrix{}, fmt.Errorf("unsupported format %v", f)
		}
		if seenF[f] {
			return Matrix{}, fmt.Errorf("duplicate format %s", f)
		}
		seenF[f] = true
	}
	fs := make([]Format, 0, len(formats))
	for _, f := range PreferenceOrder {
		if seenF[f] {
			fs = append(fs, f)
		}
	}

	return Matrix{widths: ws, formats: fs}, nil
}

// ParseMatrix builds a matrix from format names such as "avif" or "jpg".
func ParseMatrix(widths []int, formatNames []string) (Matrix, error) {
	formats := make([]Format, 0, len(formatNames))
	for _, name := range formatNames {
		f, err := ParseFormat(name)
		if err != nil {
			return Matrix{}, err
		}
		formats = append(formats, f)
	}
	return NewMatrix(widths, formats)
}

// Widths returns the widths in descending order.
func (m Matrix) Widths() []int {
	return append([]int(nil), m.widths...)
}

// Formats returns the formats in preference order.
func (m Matrix) Formats() []Format {
	return append([]Format(nil), m.formats...)
}

// Size is the number of variants generated per original.
func (m Matrix) Size() int {
	return len(m.widths) * len(m.formats)
}

// Specs returns every cell, widest first and preferred format first.
func (m Matrix) Specs() []Spec {
	specs := make([]Spec, 0, m.Size())
	for _, w := range m.widths {
		for _, f := range m.formats {
			specs = append(specs, Spec{Width: w, Format: f})
		}
	}
	return specs
}

// Contains reports whether spec is a cell of the matrix.
func (m Matrix) Contains(spec Spec) bool {
	for _, s := range m.Specs() {
		if s == spec {
			return true
		}
	}
	return false
}

// Candidates returns the keys to probe for originalKey in priority order.
// The original key is always the last element.
func (m Matrix) Candidates(originalKey string) []string {
	keys := make([]string, 0, m.Size()+1)
	for _, s := range m.Specs() {
		keys = append(keys, DeriveKey(originalKey, s.Width, s.Format))
	}
	return append(keys, originalKey)
}

// IsVariantKey reports whether key parses as a variant of this matrix.
func (m Matrix) IsVariantKey(key string) bool {
	d, ok := Parse(key)
	return ok && m.Contains(Spec{Width: d.Width, Format: d.Format})
}

// String renders the matrix as "1600,960 x avif,webp,jpeg"
func (m Matrix) String() string {
	ws := make([]string, len(m.widths))
	for i, w := range m.widths {
		ws[i] = fmt.Sprint(w)
	}
	fs := make([]string, len(m.formats))
	for i, f := range m.formats {
		fs[i] = f.String()
	}
	return strings.Join(ws, ",") + " x " + strings.Join(fs, ",")
}
