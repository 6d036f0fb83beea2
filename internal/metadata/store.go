package metadata

import "github.com/photovariant/photovariant/internal/naming"

// Store is the process-lifetime view of the normalized document. It is
// built once and never mutated, so concurrent readers need no locking.
type Store struct {
	entries Normalized
	source  string
}

// NewStore wraps an already normalized mapping.
func NewStore(entries Normalized) *Store {
	if entries == nil {
		entries = make(Normalized)
	}
	return &Store{entries: entries}
}

// Open loads source and returns a store for it.
func Open(source string) (*Store, error) {
	entries, err := Load(source)
	if err != nil {
		return nil, err
	}
	s := NewStore(entries)
	s.source = source
	return s, nil
}

// Lookup returns a copy of the attributes for the base filename of key.
func (s *Store) Lookup(key string) (Attributes, bool) {
	attrs, ok := s.entries[naming.BaseName(key)]
	if !ok {
		return nil, false
	}
	out := make(Attributes, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out, true
}

// For returns the attributes for key, or the placeholder when absent.
func (s *Store) For(key string) Attributes {
	if attrs, ok := s.Lookup(key); ok {
		return attrs
	}
	return Placeholder()
}

// Len is the number of files with metadata.
func (s *Store) Len() int {
	return len(s.entries)
}

// Inline reports whether the store was loaded from an inline document.
func (s *Store) Inline() bool {
	return IsInline(s.source)
}
