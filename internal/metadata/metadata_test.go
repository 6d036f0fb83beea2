package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovariant/photovariant/pkg/errors"
)

func TestNormalizeMapping(t *testing.T) {
	got := Normalize(map[string]any{
		"a/b/IMG1.jpg": map[string]any{"ISO": 100},
		"IMG2.jpg":     "sunset",
		"c/IMG3.jpg":   nil,
	})

	assert.Equal(t, Normalized{
		"IMG1.jpg": {"ISO": 100},
		"IMG2.jpg": {"value": "sunset"},
		"IMG3.jpg": {"value": nil},
	}, got)
}

func TestNormalizeSequence(t *testing.T) {
	got := Normalize([]any{
		map[string]any{"filename": "x/IMG2.jpg", "ISO": 200},
		map[string]any{"ISO": 1},
		map[string]any{"filename": "", "ISO": 2},
		map[string]any{"filename": 42, "ISO": 3},
		"not an object",
		7,
	})

	assert.Equal(t, Normalized{"IMG2.jpg": {"ISO": 200}}, got)
}

func TestNormalizeSequenceWithoutFilename(t *testing.T) {
	assert.Empty(t, Normalize([]any{map[string]any{"ISO": 1}}))
}

func TestNormalizeOtherShapes(t *testing.T) {
	for _, doc := range []any{nil, "text", json.Number("3"), true} {
		got := Normalize(doc)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestNormalizeLaterDuplicateWins(t *testing.T) {
	got := Normalize([]any{
		map[string]any{"filename": "a/IMG.jpg", "ISO": 100},
		map[string]any{"filename": "b/IMG.jpg", "ISO": 400},
	})
	assert.Equal(t, Normalized{"IMG.jpg": {"ISO": 400}}, got)
}

func TestLoadInline(t *testing.T) {
	got, err := Load(`  {"a/b/IMG1.jpg": {"ISO": 100}}`)
	require.NoError(t, err)
	assert.Equal(t, Normalized{"IMG1.jpg": {"ISO": json.Number("100")}}, got)

	got, err = Load(`[{"filename": "x/IMG2.jpg", "ISO": 200}]`)
	require.NoError(t, err)
	assert.Equal(t, Normalized{"IMG2.jpg": {"ISO": json.Number("200")}}, got)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exif_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"photos/DSCF3623.jpg": {"Model": "X-T5"}}`), 0600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Normalized{"DSCF3623.jpg": {"Model": "X-T5"}}, got)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMetadataLoad))

	_, err = Load(`{"broken": `)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMetadataParse))

	_, err = Parse(strings.NewReader(`{} {}`))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMetadataParse))
}

func TestStore(t *testing.T) {
	s, err := Open(`{"a/IMG1.jpg": {"ISO": 100}}`)
	require.NoError(t, err)
	assert.True(t, s.Inline())
	assert.Equal(t, 1, s.Len())

	attrs, ok := s.Lookup("images/IMG1.jpg")
	require.True(t, ok)
	assert.Equal(t, json.Number("100"), attrs["ISO"])

	attrs["ISO"] = "mutated"
	again, _ := s.Lookup("IMG1.jpg")
	assert.Equal(t, json.Number("100"), again["ISO"])

	_, ok = s.Lookup("IMG9.jpg")
	assert.False(t, ok)
	assert.Equal(t, Placeholder(), s.For("IMG9.jpg"))
}

func TestNewStoreNil(t *testing.T) {
	s := NewStore(nil)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, Attributes{"Note": "No metadata found."}, s.For("anything.jpg"))
}
