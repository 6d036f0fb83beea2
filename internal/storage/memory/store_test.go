package memory

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovariant/photovariant/pkg/errors"
	"github.com/photovariant/photovariant/pkg/types"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	opts := types.PutOptions{ContentType: "image/webp", CacheControl: "public, max-age=31536000, immutable"}
	require.NoError(t, s.Put(ctx, "a/b_960.webp", []byte("data"), opts))

	data, err := s.Get(ctx, "a/b_960.webp")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	info, ok := s.Stat("a/b_960.webp")
	require.True(t, ok)
	assert.Equal(t, "image/webp", info.ContentType)
	assert.Equal(t, opts.CacheControl, info.CacheControl)
	assert.Equal(t, int64(4), info.Size)
	assert.Len(t, info.ETag, 32)

	exists, err := s.Exists(ctx, "a/b_960.webp")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists(ctx, "a/b_1600.webp")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 1, s.Probes("a/b_1600.webp"))
	assert.Equal(t, 2, s.TotalProbes())
}

func TestStoreGetMissing(t *testing.T) {
	_, err := New().Get(context.Background(), "missing.jpg")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStoreList(t *testing.T) {
	s := New()
	s.Seed("images/b.JPG", "images/a.png", "images/dir/", "images/notes.txt", "other/c.jpg")

	got, err := s.List(context.Background(), "images/", []string{".jpg", ".png"})
	require.NoError(t, err)

	keys := make([]string, len(got))
	for i, o := range got {
		keys[i] = o.Key
	}
	assert.Equal(t, []string{"images/a.png", "images/b.JPG"}, keys)
}

func TestStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed("k.jpg")

	boom := stderrors.New("connection reset")
	s.FailExists("k.jpg", boom)
	_, err := s.Exists(ctx, "k.jpg")
	assert.ErrorIs(t, err, boom)

	s.FailExists("k.jpg", nil)
	ok, err := s.Exists(ctx, "k.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	s.FailPut("v.webp", 1)
	err = s.Put(ctx, "v.webp", []byte("x"), types.PutOptions{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageWrite))
	require.NoError(t, s.Put(ctx, "v.webp", []byte("x"), types.PutOptions{}))
	assert.Equal(t, 3, s.Puts())

	s.FailGet("k.jpg", boom)
	_, err = s.Get(ctx, "k.jpg")
	assert.ErrorIs(t, err, boom)
}

func TestStoreCopiesData(t *testing.T) {
	ctx := context.Background()
	s := New()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", buf, types.PutOptions{}))
	buf[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	s.Delete("k")
	assert.Empty(t, s.Keys())
}
