package minio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovariant/photovariant/pkg/errors"
)

// headServer answers HEAD requests with the status mapped to the object path.
func headServer(t *testing.T, statuses map[string]int) *Backend {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, ok := statuses[r.URL.Path]
		if !ok {
			status = http.StatusNotFound
		}
		if status == http.StatusOK {
			w.Header().Set("Last-Modified", time.Unix(0, 0).UTC().Format(http.TimeFormat))
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.Header().Set("Content-Type", "image/webp")
			w.Header().Set("Content-Length", "0")
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	b, err := NewBackend("photos", &Config{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		Region:          "us-east-1",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		RequestTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return b
}

func TestNewBackend_Validation(t *testing.T) {
	_, err := NewBackend("", &Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	_, err = NewBackend("photos", &Config{})
	assert.Error(t, err)

	_, err = NewBackend("photos", nil)
	assert.Error(t, err)
}

func TestBackend_Exists(t *testing.T) {
	b := headServer(t, map[string]int{
		"/photos/images/a_960.webp": http.StatusOK,
		"/photos/private/a.jpg":     http.StatusForbidden,
	})
	ctx := context.Background()

	ok, err := b.Exists(ctx, "images/a_960.webp")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Exists(ctx, "images/a_1600.avif")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.Exists(ctx, "private/a.jpg")
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAccessDenied))
}

func TestTranslateError(t *testing.T) {
	b := &Backend{bucket: "photos"}

	tests := []struct {
		name      string
		err       error
		operation string
		want      errors.ErrorCode
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, "GetObject", errors.ErrCodeObjectNotFound},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}, "ListObjects", errors.ErrCodeBucketNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, "PutObject", errors.ErrCodeAccessDenied},
		{"put failure", minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}, "PutObject", errors.ErrCodeStorageWrite},
		{"list failure", minio.ErrorResponse{Code: "InternalError", StatusCode: 500}, "ListObjects", errors.ErrCodeStorageList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := errors.CodeOf(b.translateError(tt.err, tt.operation, "k"))
			require.True(t, ok)
			assert.Equal(t, tt.want, code)
		})
	}
}
