// Package minio stores originals and variants on a MinIO or other
// S3-compatible server through minio-go.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/photovariant/photovariant/pkg/errors"
	"github.com/photovariant/photovariant/pkg/types"
)

// Config represents MinIO connection settings
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	UseSSL          bool          `yaml:"use_ssl"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// Backend implements types.Store on a MinIO bucket
type Backend struct {
	client   *minio.Client
	bucket   string
	timeout  time.Duration
	logger   *slog.Logger
	recorder types.OperationRecorder
}

var _ types.Store = (*Backend)(nil)

// NewBackend connects to cfg.Endpoint. It does not contact the server.
func NewBackend(bucket string, cfg *Config) (*Backend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint cannot be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Backend{
		client:  client,
		bucket:  bucket,
		timeout: cfg.RequestTimeout,
		logger:  slog.Default().With("component", "minio-backend", "bucket", bucket),
	}, nil
}

// SetRecorder forwards per-call measurements to r
func (b *Backend) SetRecorder(r types.OperationRecorder) {
	b.recorder = r
}

// List returns every object under prefix matching extensions
func (b *Backend) List(ctx context.Context, prefix string, extensions []string) ([]types.ObjectInfo, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var results []types.ObjectInfo
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			b.finish("list", start, 0, obj.Err)
			return nil, b.translateError(obj.Err, "ListObjects", prefix)
		}
		if !types.MatchesExtension(obj.Key, extensions) {
			continue
		}
		results = append(results, types.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
		})
	}

	b.finish("list", start, 0, nil)
	return results, nil
}

// Exists stats key. A missing key is (false, nil).
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			b.finish("head", start, 0, nil)
			return false, nil
		}
		b.finish("head", start, 0, err)
		return false, b.translateError(err, "StatObject", key)
	}

	b.finish("head", start, 0, nil)
	return true, nil
}

// Put stores data under key with the given headers
func (b *Backend) Put(ctx context.Context, key string, data []byte, opts types.PutOptions) error {
	start := time.Now()
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	b.finish("put", start, int64(len(data)), err)
	if err != nil {
		return b.translateError(err, "PutObject", key)
	}
	return nil
}

// Get retrieves the full object
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		b.finish("get", start, 0, err)
		return nil, b.translateError(err, "GetObject", key)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	b.finish("get", start, int64(len(data)), err)
	if err != nil {
		return nil, b.translateError(err, "GetObject", key)
	}
	return data, nil
}

// HealthCheck verifies the bucket exists
func (b *Backend) HealthCheck(ctx context.Context) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ok, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return b.translateError(err, "BucketExists", "")
	}
	if !ok {
		return errors.Newf(errors.ErrCodeBucketNotFound, "bucket %s does not exist", b.bucket).
			WithComponent("minio")
	}
	return nil
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout > 0 {
		return context.WithTimeout(ctx, b.timeout)
	}
	return ctx, func() {}
}

func (b *Backend) finish(operation string, start time.Time, size int64, err error) {
	if b.recorder == nil {
		return
	}
	b.recorder.RecordOperation(operation, time.Since(start), size, err == nil)
	if err != nil {
		b.recorder.RecordError(operation, err)
	}
}

func (b *Backend) translateError(err error, operation, key string) error {
	code := errors.ErrCodeStorageRead
	switch operation {
	case "PutObject":
		code = errors.ErrCodeStorageWrite
	case "ListObjects":
		code = errors.ErrCodeStorageList
	}

	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey":
		code = errors.ErrCodeObjectNotFound
	case resp.Code == "NoSuchBucket":
		code = errors.ErrCodeBucketNotFound
	case resp.Code == "AccessDenied", resp.StatusCode == http.StatusForbidden:
		code = errors.ErrCodeAccessDenied
	}

	pe := errors.Wrap(err, code, fmt.Sprintf("%s failed", operation)).
		WithComponent("minio").
		WithOperation(operation).
		WithContext("bucket", b.bucket)
	if key != "" {
		pe = pe.WithContext("key", key)
	}
	return pe
}
