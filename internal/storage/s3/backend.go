package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/photovariant/photovariant/pkg/errors"
	"github.com/photovariant/photovariant/pkg/types"
)

// Backend implements types.Store on AWS S3
type Backend struct {
	client  s3API
	bucket  string
	config  *Config
	logger  *slog.Logger
	metrics metricsTracker

	recorder types.OperationRecorder
}

var _ types.Store = (*Backend)(nil)

// NewBackend creates a new S3 backend and verifies the bucket is reachable
func NewBackend(ctx context.Context, bucket string, cfg *Config) (*Backend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend := newBackend(client, bucket, cfg)
	backend.logger.Info("S3 backend configured",
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"path_style", cfg.ForcePathStyle,
		"max_retries", cfg.MaxRetries)

	if !cfg.SkipHealthCheck {
		if err := backend.HealthCheck(ctx); err != nil {
			return nil, fmt.Errorf("S3 backend health check failed: %w", err)
		}
	}

	return backend, nil
}

func newBackend(client s3API, bucket string, cfg *Config) *Backend {
	return &Backend{
		client: client,
		bucket: bucket,
		config: cfg,
		logger: slog.Default().With("component", "s3-backend", "bucket", bucket),
	}
}

// SetRecorder forwards per-call measurements to r
func (b *Backend) SetRecorder(r types.OperationRecorder) {
	b.recorder = r
}

// Bucket returns the bucket name
func (b *Backend) Bucket() string {
	return b.bucket
}

// List returns every object under prefix matching extensions, across pages
func (b *Backend) List(ctx context.Context, prefix string, extensions []string) ([]types.ObjectInfo, error) {
	start := time.Now()

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []types.ObjectInfo
	for paginator.HasMorePages() {
		callCtx, cancel := b.withTimeout(ctx)
		page, err := paginator.NextPage(callCtx)
		cancel()
		if err != nil {
			b.finish("list", start, 0, err)
			return nil, b.translateError(err, "ListObjects", prefix)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !types.MatchesExtension(key, extensions) {
				continue
			}
			objects = append(objects, types.ObjectInfo{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
		}
	}

	b.finish("list", start, 0, nil)
	b.logger.Debug("listed objects", "prefix", prefix, "count", len(objects))
	return objects, nil
}

// Exists issues a HeadObject. A 404 is (false, nil); other failures are
// returned with the probe result false.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	callCtx, cancel := b.withTimeout(ctx)
	defer cancel()

	_, err := b.client.HeadObject(callCtx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			b.finish("head", start, 0, nil)
			return false, nil
		}
		b.finish("head", start, 0, err)
		return false, b.translateError(err, "HeadObject", key)
	}

	b.finish("head", start, 0, nil)
	return true, nil
}

// Stat returns the stored headers of key
func (b *Backend) Stat(ctx context.Context, key string) (*types.ObjectInfo, error) {
	start := time.Now()
	callCtx, cancel := b.withTimeout(ctx)
	defer cancel()

	result, err := b.client.HeadObject(callCtx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	b.finish("head", start, 0, err)
	if err != nil {
		return nil, b.translateError(err, "HeadObject", key)
	}

	return &types.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		LastModified: aws.ToTime(result.LastModified),
		ETag:         aws.ToString(result.ETag),
		ContentType:  aws.ToString(result.ContentType),
		CacheControl: aws.ToString(result.CacheControl),
	}, nil
}

// Put stores data under key with the given content type and cache directive
func (b *Backend) Put(ctx context.Context, key string, data []byte, opts types.PutOptions) error {
	start := time.Now()
	callCtx, cancel := b.withTimeout(ctx)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	_, err := b.client.PutObject(callCtx, input)
	b.finish("put", start, int64(len(data)), err)
	if err != nil {
		return b.translateError(err, "PutObject", key)
	}

	b.metrics.addUploaded(int64(len(data)))
	return nil
}

// Get retrieves the full object
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	callCtx, cancel := b.withTimeout(ctx)
	defer cancel()

	result, err := b.client.GetObject(callCtx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		b.finish("get", start, 0, err)
		return nil, b.translateError(err, "GetObject", key)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	b.finish("get", start, int64(len(data)), err)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "failed to read object body").
			WithComponent("s3").
			WithOperation("GetObject").
			WithContext("key", key)
	}

	b.metrics.addDownloaded(int64(len(data)))
	return data, nil
}

// HealthCheck verifies the bucket is reachable
func (b *Backend) HealthCheck(ctx context.Context) error {
	callCtx, cancel := b.withTimeout(ctx)
	defer cancel()

	_, err := b.client.HeadBucket(callCtx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		return b.translateError(err, "HeadBucket", "")
	}
	return nil
}

// GetMetrics returns current backend metrics
func (b *Backend) GetMetrics() BackendMetrics {
	return b.metrics.snapshot()
}

// Helper methods

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.config != nil && b.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, b.config.RequestTimeout)
	}
	return ctx, func() {}
}

func (b *Backend) finish(operation string, start time.Time, size int64, err error) {
	duration := time.Since(start)
	b.metrics.record(duration, err != nil)
	if err != nil {
		b.metrics.recordError(err)
	}

	if b.recorder != nil {
		b.recorder.RecordOperation(operation, duration, size, err == nil)
		if err != nil {
			b.recorder.RecordError(operation, err)
		}
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

	switch {
	case isNotFound(err):
		code = errors.ErrCodeObjectNotFound
	case isErrorType[*s3types.NoSuchBucket](err), apiErrorCode(err) == "NoSuchBucket":
		code = errors.ErrCodeBucketNotFound
	case apiErrorCode(err) == "AccessDenied", httpStatus(err) == http.StatusForbidden:
		code = errors.ErrCodeAccessDenied
	}

	pe := errors.Wrap(err, code, fmt.Sprintf("%s failed", operation)).
		WithComponent("s3").
		WithOperation(operation).
		WithContext("bucket", b.bucket)
	if key != "" {
		pe = pe.WithContext("key", key)
	}
	return pe
}

func isNotFound(err error) bool {
	return isErrorType[*s3types.NoSuchKey](err) ||
		isErrorType[*s3types.NotFound](err) ||
		httpStatus(err) == http.StatusNotFound && apiErrorCode(err) != "NoSuchBucket"
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func httpStatus(err error) int {
	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// isErrorType checks if an error is of a specific type
func isErrorType[T error](err error) bool {
	var target T
	return stderrors.As(err, &target)
}
