package types

import (
	"context"
	"time"
)

// Store defines the object storage primitives the variant pipeline needs
type Store interface {
	// List returns the keys under prefix whose extension (case-insensitive)
	// is one of extensions. An empty extension set keeps every key.
	List(ctx context.Context, prefix string, extensions []string) ([]ObjectInfo, error)

	// Exists performs a metadata-only probe for an exact key.
	Exists(ctx context.Context, key string) (bool, error)

	// Put writes data under key with the given headers.
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error

	// Get returns the full content stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
}

// ExistenceChecker answers memoized existence questions
type ExistenceChecker interface {
	Exists(ctx context.Context, key string) bool
}

// MetricsCollector receives pipeline measurements
type MetricsCollector interface {
	RecordProbe(found bool, cached bool)
	RecordResolution(outcome string)
	RecordVariant(format string, width int, size int64, success bool)
	RecordOriginal(success bool)
}

// OperationRecorder receives per-call storage measurements
type OperationRecorder interface {
	RecordOperation(operation string, duration time.Duration, size int64, success bool)
	RecordError(operation string, err error)
}
