// Package resolver picks the best stored variant for an original key.
package resolver

import (
	"context"
	"log/slog"

	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/pkg/types"
)

// Resolution outcomes reported to metrics
const (
	OutcomeVariant  = "variant"
	OutcomeOriginal = "original"
)

// Resolution describes how a key was resolved.
type Resolution struct {
	Original string
	Key      string
	// Spec is the winning variant, nil when falling back to the original.
	Spec *naming.Spec
	// Probes is how many candidates were asked about.
	Probes int
}

// Fallback reports whether no variant was found.
func (r Resolution) Fallback() bool {
	return r.Spec == nil
}

// Resolver walks an original's candidate list against an existence
// checker. It never fails: the original key is the terminal fallback.
type Resolver struct {
	matrix  naming.Matrix
	checker types.ExistenceChecker
	metrics types.MetricsCollector
	logger  *slog.Logger
}

// New creates a resolver. metrics may be nil.
func New(matrix naming.Matrix, checker types.ExistenceChecker, metrics types.MetricsCollector) *Resolver {
	return &Resolver{
		matrix:  matrix,
		checker: checker,
		metrics: metrics,
		logger:  slog.Default().With("component", "resolver"),
	}
}

// Matrix returns the matrix candidates are built from.
func (r *Resolver) Matrix() naming.Matrix {
	return r.matrix
}

// Resolve returns the storage key to deliver for originalKey.
func (r *Resolver) Resolve(ctx context.Context, originalKey string) string {
	return r.ResolveDetailed(ctx, originalKey).Key
}

// ResolveDetailed is Resolve with the winning spec and probe count.
//
// Candidates are probed widest first and, within a width, in format
// preference order. The original is the last candidate and is returned
// without a probe since the catalog that produced it guarantees it.
func (r *Resolver) ResolveDetailed(ctx context.Context, originalKey string) Resolution {
	res := Resolution{Original: originalKey, Key: originalKey}

	specs := r.matrix.Specs()
	for i, spec := range specs {
		key := naming.DeriveKey(originalKey, spec.Width, spec.Format)
		res.Probes = i + 1
		if r.checker.Exists(ctx, key) {
			res.Key = key
			res.Spec = &spec
			break
		}
	}

	outcome := OutcomeVariant
	if res.Fallback() {
		outcome = OutcomeOriginal
	}
	if r.metrics != nil {
		r.metrics.RecordResolution(outcome)
	}
	r.logger.Debug("resolved", "original", originalKey, "key", res.Key, "outcome", outcome, "probes", res.Probes)

	return res
}
