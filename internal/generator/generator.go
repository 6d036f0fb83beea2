// Package generator produces the width x format variant set of each
// original and uploads it with immutable cache headers.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/photovariant/photovariant/internal/circuit"
	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/pkg/errors"
	"github.com/photovariant/photovariant/pkg/retry"
	"github.com/photovariant/photovariant/pkg/types"
)

// DefaultCacheControl marks variants as immutable for a year.
const DefaultCacheControl = "public, max-age=31536000, immutable"

// DefaultQuality maps each format to its encoder quality.
var DefaultQuality = map[naming.Format]int{
	naming.FormatAVIF: 40,
	naming.FormatWEBP: 80,
	naming.FormatJPEG: 80,
}

// Config represents generator configuration
type Config struct {
	Matrix         naming.Matrix
	Quality        map[naming.Format]int
	CacheControl   string
	Workers        int
	UploadAttempts int
	RetryDelay     time.Duration
	// FailFastAfter consecutive exhausted uploads stop further uploads for
	// FailFastCooldown. Zero means 5; negative disables.
	FailFastAfter    int
	FailFastCooldown time.Duration
}

// Upload is one stored variant.
type Upload struct {
	Key  string      `json:"key"`
	Spec naming.Spec `json:"-"`
	Size int64       `json:"size"`
}

// Failure is one variant or original that could not be produced.
type Failure struct {
	Original string       `json:"original"`
	Key      string       `json:"key,omitempty"`
	Spec     *naming.Spec `json:"-"`
	Err      error        `json:"-"`
}

func (f Failure) Error() string {
	if f.Key == "" {
		return fmt.Sprintf("%s: %v", f.Original, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Key, f.Err)
}

// Result is the outcome for one original.
type Result struct {
	Original string
	Uploads  []Upload
	Failures []Failure
}

// Report summarises a run.
type Report struct {
	Originals int
	Processed int
	Skipped   int
	Variants  int
	Failed    int
	Bytes     int64
	Duration  time.Duration
	Uploads   []Upload
	Failures  []Failure
}

func (r *Report) add(res Result, skipped bool) {
	if skipped {
		r.Skipped++
	} else {
		r.Processed++
	}
	r.Variants += len(res.Uploads)
	r.Uploads = append(r.Uploads, res.Uploads...)
	for _, u := range res.Uploads {
		r.Bytes += u.Size
	}
	for _, f := range res.Failures {
		if f.Spec != nil {
			r.Failed++
		}
	}
	r.Failures = append(r.Failures, res.Failures...)
}

// Generator writes variants through a types.Store.
type Generator struct {
	store      types.Store
	transcoder Transcoder
	config     Config
	retryer    *retry.Retryer
	breaker    *circuit.Breaker
	metrics    types.MetricsCollector
	logger     *slog.Logger
}

// New creates a generator. Zero config fields take their defaults.
func New(store types.Store, transcoder Transcoder, config Config, metrics types.MetricsCollector) *Generator {
	if config.CacheControl == "" {
		config.CacheControl = DefaultCacheControl
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.UploadAttempts <= 0 {
		config.UploadAttempts = 3
	}
	quality := make(map[naming.Format]int, len(DefaultQuality))
	for f, q := range DefaultQuality {
		quality[f] = q
	}
	for f, q := range config.Quality {
		if q > 0 {
			quality[f] = q
		}
	}
	config.Quality = quality

	rc := retry.DefaultConfig()
	rc.MaxAttempts = config.UploadAttempts
	if config.RetryDelay > 0 {
		rc.InitialDelay = config.RetryDelay
	}

	g := &Generator{
		store:      store,
		transcoder: transcoder,
		config:     config,
		metrics:    metrics,
		logger:     slog.Default().With("component", "generator"),
	}
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		g.logger.Debug("retrying upload", "attempt", attempt, "delay", delay, "error", err)
	}
	g.retryer = retry.New(rc)

	if config.FailFastAfter >= 0 {
		g.breaker = circuit.NewBreaker("uploads", circuit.Config{
			ConsecutiveFailures: uint32(config.FailFastAfter),
			Timeout:             config.FailFastCooldown,
			OnStateChange: func(name string, from, to circuit.State) {
				g.logger.Warn("upload breaker changed state", "from", from.String(), "to", to.String())
			},
		})
	}
	return g
}

// SetLogger replaces the component logger
func (g *Generator) SetLogger(logger *slog.Logger) {
	g.logger = logger.With("component", "generator")
}

// Matrix returns the generation matrix.
func (g *Generator) Matrix() naming.Matrix {
	return g.config.Matrix
}

// Run generates variants for every original of src using a bounded
// worker pool. Per-original failures land in the report; the returned
// error is reserved for listing failures and cancellation.
func (g *Generator) Run(ctx context.Context, src Source) (*Report, error) {
	start := time.Now()

	originals, err := src.Originals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageList, "failed to enumerate originals").
			WithComponent("generator").
			WithOperation("run")
	}

	g.logger.Info("starting generation",
		"originals", len(originals),
		"matrix", g.config.Matrix.String(),
		"workers", g.config.Workers)

	report := &Report{Originals: len(originals)}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.config.Workers)

	for _, orig := range originals {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			res, skipped := g.process(egCtx, orig)
			mu.Lock()
			report.add(res, skipped)
			mu.Unlock()
			return egCtx.Err()
		})
	}

	waitErr := eg.Wait()
	report.Duration = time.Since(start)

	g.logger.Info("generation finished",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"variants", report.Variants,
		"failed", report.Failed,
		"bytes", humanize.Bytes(uint64(report.Bytes)),
		"duration", report.Duration)

	if waitErr != nil {
		return report, waitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (g *Generator) process(ctx context.Context, orig Original) (Result, bool) {
	data, err := orig.Load(ctx)
	if err != nil {
		err = errors.Wrap(err, errors.ErrCodeStorageRead, "failed to read original").
			WithComponent("generator").
			WithContext("key", orig.Key)
		g.logger.Error("skipped original", "key", orig.Key, "error", err)
		g.recordOriginal(false)
		return Result{Original: orig.Key, Failures: []Failure{{Original: orig.Key, Err: err}}}, true
	}

	res, err := g.Generate(ctx, orig.Key, data)
	return res, err != nil
}

// Generate decodes data once and stores every variant of originalKey.
// A decode failure skips the original and is returned. Encode and upload
// failures are recorded per variant and the remaining variants proceed.
func (g *Generator) Generate(ctx context.Context, originalKey string, data []byte) (Result, error) {
	res := Result{Original: originalKey}

	img, err := g.transcoder.Decode(data)
	if err != nil {
		err = errors.Wrap(err, errors.ErrCodeDecodeFailed, "failed to decode original").
			WithComponent("generator").
			WithOperation("decode").
			WithContext("key", originalKey)
		g.logger.Error("skipped original", "key", originalKey, "error", err)
		g.recordOriginal(false)
		res.Failures = append(res.Failures, Failure{Original: originalKey, Err: err})
		return res, err
	}
	defer img.Close()

	g.logger.Debug("decoded original",
		"key", originalKey,
		"width", img.Width(),
		"height", img.Height(),
		"size", humanize.Bytes(uint64(len(data))))

	for _, spec := range g.config.Matrix.Specs() {
		if ctx.Err() != nil {
			break
		}
		key := naming.DeriveKey(originalKey, spec.Width, spec.Format)
		size, err := g.variant(ctx, img, key, spec)
		g.recordVariant(spec, size, err == nil)
		if err != nil {
			g.logger.Warn("variant failed", "key", key, "error", err)
			res.Failures = append(res.Failures, Failure{Original: originalKey, Key: key, Spec: &spec, Err: err})
			continue
		}
		g.logger.Info("uploaded variant",
			"key", key,
			"format", spec.Format.String(),
			"width", spec.Width,
			"size", humanize.Bytes(uint64(size)))
		res.Uploads = append(res.Uploads, Upload{Key: key, Spec: spec, Size: size})
	}

	g.recordOriginal(true)
	return res, nil
}

func (g *Generator) variant(ctx context.Context, img Image, key string, spec naming.Spec) (int64, error) {
	buf, err := img.Encode(spec.Width, spec.Format, g.config.Quality[spec.Format])
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeEncodeFailed, "failed to encode variant").
			WithComponent("generator").
			WithOperation("encode").
			WithContext("key", key)
	}

	opts := types.PutOptions{
		ContentType:  spec.Format.ContentType(),
		CacheControl: g.config.CacheControl,
	}
	upload := func(ctx context.Context) error {
		return g.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			return g.store.Put(ctx, key, buf, opts)
		})
	}
	if g.breaker != nil {
		err = g.breaker.Execute(ctx, upload)
	} else {
		err = upload(ctx)
	}
	if err != nil {
		return 0, err
	}
	return int64(len(buf)), nil
}

func (g *Generator) recordVariant(spec naming.Spec, size int64, success bool) {
	if g.metrics != nil {
		g.metrics.RecordVariant(spec.Format.String(), spec.Width, size, success)
	}
}

func (g *Generator) recordOriginal(success bool) {
	if g.metrics != nil {
		g.metrics.RecordOriginal(success)
	}
}
