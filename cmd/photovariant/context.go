package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/photovariant/photovariant/internal/cache"
	"github.com/photovariant/photovariant/internal/config"
	"github.com/photovariant/photovariant/internal/delivery"
	"github.com/photovariant/photovariant/internal/generator"
	"github.com/photovariant/photovariant/internal/generator/libvips"
	"github.com/photovariant/photovariant/internal/metadata"
	"github.com/photovariant/photovariant/internal/metrics"
	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/internal/resolver"
	miniostore "github.com/photovariant/photovariant/internal/storage/minio"
	s3store "github.com/photovariant/photovariant/internal/storage/s3"
	"github.com/photovariant/photovariant/pkg/types"
	"github.com/photovariant/photovariant/pkg/utils"
)

// backend is a store that can report its own health.
type backend interface {
	types.Store
	HealthCheck(ctx context.Context) error
}

type globalFlags struct {
	config    string
	backend   string
	bucket    string
	region    string
	endpoint  string
	cdnDomain string
	logLevel  string
	logFormat string
	metadata  string
	prefix    string
}

type commandContext struct {
	flags globalFlags

	configOnce sync.Once
	config     *config.Configuration
	configErr  error
	logCloser  io.Closer

	openStore     func(ctx context.Context, cfg *config.Configuration) (backend, error)
	newTranscoder func(cfg *config.Configuration) (generator.Transcoder, func())
}

func newCommandContext() *commandContext {
	return &commandContext{
		openStore:     openStore,
		newTranscoder: newVipsTranscoder,
	}
}

func (c *commandContext) ensureConfig() (*config.Configuration, error) {
	c.configOnce.Do(func() {
		cfg := config.NewDefault()
		if path := strings.TrimSpace(c.flags.config); path != "" {
			if err := cfg.LoadFromFile(path); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.LoadFromEnv(); err != nil {
			c.configErr = err
			return
		}
		c.applyFlags(cfg)
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("invalid configuration: %w", err)
			return
		}

		_, closer, err := utils.SetupLogging(cfg.Global.LogLevel, cfg.Monitoring.LogFormat, cfg.Global.LogFile)
		if err != nil {
			c.configErr = err
			return
		}
		c.logCloser = closer
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyFlags(cfg *config.Configuration) {
	f := c.flags
	if f.backend != "" {
		cfg.Storage.Backend = strings.ToLower(f.backend)
	}
	if f.bucket != "" {
		cfg.Storage.Bucket = f.bucket
	}
	if f.region != "" {
		cfg.Storage.Region = f.region
	}
	if f.endpoint != "" {
		cfg.Storage.Endpoint = f.endpoint
	}
	if f.cdnDomain != "" {
		cfg.Delivery.CDNDomain = f.cdnDomain
	}
	if f.logLevel != "" {
		cfg.Global.LogLevel = strings.ToUpper(f.logLevel)
	}
	if f.logFormat != "" {
		cfg.Monitoring.LogFormat = strings.ToLower(f.logFormat)
	}
	if f.metadata != "" {
		cfg.Metadata.Path = f.metadata
	}
	if f.prefix != "" {
		cfg.Catalog.Prefix = f.prefix
	}
}

func (c *commandContext) close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func openStore(ctx context.Context, cfg *config.Configuration) (backend, error) {
	s := cfg.Storage
	switch s.Backend {
	case "minio":
		return miniostore.NewBackend(s.Bucket, &miniostore.Config{
			Endpoint:        s.Endpoint,
			Region:          s.Region,
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
			UseSSL:          s.UseSSL,
			RequestTimeout:  s.RequestTimeout,
		})
	default:
		return s3store.NewBackend(ctx, s.Bucket, &s3store.Config{
			Region:          s.Region,
			Endpoint:        s.Endpoint,
			ForcePathStyle:  s.ForcePathStyle,
			MaxRetries:      s.MaxRetries,
			RequestTimeout:  s.RequestTimeout,
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
		})
	}
}

func newVipsTranscoder(cfg *config.Configuration) (generator.Transcoder, func()) {
	libvips.Startup(0)
	return libvips.New(), libvips.Shutdown
}

func newCollector(cfg *config.Configuration) (*metrics.Collector, error) {
	return metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Monitoring.MetricsEnabled,
		Port:      cfg.Global.MetricsPort,
		Path:      "/metrics",
		Namespace: "photovariant",
	})
}

// attachRecorder forwards storage call timings when the store supports it.
func attachRecorder(store types.Store, collector *metrics.Collector) {
	if r, ok := store.(interface{ SetRecorder(types.OperationRecorder) }); ok && collector.Enabled() {
		r.SetRecorder(collector)
	}
}

func newURLBuilder(cfg *config.Configuration) (*delivery.Builder, error) {
	endpoint := cfg.Storage.Endpoint
	pathStyle := cfg.Storage.ForcePathStyle
	if cfg.Storage.Backend == "minio" {
		pathStyle = true
		if endpoint != "" && !strings.Contains(endpoint, "://") && !cfg.Storage.UseSSL {
			endpoint = "http://" + endpoint
		}
	}
	return delivery.NewBuilder(delivery.Config{
		CDNDomain: cfg.Delivery.CDNDomain,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  endpoint,
		PathStyle: pathStyle,
	})
}

func newResolver(cfg *config.Configuration, store types.Store, collector types.MetricsCollector) (*resolver.Resolver, *cache.ExistenceCache, naming.Matrix, error) {
	matrix, err := cfg.Matrix()
	if err != nil {
		return nil, nil, naming.Matrix{}, err
	}
	c := cache.NewExistenceCache(store, &cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		Shards:     cfg.Cache.Shards,
		Matrix:     matrix,
	}, collector)
	return resolver.New(matrix, c, collector), c, matrix, nil
}

// loadMetadata substitutes an empty store when the document cannot be
// loaded; views then carry the placeholder.
func loadMetadata(cfg *config.Configuration) *metadata.Store {
	store, err := metadata.Open(cfg.Metadata.Path)
	if err != nil {
		slog.Default().Warn("metadata unavailable", "component", "cli", "error", err)
		return metadata.NewStore(nil)
	}
	return store
}
