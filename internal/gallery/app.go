// Package gallery owns the state a request needs: the catalog listed at
// startup, the resolver, the URL builder and the metadata store.
package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/photovariant/photovariant/internal/delivery"
	"github.com/photovariant/photovariant/internal/metadata"
	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/internal/resolver"
)

// View is everything needed to render one image.
type View struct {
	Key         string              `json:"key"`
	Filename    string              `json:"filename"`
	VariantKey  string              `json:"variant_key"`
	VariantURL  string              `json:"variant_url"`
	OriginalURL string              `json:"original_url"`
	Fallback    bool                `json:"fallback"`
	Metadata    metadata.Attributes `json:"metadata"`
}

// Options wires an App. Metadata may be nil.
type Options struct {
	Catalog  *Catalog
	Resolver *resolver.Resolver
	URLs     *delivery.Builder
	Metadata *metadata.Store
	// Intn picks the random image; defaults to math/rand/v2.
	Intn func(n int) int
}

// App is constructed once and shared by every request.
type App struct {
	catalog  *Catalog
	resolver *resolver.Resolver
	urls     *delivery.Builder
	metadata *metadata.Store
	intn     func(n int) int
	logger   *slog.Logger
}

// NewApp validates opts.
func NewApp(opts Options) (*App, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if opts.URLs == nil {
		return nil, fmt.Errorf("url builder is required")
	}
	if opts.Metadata == nil {
		opts.Metadata = metadata.NewStore(nil)
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}

	return &App{
		catalog:  opts.Catalog,
		resolver: opts.Resolver,
		urls:     opts.URLs,
		metadata: opts.Metadata,
		intn:     opts.Intn,
		logger:   slog.Default().With("component", "gallery"),
	}, nil
}

// Catalog returns the startup listing.
func (a *App) Catalog() *Catalog {
	return a.catalog
}

// View resolves a catalogued key. Unknown keys yield IMAGE_NOT_FOUND.
func (a *App) View(ctx context.Context, key string) (*View, error) {
	key, err := a.catalog.Lookup(key)
	if err != nil {
		return nil, err
	}

	res := a.resolver.ResolveDetailed(ctx, key)
	a.logger.Debug("resolved view", "key", key, "variant", res.Key, "probes", res.Probes)

	return &View{
		Key:         key,
		Filename:    naming.BaseName(key),
		VariantKey:  res.Key,
		VariantURL:  a.urls.URL(res.Key),
		OriginalURL: a.urls.URL(key),
		Fallback:    res.Fallback(),
		Metadata:    a.metadata.For(key),
	}, nil
}

// RandomView picks a catalogued image.
func (a *App) RandomView(ctx context.Context) (*View, error) {
	if a.catalog.Len() == 0 {
		_, err := a.catalog.Pick(0)
		return nil, err
	}
	key, err := a.catalog.Pick(a.intn(a.catalog.Len()))
	if err != nil {
		return nil, err
	}
	return a.View(ctx, key)
}
