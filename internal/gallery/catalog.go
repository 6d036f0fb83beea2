package gallery

import (
	"context"
	"sort"

	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/pkg/errors"
	"github.com/photovariant/photovariant/pkg/types"
)

// CatalogOptions controls how the bucket listing becomes a catalog.
type CatalogOptions struct {
	Prefix     string
	Extensions []string
	// Matrix, when set, hides variant keys whose original is catalogued.
	Matrix *naming.Matrix
}

// Catalog is the set of original keys listed once at startup.
type Catalog struct {
	keys  []string
	index map[string]struct{}
}

// LoadCatalog lists store under opts.Prefix.
func LoadCatalog(ctx context.Context, store types.Store, opts CatalogOptions) (*Catalog, error) {
	objects, err := store.List(ctx, opts.Prefix, opts.Extensions)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageList, "failed to list catalog").
			WithComponent("gallery").
			WithOperation("catalog").
			WithContext("prefix", opts.Prefix)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if !types.MatchesExtension(obj.Key, opts.Extensions) {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return NewCatalog(keys, opts.Matrix), nil
}

// NewCatalog builds a catalog from keys. Directory placeholders are
// dropped and, with a matrix, so are variants of catalogued originals.
func NewCatalog(keys []string, matrix *naming.Matrix) *Catalog {
	stems := make(map[string]struct{})
	if matrix != nil {
		for _, k := range keys {
			if !matrix.IsVariantKey(k) {
				stems[naming.StripExtension(k)] = struct{}{}
			}
		}
	}

	c := &Catalog{index: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if k == "" || k[len(k)-1] == '/' {
			continue
		}
		if _, dup := c.index[k]; dup {
			continue
		}
		if matrix != nil && matrix.IsVariantKey(k) {
			d, _ := naming.Parse(k)
			if _, ok := stems[d.Stem]; ok {
				continue
			}
		}
		c.index[k] = struct{}{}
		c.keys = append(c.keys, k)
	}
	sort.Strings(c.keys)
	return c
}

// Keys returns the catalogued keys in sorted order.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of images.
func (c *Catalog) Len() int {
	return len(c.keys)
}

// Contains reports whether key is catalogued.
func (c *Catalog) Contains(key string) bool {
	_, ok := c.index[key]
	return ok
}

// Lookup returns key if it is catalogued, IMAGE_NOT_FOUND otherwise.
func (c *Catalog) Lookup(key string) (string, error) {
	if !c.Contains(key) {
		return "", notFound(key)
	}
	return key, nil
}

// Pick returns the key at n modulo the catalog size.
func (c *Catalog) Pick(n int) (string, error) {
	if len(c.keys) == 0 {
		return "", errors.NewError(errors.ErrCodeImageNotFound, "catalog is empty").
			WithComponent("gallery")
	}
	i := n % len(c.keys)
	if i < 0 {
		i += len(c.keys)
	}
	return c.keys[i], nil
}

func notFound(key string) error {
	return errors.NewError(errors.ErrCodeImageNotFound, "image not found").
		WithComponent("gallery").
		WithContext("key", key)
}
