package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/pkg/types"
)

// Original is one source image awaiting generation.
type Original struct {
	Key  string
	Size int64
	Load func(ctx context.Context) ([]byte, error)
}

// Source enumerates originals.
type Source interface {
	Originals(ctx context.Context) ([]Original, error)
}

// DirSource reads originals from a local directory. Subdirectories are
// not descended into. Variant keys are KeyPrefix + file name.
type DirSource struct {
	Dir        string
	Extensions []string
	KeyPrefix  string
}

// Originals lists matching files in name order.
func (s *DirSource) Originals(ctx context.Context) ([]Original, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var originals []Original
	for _, entry := range entries {
		if entry.IsDir() || !types.MatchesExtension(entry.Name(), s.Extensions) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		path := filepath.Join(s.Dir, entry.Name())
		originals = append(originals, Original{
			Key:  s.KeyPrefix + entry.Name(),
			Size: info.Size(),
			Load: func(context.Context) ([]byte, error) {
				return os.ReadFile(path)
			},
		})
	}
	return originals, nil
}

// BucketSource reads originals already stored under Prefix. Keys that
// are variants of the matrix are skipped.
type BucketSource struct {
	Store      types.Store
	Prefix     string
	Extensions []string
	Matrix     naming.Matrix
}

// Originals lists the bucket once.
func (s *BucketSource) Originals(ctx context.Context) ([]Original, error) {
	objects, err := s.Store.List(ctx, s.Prefix, s.Extensions)
	if err != nil {
		return nil, err
	}

	var originals []Original
	for _, obj := range objects {
		if s.Matrix.IsVariantKey(obj.Key) {
			continue
		}
		key := obj.Key
		originals = append(originals, Original{
			Key:  key,
			Size: obj.Size,
			Load: func(ctx context.Context) ([]byte, error) {
				return s.Store.Get(ctx, key)
			},
		})
	}
	return originals, nil
}
