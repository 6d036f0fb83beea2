// Package memory is an in-process object store. It backs tests and the
// generator's dry-run mode, and can inject per-key failures.
package memory

import (
	"context"
	"crypto/md5" // #nosec G501 -- ETag parity with S3, not a security use
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/photovariant/photovariant/pkg/errors"
	"github.com/photovariant/photovariant/pkg/types"
)

type object struct {
	data []byte
	info types.ObjectInfo
}

// Store implements types.Store in memory.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object

	failExists map[string]error
	failPut    map[string]int
	putErr     error
	failGet    map[string]error

	probes map[string]int
	puts   int
	now    func() time.Time
}

var _ types.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		objects:    make(map[string]object),
		failExists: make(map[string]error),
		failPut:    make(map[string]int),
		failGet:    make(map[string]error),
		probes:     make(map[string]int),
		now:        time.Now,
	}
}

// Seed stores keys with placeholder content.
func (s *Store) Seed(keys ...string) {
	for _, k := range keys {
		_ = s.Put(context.Background(), k, []byte(k), types.PutOptions{})
	}
}

// List returns matching objects sorted by key.
func (s *Store) List(ctx context.Context, prefix string, extensions []string) ([]types.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.ObjectInfo
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) || !types.MatchesExtension(key, extensions) {
			continue
		}
		out = append(out, obj.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Exists probes key and counts the probe.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	s.probes[key]++
	err := s.failExists[key]
	_, ok := s.objects[key]
	s.mu.Unlock()

	if err != nil {
		return false, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	return ok, nil
}

// Put stores a copy of data.
func (s *Store) Put(ctx context.Context, key string, data []byte, opts types.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if n := s.failPut[key]; n != 0 {
		if n > 0 {
			s.failPut[key] = n - 1
		}
		return s.writeErr(key)
	}

	sum := md5.Sum(data) // #nosec G401
	buf := append([]byte(nil), data...)
	s.objects[key] = object{
		data: buf,
		info: types.ObjectInfo{
			Key:          key,
			Size:         int64(len(buf)),
			LastModified: s.now(),
			ETag:         hex.EncodeToString(sum[:]),
			ContentType:  opts.ContentType,
			CacheControl: opts.CacheControl,
		},
	}
	return nil
}

func (s *Store) writeErr(key string) error {
	if s.putErr != nil {
		return s.putErr
	}
	return errors.NewError(errors.ErrCodeStorageWrite, "injected write failure").
		WithComponent("memory").
		WithOperation("put").
		WithContext("key", key)
}

// Get returns a copy of the stored bytes.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failGet[key]; err != nil {
		return nil, err
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, errors.NewError(errors.ErrCodeObjectNotFound, "object not found").
			WithComponent("memory").
			WithOperation("get").
			WithContext("key", key)
	}
	return append([]byte(nil), obj.data...), nil
}

// Stat returns the stored headers for key.
func (s *Store) Stat(key string) (types.ObjectInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.info, ok
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
}

// Keys returns every stored key in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FailExists makes probes of key return err. A nil err clears the failure.
func (s *Store) FailExists(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failExists, key)
		return
	}
	s.failExists[key] = err
}

// FailPut makes the next times writes of key fail. A negative count fails
// every write.
func (s *Store) FailPut(key string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut[key] = times
}

// SetPutError replaces the error returned by injected write failures.
func (s *Store) SetPutError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

// FailGet makes reads of key return err.
func (s *Store) FailGet(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet[key] = err
}

// Probes returns how many times key was probed.
func (s *Store) Probes(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.probes[key]
}

// TotalProbes returns the number of probes across all keys.
func (s *Store) TotalProbes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.probes {
		n += c
	}
	return n
}

// Puts returns the number of write attempts, failed ones included.
func (s *Store) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

// HealthCheck always succeeds unless ctx is done.
func (s *Store) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
