package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovariant/photovariant/internal/cache"
	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/internal/storage/memory"
)

const original = "images/DSCF3623.jpg"

type outcomeRecord struct {
	outcomes []string
}

func (o *outcomeRecord) RecordProbe(bool, bool)                 {}
func (o *outcomeRecord) RecordResolution(outcome string)        { o.outcomes = append(o.outcomes, outcome) }
func (o *outcomeRecord) RecordVariant(string, int, int64, bool) {}
func (o *outcomeRecord) RecordOriginal(bool)                    {}

func newResolver(t *testing.T, keys ...string) (*Resolver, *memory.Store, *outcomeRecord) {
	t.Helper()
	m, err := naming.NewMatrix([]int{1600, 960}, []naming.Format{naming.FormatAVIF, naming.FormatWEBP, naming.FormatJPEG})
	require.NoError(t, err)

	store := memory.New()
	store.Seed(keys...)
	rec := &outcomeRecord{}
	c := cache.NewExistenceCache(store, &cache.Config{MaxEntries: 128, Shards: 4, Matrix: m}, nil)
	return New(m, c, rec), store, rec
}

func TestResolvePicksNextInOrder(t *testing.T) {
	r, store, rec := newResolver(t, original, "images/DSCF3623_960.webp")

	res := r.ResolveDetailed(context.Background(), original)
	assert.Equal(t, "images/DSCF3623_960.webp", res.Key)
	require.NotNil(t, res.Spec)
	assert.Equal(t, naming.Spec{Width: 960, Format: naming.FormatWEBP}, *res.Spec)
	assert.Equal(t, 5, res.Probes)
	assert.False(t, res.Fallback())
	assert.Equal(t, []string{OutcomeVariant}, rec.outcomes)
	assert.Equal(t, 0, store.Probes("images/DSCF3623_960.jpg"))
}

func TestResolveWidthBeatsFormat(t *testing.T) {
	r, _, _ := newResolver(t, original, "images/DSCF3623_1600.avif", "images/DSCF3623_960.jpg")
	assert.Equal(t, "images/DSCF3623_1600.avif", r.Resolve(context.Background(), original))

	r, _, _ = newResolver(t, original, "images/DSCF3623_1600.jpg", "images/DSCF3623_960.avif")
	assert.Equal(t, "images/DSCF3623_1600.jpg", r.Resolve(context.Background(), original))
}

func TestResolveFallsBackToOriginalWithoutProbingIt(t *testing.T) {
	r, store, rec := newResolver(t)

	res := r.ResolveDetailed(context.Background(), original)
	assert.Equal(t, original, res.Key)
	assert.True(t, res.Fallback())
	assert.Equal(t, 6, res.Probes)
	assert.Equal(t, 0, store.Probes(original))
	assert.Equal(t, []string{OutcomeOriginal}, rec.outcomes)
}

func TestResolveAlwaysReturnsCandidate(t *testing.T) {
	r, _, _ := newResolver(t, "x/a_960.jpg", "b_1600.webp")
	for _, k := range []string{"x/a.png", "b.jpeg", "c", "dir.v/d"} {
		got := r.Resolve(context.Background(), k)
		assert.Contains(t, r.Matrix().Candidates(k), got)
	}
}

func TestResolveTreatsProbeFailureAsMissing(t *testing.T) {
	r, store, _ := newResolver(t, "images/DSCF3623_1600.avif", "images/DSCF3623_960.webp")
	store.FailExists("images/DSCF3623_1600.avif", assert.AnError)

	assert.Equal(t, "images/DSCF3623_960.webp", r.Resolve(context.Background(), original))
}

func TestResolveUsesCache(t *testing.T) {
	r, store, _ := newResolver(t, "images/DSCF3623_960.jpg")
	ctx := context.Background()

	first := r.Resolve(ctx, original)
	second := r.Resolve(ctx, original)
	assert.Equal(t, first, second)
	assert.Equal(t, 6, store.TotalProbes())
}
