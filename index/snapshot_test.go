package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
	"github.com/poiesic/policyrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos    *storage.Repositories
	manifest *core.Manifest
	chunks   []*core.Chunk
}

// newFixture writes a consistent three-chunk build with the given variants.
func newFixture(t *testing.T, variants ...core.Variant) *fixture {
	t.Helper()
	ctx := context.Background()
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	f := &fixture{repos: repos}
	keys := make([]core.ID, 3)
	for i := 0; i < 3; i++ {
		c := &core.Chunk{ID: i, DocumentID: "d", BlockIndex: i, End: 5, Text: fmt.Sprintf("text%d", i)}
		c.Key = c.ExternalKey()
		keys[i] = c.Key
		f.chunks = append(f.chunks, c)
	}
	require.NoError(t, repos.Chunks.AddChunks(ctx, f.chunks...))

	for _, v := range variants {
		require.NoError(t, repos.Vectors.PutVectors(ctx, storage.SpaceFor(v), entries(
			[]float32{1, 0}, []float32{0, 1}, []float32{1, 1},
		)...))
	}

	triples := []core.Triple{
		{Subject: "a", Predicate: "p", Object: "b", ChunkID: 0},
		{Subject: "b", Predicate: "p", Object: "c", ChunkID: 2},
	}
	require.NoError(t, repos.Triples.AddTriples(ctx, triples...))
	require.NoError(t, repos.Vectors.PutVectors(ctx, storage.TripleSpace, entries([]float32{1, 0}, []float32{0, 3})...))

	f.manifest = &core.Manifest{
		BuildID:     "test",
		Dimension:   2,
		ChunkCount:  3,
		Variants:    variants,
		TripleCount: 2,
		Fingerprint: core.KeyFingerprint(keys),
	}
	require.NoError(t, repos.Manifests.SaveManifest(ctx, f.manifest))
	return f
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.VariantContent, core.VariantPrefix)

	snap, err := Load(ctx, f.repos)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, "test", snap.Manifest().BuildID)
	c, ok := snap.Chunk(1)
	require.True(t, ok)
	assert.Equal(t, "text1", c.Text)
	_, ok = snap.Chunk(3)
	assert.False(t, ok)

	idx, err := snap.Index(core.VariantPrefix)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0}, ids(idx.Search([]float32{0, 1}, 3)))

	_, err = snap.Index(core.VariantKeyword)
	assert.ErrorIs(t, err, ErrVariantMissing)

	assert.Len(t, snap.Triples(), 2)
	assert.Equal(t, 2, snap.TripleIndex().Len())
	assert.InDelta(t, 1.0, snap.TripleIndex().Vector(1)[1], 1e-6)
}

func TestLoad_NotBuilt(t *testing.T) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = Load(context.Background(), repos)
	assert.ErrorIs(t, err, ErrIndexNotBuilt)
}

func TestLoad_Inconsistent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		corrupt func(t *testing.T, f *fixture)
		want    error
	}{
		{
			name: "manifest chunk count",
			corrupt: func(t *testing.T, f *fixture) {
				f.manifest.ChunkCount = 4
				require.NoError(t, f.repos.Manifests.SaveManifest(ctx, f.manifest))
			},
			want: ErrInconsistentIndex,
		},
		{
			name: "fingerprint",
			corrupt: func(t *testing.T, f *fixture) {
				f.manifest.Fingerprint++
				require.NoError(t, f.repos.Manifests.SaveManifest(ctx, f.manifest))
			},
			want: ErrInconsistentIndex,
		},
		{
			name: "missing vectors in one variant",
			corrupt: func(t *testing.T, f *fixture) {
				f.manifest.Variants = append(f.manifest.Variants, core.VariantKeyword)
				require.NoError(t, f.repos.Vectors.PutVectors(ctx, storage.SpaceFor(core.VariantKeyword), entries([]float32{1, 0})...))
				require.NoError(t, f.repos.Manifests.SaveManifest(ctx, f.manifest))
			},
			want: ErrInconsistentIndex,
		},
		{
			name: "dimension differs from manifest",
			corrupt: func(t *testing.T, f *fixture) {
				f.manifest.Dimension = 768
				require.NoError(t, f.repos.Manifests.SaveManifest(ctx, f.manifest))
			},
			want: ErrDimensionMismatch,
		},
		{
			name: "extra chunk",
			corrupt: func(t *testing.T, f *fixture) {
				c := &core.Chunk{ID: 3, DocumentID: "d", End: 1, Text: "x"}
				c.Key = c.ExternalKey()
				require.NoError(t, f.repos.Chunks.AddChunks(ctx, c))
			},
			want: ErrInconsistentIndex,
		},
		{
			name: "triple count",
			corrupt: func(t *testing.T, f *fixture) {
				require.NoError(t, f.repos.Triples.AddTriples(ctx, core.Triple{Subject: "x", Predicate: "y", Object: "z"}))
			},
			want: ErrInconsistentIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, core.VariantContent)
			tt.corrupt(t, f)

			_, err := Load(ctx, f.repos)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
