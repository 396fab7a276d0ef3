package storage

import (
	"context"

	"github.com/poiesic/policyrag/core"
)

// TripleSpace is the vector space holding triple embeddings.
// Entries in it carry the triple's position in ChunkID.
const TripleSpace = "triple"

// SpaceFor returns the vector space name of an embedding variant.
func SpaceFor(v core.Variant) string {
	return v.String()
}

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases the repository. The shared backend is closed separately.
	Close() error
}

// ChunkRepository stores the chunk-metadata table and the chunk id <-> external key mapping.
type ChunkRepository interface {
	Repository

	// AddChunks stores chunks under their ID and records both directions of
	// the ID <-> Key mapping. Returns ErrDuplicateKey if a key is already mapped
	// to a different chunk id.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by id.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id int) (*core.Chunk, error)

	// AllChunks returns every chunk ordered by id.
	AllChunks(ctx context.Context) ([]*core.Chunk, error)

	// ChunkIDForKey resolves an external key.
	// Returns ErrNotFound if the key isn't mapped.
	ChunkIDForKey(ctx context.Context, key core.ID) (int, error)

	// KeyMappings returns both directions of the mapping as stored.
	KeyMappings(ctx context.Context) (forward map[int]core.ID, reverse map[core.ID]int, err error)
}

// VectorRepository stores normalized vectors grouped into named spaces,
// one space per embedding variant plus TripleSpace.
type VectorRepository interface {
	Repository

	// PutVectors stores entries in space, keyed by ChunkID.
	PutVectors(ctx context.Context, space string, entries ...core.IndexEntry) error

	// Vectors returns every entry of space ordered by ChunkID.
	// Returns an empty slice for a space that was never written.
	Vectors(ctx context.Context, space string) ([]core.IndexEntry, error)
}

// TripleRepository stores extracted triples. A triple's identity is its position.
type TripleRepository interface {
	Repository

	// AddTriples appends triples after any already stored.
	AddTriples(ctx context.Context, triples ...core.Triple) error

	// AllTriples returns every triple in position order.
	AllTriples(ctx context.Context) ([]core.Triple, error)
}

// ManifestRepository stores the description of the current build.
type ManifestRepository interface {
	Repository

	// SaveManifest replaces the stored manifest.
	SaveManifest(ctx context.Context, manifest *core.Manifest) error

	// LoadManifest returns the stored manifest.
	// Returns ErrNotFound if no build has completed.
	LoadManifest(ctx context.Context) (*core.Manifest, error)
}

// Repositories groups the repositories of one index store.
type Repositories struct {
	Chunks    ChunkRepository
	Vectors   VectorRepository
	Triples   TripleRepository
	Manifests ManifestRepository
}

// Close closes every non-nil repository and returns the first error.
func (r *Repositories) Close() error {
	var first error
	for _, repo := range []Repository{r.Chunks, r.Vectors, r.Triples, r.Manifests} {
		if repo == nil {
			continue
		}
		if err := repo.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
