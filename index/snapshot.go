package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

// Snapshot is the read-only retrieval state loaded once at startup and shared
// by all queries: the chunk table, one FlatIndex per built variant, and the
// triples with their vectors.
type Snapshot struct {
	manifest    *core.Manifest
	chunks      []*core.Chunk
	indices     map[core.Variant]*FlatIndex
	triples     []core.Triple
	tripleIndex *FlatIndex
}

// Load reads every artifact of a build and checks that they are in lockstep.
// A missing build is ErrIndexNotBuilt; any disagreement is ErrInconsistentIndex.
func Load(ctx context.Context, repos *storage.Repositories) (*Snapshot, error) {
	logger := slog.Default().With("component", "index-loader")

	manifest, err := repos.Manifests.LoadManifest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrIndexNotBuilt
		}
		return nil, err
	}

	chunks, err := repos.Chunks.AllChunks(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkChunks(manifest, chunks); err != nil {
		return nil, err
	}

	forward, reverse, err := repos.Chunks.KeyMappings(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkKeyMapping(manifest, chunks, forward, reverse); err != nil {
		return nil, err
	}

	s := &Snapshot{
		manifest: manifest,
		chunks:   chunks,
		indices:  make(map[core.Variant]*FlatIndex, len(manifest.Variants)),
	}

	for _, variant := range manifest.Variants {
		entries, err := repos.Vectors.Vectors(ctx, storage.SpaceFor(variant))
		if err != nil {
			return nil, err
		}
		idx, err := buildIndex(manifest, entries, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", variant, err)
		}
		s.indices[variant] = idx
	}

	s.triples, err = repos.Triples.AllTriples(ctx)
	if err != nil {
		return nil, err
	}
	if len(s.triples) != manifest.TripleCount {
		return nil, fmt.Errorf("%w: %d triples stored, manifest lists %d", ErrInconsistentIndex, len(s.triples), manifest.TripleCount)
	}
	for i, t := range s.triples {
		if t.ChunkID < 0 || t.ChunkID >= len(chunks) {
			return nil, fmt.Errorf("%w: triple %d points at chunk %d", ErrInconsistentIndex, i, t.ChunkID)
		}
	}
	tripleEntries, err := repos.Vectors.Vectors(ctx, storage.TripleSpace)
	if err != nil {
		return nil, err
	}
	if s.tripleIndex, err = buildIndex(manifest, tripleEntries, len(s.triples)); err != nil {
		return nil, fmt.Errorf("triples: %w", err)
	}

	logger.Info("index loaded",
		"build", manifest.BuildID,
		"chunks", len(chunks),
		"variants", len(s.indices),
		"triples", len(s.triples))
	return s, nil
}

func checkChunks(manifest *core.Manifest, chunks []*core.Chunk) error {
	if len(chunks) != manifest.ChunkCount {
		return fmt.Errorf("%w: %d chunks stored, manifest lists %d", ErrInconsistentIndex, len(chunks), manifest.ChunkCount)
	}
	for i, c := range chunks {
		if c.ID != i {
			return fmt.Errorf("%w: chunk at position %d has id %d", ErrInconsistentIndex, i, c.ID)
		}
	}
	return nil
}

func checkKeyMapping(manifest *core.Manifest, chunks []*core.Chunk, forward map[int]core.ID, reverse map[core.ID]int) error {
	if len(forward) != len(chunks) || len(reverse) != len(chunks) {
		return fmt.Errorf("%w: key mapping has %d/%d entries for %d chunks", ErrInconsistentIndex, len(forward), len(reverse), len(chunks))
	}
	keys := make([]core.ID, len(chunks))
	for i, c := range chunks {
		if key, ok := forward[i]; !ok || key != c.Key {
			return fmt.Errorf("%w: chunk %d key mapping disagrees with chunk table", ErrInconsistentIndex, i)
		}
		if id, ok := reverse[c.Key]; !ok || id != i {
			return fmt.Errorf("%w: key of chunk %d maps back to %d", ErrInconsistentIndex, i, id)
		}
		keys[i] = c.Key
	}
	if core.KeyFingerprint(keys) != manifest.Fingerprint {
		return fmt.Errorf("%w: key fingerprint does not match manifest", ErrInconsistentIndex)
	}
	return nil
}

func buildIndex(manifest *core.Manifest, entries []core.IndexEntry, want int) (*FlatIndex, error) {
	if len(entries) != want {
		return nil, fmt.Errorf("%w: %d vectors for %d records", ErrInconsistentIndex, len(entries), want)
	}
	idx, err := NewFlatIndex(entries)
	if err != nil {
		return nil, err
	}
	if idx.Len() > 0 && idx.Dimension() != manifest.Dimension {
		return nil, fmt.Errorf("%w: vectors have %d dimensions, manifest lists %d", ErrDimensionMismatch, idx.Dimension(), manifest.Dimension)
	}
	return idx, nil
}

// Manifest returns the description of the loaded build.
func (s *Snapshot) Manifest() *core.Manifest {
	return s.manifest
}

// Len returns the number of chunks.
func (s *Snapshot) Len() int {
	return len(s.chunks)
}

// Chunk returns the chunk with the given id.
func (s *Snapshot) Chunk(id int) (*core.Chunk, bool) {
	if id < 0 || id >= len(s.chunks) {
		return nil, false
	}
	return s.chunks[id], true
}

// Index returns the FlatIndex of variant.
// A variant that was not built is ErrVariantMissing; there is no fallback to another variant.
func (s *Snapshot) Index(variant core.Variant) (*FlatIndex, error) {
	idx, ok := s.indices[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s (built: %v)", ErrVariantMissing, variant, s.manifest.Variants)
	}
	return idx, nil
}

// Triples returns every triple in position order.
func (s *Snapshot) Triples() []core.Triple {
	return s.triples
}

// TripleIndex returns the index of triple vectors. Position i holds triple i.
func (s *Snapshot) TripleIndex() *FlatIndex {
	return s.tripleIndex
}
