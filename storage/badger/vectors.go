package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) *VectorRepository {
	return &VectorRepository{backend: backend}
}

// PutVectors writes entries through a write batch; a full build does not fit one transaction.
func (r *VectorRepository) PutVectors(ctx context.Context, space string, entries ...core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makeVectorKey(space, entry.ChunkID), storage.MarshalIndexEntry(entry)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Vectors returns every entry of space ordered by ChunkID.
func (r *VectorRepository) Vectors(ctx context.Context, space string) ([]core.IndexEntry, error) {
	entries := []core.IndexEntry{}
	err := r.backend.scan(makeVectorPrefix(space), func(_, val []byte) error {
		entry, err := storage.UnmarshalIndexEntry(val)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *VectorRepository) Close() error {
	return nil
}
