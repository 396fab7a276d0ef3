package badger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// AddChunks stores chunks and both directions of their key mapping in one transaction.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			// A key already mapped to another id means two chunks collapsed into one key.
			item, err := tx.Get(makeKeyIndexKey(chunk.Key))
			switch {
			case err == nil:
				var existing int
				if err := item.Value(func(val []byte) error {
					existing, err = strconv.Atoi(string(val))
					return err
				}); err != nil {
					return err
				}
				if existing != chunk.ID {
					return fmt.Errorf("%w: key %d maps to chunks %d and %d", storage.ErrDuplicateKey, chunk.Key, existing, chunk.ID)
				}
			case err != badger.ErrKeyNotFound:
				return err
			}

			if err := tx.Set(makeChunkKey(chunk.ID), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			if err := tx.Set(makeKeyMapKey(chunk.ID), storage.MarshalID(chunk.Key)); err != nil {
				return err
			}
			if err := tx.Set(makeKeyIndexKey(chunk.Key), []byte(strconv.Itoa(chunk.ID))); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by id.
func (r *ChunkRepository) GetChunk(ctx context.Context, id int) (*core.Chunk, error) {
	var chunk *core.Chunk
	err := r.backend.get(makeChunkKey(id), func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// AllChunks returns every chunk ordered by id.
func (r *ChunkRepository) AllChunks(ctx context.Context) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.scan([]byte(chunkPrefix), func(_, val []byte) error {
		chunk, err := storage.UnmarshalChunk(val)
		if err != nil {
			return err
		}
		chunks = append(chunks, chunk)
		return nil
	})
	return chunks, err
}

// ChunkIDForKey resolves an external key to its chunk id.
func (r *ChunkRepository) ChunkIDForKey(ctx context.Context, key core.ID) (int, error) {
	var id int
	err := r.backend.get(makeKeyIndexKey(key), func(val []byte) error {
		var err error
		id, err = strconv.Atoi(string(val))
		return err
	})
	return id, err
}

// KeyMappings returns both directions of the id <-> key mapping as stored.
func (r *ChunkRepository) KeyMappings(ctx context.Context) (map[int]core.ID, map[core.ID]int, error) {
	forward := make(map[int]core.ID)
	err := r.backend.scan([]byte(keyMapPrefix), func(key, val []byte) error {
		id, err := storage.UnmarshalID(val)
		if err != nil {
			return err
		}
		forward[positionFromKey(key)] = id
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	reverse := make(map[core.ID]int)
	err = r.backend.scan([]byte(keyIndexPrefix), func(key, val []byte) error {
		id, err := strconv.Atoi(string(val))
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		reverse[core.ID(positionFromKey(key))] = id
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return forward, reverse, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *ChunkRepository) Close() error {
	return nil
}
