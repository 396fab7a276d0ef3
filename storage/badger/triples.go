package badger

import (
	"context"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

// TripleRepository implements storage.TripleRepository for BadgerDB.
type TripleRepository struct {
	backend *Backend
}

var _ storage.TripleRepository = (*TripleRepository)(nil)

// NewTripleRepository creates a new TripleRepository.
func NewTripleRepository(backend *Backend) *TripleRepository {
	return &TripleRepository{backend: backend}
}

// AddTriples appends triples after the stored ones, keeping the count in the same transaction.
func (r *TripleRepository) AddTriples(ctx context.Context, triples ...core.Triple) error {
	if len(triples) == 0 {
		return nil
	}
	for i := range triples {
		if err := core.ValidateTriple(&triples[i]); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		count, err := readCount(tx, []byte(tripleCountKey))
		if err != nil {
			return err
		}
		for _, triple := range triples {
			if err := tx.Set(makeTripleKey(count), storage.MarshalTriple(triple)); err != nil {
				return err
			}
			count++
		}
		if err := tx.Set([]byte(tripleCountKey), []byte(strconv.Itoa(count))); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AllTriples returns every triple in position order.
func (r *TripleRepository) AllTriples(ctx context.Context) ([]core.Triple, error) {
	triples := []core.Triple{}
	err := r.backend.scan([]byte(triplePrefix), func(_, val []byte) error {
		triple, err := storage.UnmarshalTriple(val)
		if err != nil {
			return err
		}
		triples = append(triples, triple)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return triples, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *TripleRepository) Close() error {
	return nil
}

func readCount(tx *badger.Txn, key []byte) (int, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var count int
	err = item.Value(func(val []byte) error {
		count, err = strconv.Atoi(string(val))
		return err
	})
	return count, err
}
