package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

// ManifestRepository implements storage.ManifestRepository for BadgerDB.
type ManifestRepository struct {
	backend *Backend
}

var _ storage.ManifestRepository = (*ManifestRepository)(nil)

// NewManifestRepository creates a new ManifestRepository.
func NewManifestRepository(backend *Backend) *ManifestRepository {
	return &ManifestRepository{backend: backend}
}

// SaveManifest persists the build manifest. It is written last, so its presence marks a complete build.
func (r *ManifestRepository) SaveManifest(ctx context.Context, manifest *core.Manifest) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(manifestKey), storage.MarshalManifest(manifest)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadManifest retrieves the build manifest.
// Returns storage.ErrNotFound if no build has completed.
func (r *ManifestRepository) LoadManifest(ctx context.Context) (*core.Manifest, error) {
	var manifest *core.Manifest
	err := r.backend.get([]byte(manifestKey), func(val []byte) error {
		var err error
		manifest, err = storage.UnmarshalManifest(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *ManifestRepository) Close() error {
	return nil
}
