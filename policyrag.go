// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package policyrag

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/index"
	"github.com/poiesic/policyrag/indexing"
	"github.com/poiesic/policyrag/search"
	"github.com/poiesic/policyrag/storage"
	"github.com/poiesic/policyrag/storage/badger"
)

// Store is an index store on disk or in memory.
type Store struct {
	backend *badger.Backend
	repos   *storage.Repositories
	logger  *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	readOnly bool
	inMemory bool
	logger   *slog.Logger
}

// ReadOnly opens an existing store for serving. Builds are refused.
func ReadOnly() StoreOption {
	return func(o *storeOptions) {
		o.readOnly = true
	}
}

// InMemory keeps the store in memory. The path is ignored.
func InMemory() StoreOption {
	return func(o *storeOptions) {
		o.inMemory = true
	}
}

// WithStoreLogger sets a custom logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func OpenStore(filePath string, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	var backend *badger.Backend
	var err error
	if options.readOnly && !options.inMemory {
		backend, err = badger.OpenReadOnly(filePath)
	} else {
		backend, err = badger.OpenBackend(filePath, options.inMemory)
	}
	if err != nil {
		return nil, err
	}

	return &Store{
		backend: backend,
		repos:   badger.NewRepositories(backend),
		logger:  options.logger.With("component", "store"),
	}, nil
}

func (s *Store) Close() error {
	if err := s.repos.Close(); err != nil {
		s.logger.Error("error closing repositories", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *Store) Repositories() *storage.Repositories {
	return s.repos
}

// Manifest returns the description of the stored build.
// Returns index.ErrIndexNotBuilt for an empty store.
func (s *Store) Manifest(ctx context.Context) (*core.Manifest, error) {
	m, err := s.repos.Manifests.LoadManifest(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, index.ErrIndexNotBuilt
	}
	return m, err
}

// NewBuilder returns a builder writing into the store.
// The caller must Release it.
func (s *Store) NewBuilder(provider ai.AIProvider, opts ...indexing.Option) (*indexing.Builder, error) {
	if s.backend.ReadOnly() {
		return nil, storage.ErrReadOnly
	}
	return indexing.NewBuilder(s.repos, provider, opts...)
}

// Build indexes docs into an empty store.
func (s *Store) Build(ctx context.Context, provider ai.AIProvider, docs []core.Document, opts ...indexing.Option) (*core.Manifest, error) {
	builder, err := s.NewBuilder(provider, opts...)
	if err != nil {
		return nil, err
	}
	defer builder.Release()
	return builder.Build(ctx, docs)
}

// Rebuild discards the stored build and indexes docs from scratch.
func (s *Store) Rebuild(ctx context.Context, provider ai.AIProvider, docs []core.Document, opts ...indexing.Option) (*core.Manifest, error) {
	if err := s.backend.Reset(); err != nil {
		return nil, err
	}
	s.logger.Info("discarded previous build")
	return s.Build(ctx, provider, docs, opts...)
}

// Snapshot loads and validates the stored build.
func (s *Store) Snapshot(ctx context.Context) (*index.Snapshot, error) {
	return index.Load(ctx, s.repos)
}

// NewRetriever loads the stored build and creates a retriever over it.
// embedder must produce vectors in the space the index was built with.
func (s *Store) NewRetriever(ctx context.Context, embedder ai.Embedder, opts ...search.Option) (*search.Retriever, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return search.NewRetriever(snapshot, embedder, opts...)
}
