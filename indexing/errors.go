package indexing

import "errors"

var (
	// ErrRepositoriesRequired is returned when no repositories are provided.
	ErrRepositoriesRequired = errors.New("repositories required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrIndexExists is returned when the target store already holds a build.
	ErrIndexExists = errors.New("index already built")

	// ErrNoChunks is returned when the documents produce no chunks at all.
	ErrNoChunks = errors.New("documents produced no chunks")

	// ErrNoVariants is returned when a build is configured without any variant.
	ErrNoVariants = errors.New("at least one variant required")

	// ErrEmbeddingFailed wraps collaborator failures that abort a build.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrDimensionMismatch is returned when the embedder returns vectors of differing lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
