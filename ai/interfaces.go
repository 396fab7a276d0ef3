package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
// Returned vectors need not be normalized; the index normalizes them itself.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TripleExtractor pulls subject-predicate-object facts out of a passage.
// Implementations must be thread-safe for concurrent use.
type TripleExtractor interface {
	// ExtractTriples returns the facts stated in text.
	// Returns an empty slice if the text states nothing extractable.
	ExtractTriples(ctx context.Context, text string) ([]ExtractedTriple, error)
}

// Summarizer produces a one-line summary of a passage.
type Summarizer interface {
	// Summarize returns a single line describing text, or "" when the model has nothing to say.
	Summarize(ctx context.Context, text string) (string, error)
}

// CrossEncoder scores (query, passage) pairs jointly.
// It is only called from inside the rerank worker process.
type CrossEncoder interface {
	// Logits returns one row of raw logits per text, in input order.
	// Rows have one element for single-output models and two for binary classifiers.
	Logits(ctx context.Context, query string, texts []string) ([][]float32, error)
}

// TokenCounter measures text length in model tokens.
type TokenCounter interface {
	CountTokens(text string) int
}

// AIProvider aggregates the build-time AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// TripleExtractor returns the triple extraction service.
	TripleExtractor() TripleExtractor

	// Summarizer returns the one-line summary service.
	Summarizer() Summarizer

	// EmbeddingModel names the model behind Embedder. It is recorded in the index manifest.
	EmbeddingModel() string

	// Close releases resources held by the provider and its services.
	Close() error
}
