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


package indexing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/chunking"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/index"
	"github.com/poiesic/policyrag/storage"
)

const (
	// DefaultBatchSize is the number of texts sent to the embedder per call.
	DefaultBatchSize = 32
	// DefaultMaxRetries is the number of attempts made for each embedding batch.
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay is the first backoff delay between embedding attempts.
	DefaultRetryBaseDelay = 500 * time.Millisecond
	// MinSummaryLength is the shortest chunk text, in characters, that gets a summary.
	MinSummaryLength = 50

	// writeBatch bounds the records written per storage transaction.
	writeBatch = 256
)

// Builder turns parsed documents into a persisted index.
type Builder struct {
	repos    *storage.Repositories
	provider ai.AIProvider
	pool     *ants.Pool

	chunker   *chunking.Chunker
	variants  []core.Variant
	counter   ai.TokenCounter
	batchSize int
	retries   backoff
	summaries bool
	triples   bool
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithChunkSize sets the chunker's maximum size and overlap in characters.
func WithChunkSize(maxSize, overlap int) Option {
	return func(b *Builder) error {
		c, err := chunking.New(maxSize, overlap)
		if err != nil {
			return err
		}
		b.chunker = c
		return nil
	}
}

// WithVariants selects the embedding variants to build. Default is all of them.
func WithVariants(variants ...core.Variant) Option {
	return func(b *Builder) error {
		if len(variants) == 0 {
			return ErrNoVariants
		}
		seen := make(map[core.Variant]bool, len(variants))
		b.variants = b.variants[:0:0]
		for _, v := range variants {
			if err := core.ValidateVariant(v); err != nil {
				return err
			}
			if !seen[v] {
				seen[v] = true
				b.variants = append(b.variants, v)
			}
		}
		return nil
	}
}

// WithTokenCounter sets the counter used for Chunk.TokenCount.
// Default is ai.WordCounter.
func WithTokenCounter(counter ai.TokenCounter) Option {
	return func(b *Builder) error {
		if counter != nil {
			b.counter = counter
		}
		return nil
	}
}

// WithPoolSize sets the worker pool size for extraction and embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if b.pool != nil {
			b.pool.Release()
		}
		b.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of texts per embedding call.
func WithBatchSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		b.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts and base backoff delay for embedding calls.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(b *Builder) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		b.retries.attempts = maxAttempts
		b.retries.baseDelay = baseDelay
		return nil
	}
}

// WithSummaries enables or disables one-line chunk summaries. Default is enabled.
// Without summaries the prefix variant embeds the plain chunk text.
func WithSummaries(enabled bool) Option {
	return func(b *Builder) error {
		b.summaries = enabled
		return nil
	}
}

// WithTriples enables or disables triple extraction. Default is enabled.
func WithTriples(enabled bool) Option {
	return func(b *Builder) error {
		b.triples = enabled
		return nil
	}
}

// WithProgress reports stage progress to w. Default is no output.
func WithProgress(w io.Writer) Option {
	return func(b *Builder) error {
		b.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates an index builder writing into repos.
func NewBuilder(repos *storage.Repositories, provider ai.AIProvider, opts ...Option) (*Builder, error) {
	if repos == nil || repos.Chunks == nil || repos.Vectors == nil || repos.Triples == nil || repos.Manifests == nil {
		return nil, ErrRepositoriesRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	b := &Builder{
		repos:     repos,
		provider:  provider,
		chunker:   chunking.Default(),
		variants:  append([]core.Variant(nil), core.AllVariants...),
		counter:   ai.WordCounter{},
		batchSize: DefaultBatchSize,
		retries:   backoff{attempts: DefaultMaxRetries, baseDelay: DefaultRetryBaseDelay},
		summaries: true,
		triples:   true,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			b.Release()
			return nil, err
		}
	}

	if b.pool == nil {
		if err := WithPoolSize(runtime.NumCPU() / 2)(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "index-builder")
	b.retries.logger = b.logger
	return b, nil
}

// Release releases the worker pool. The builder must not be used afterwards.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
		b.pool = nil
	}
}

// Build chunks, enriches, embeds and persists docs, then writes the manifest.
// The store must not hold a previous build. Chunk ids follow document order,
// then block order, then position within the block.
func (b *Builder) Build(ctx context.Context, docs []core.Document) (*core.Manifest, error) {
	if _, err := b.repos.Manifests.LoadManifest(ctx); err == nil {
		return nil, ErrIndexExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	chunks, err := b.chunk(docs)
	if err != nil {
		return nil, err
	}
	b.logger.Info("chunked documents", "documents", len(docs), "chunks", len(chunks))

	triples := b.enrich(ctx, chunks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keywords [][]string
	if slices.Contains(b.variants, core.VariantKeyword) {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		keywords = Keywords(texts, DefaultVocabularySize, DefaultKeywordCount)
	}

	dim := 0
	spaces := make(map[string][]core.IndexEntry, len(b.variants)+1)
	for _, variant := range b.variants {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			var kw []string
			if keywords != nil {
				kw = keywords[i]
			}
			texts[i] = VariantText(variant, c, kw)
		}
		entries, err := b.embed(ctx, variant.String(), texts, &dim)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", variant, err)
		}
		spaces[storage.SpaceFor(variant)] = entries
	}

	tripleTexts := make([]string, len(triples))
	for i, t := range triples {
		tripleTexts[i] = t.Text()
	}
	tripleEntries, err := b.embed(ctx, "triples", tripleTexts, &dim)
	if err != nil {
		return nil, fmt.Errorf("triples: %w", err)
	}
	spaces[storage.TripleSpace] = tripleEntries

	if err := b.persist(ctx, chunks, triples, spaces); err != nil {
		return nil, err
	}

	keys := make([]core.ID, len(chunks))
	for i, c := range chunks {
		keys[i] = c.Key
	}
	manifest := &core.Manifest{
		BuildID:        uuid.NewString(),
		EmbeddingModel: b.provider.EmbeddingModel(),
		Dimension:      dim,
		ChunkCount:     len(chunks),
		Variants:       append([]core.Variant(nil), b.variants...),
		TripleCount:    len(triples),
		CreatedAt:      time.Now().UTC(),
		Fingerprint:    core.KeyFingerprint(keys),
	}
	if err := b.repos.Manifests.SaveManifest(ctx, manifest); err != nil {
		return nil, err
	}

	b.logger.Info("index built",
		"build", manifest.BuildID,
		"chunks", manifest.ChunkCount,
		"triples", manifest.TripleCount,
		"dimension", manifest.Dimension,
		"variants", manifest.Variants)
	return manifest, nil
}

func (b *Builder) chunk(docs []core.Document) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	for _, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidBlock, core.ErrEmptyDocumentID)
		}
		blocks := make([]core.Block, len(doc.Blocks))
		for i, block := range doc.Blocks {
			if block.DocumentID == "" {
				block.DocumentID = doc.ID
			}
			if err := core.ValidateBlock(&block); err != nil {
				return nil, fmt.Errorf("document %s block %d: %w", doc.ID, i, err)
			}
			blocks[i] = block
		}
		for _, c := range b.chunker.Chunk(doc.ID, blocks) {
			c.ID = len(chunks)
			c.Key = c.ExternalKey()
			c.TokenCount = b.counter.CountTokens(c.Text)
			chunks = append(chunks, &c)
		}
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	return chunks, nil
}

// enrich fills chunk summaries and returns the extracted triples in chunk order.
// Collaborator failures are logged and leave the chunk without a summary or triples.
func (b *Builder) enrich(ctx context.Context, chunks []*core.Chunk) []core.Triple {
	if !b.summaries && !b.triples {
		return nil
	}

	perChunk := make([][]core.Triple, len(chunks))
	tracker := NewProgressTracker(b.progress, "Extracting", len(chunks), 10)
	tracker.Start()

	err := b.parallel(ctx, len(chunks), func(i int) error {
		defer tracker.Increment(1)
		c := chunks[i]
		if b.summaries && utf8.RuneCountInString(c.Text) >= MinSummaryLength {
			c.Summary = b.summarize(ctx, c)
		}
		if b.triples {
			perChunk[i] = b.extract(ctx, c)
		}
		return nil
	})
	tracker.Finish()
	if err != nil {
		b.logger.Warn("extraction stopped early", "err", err)
	}

	var triples []core.Triple
	for _, ts := range perChunk {
		triples = append(triples, ts...)
	}
	return triples
}

func (b *Builder) summarize(ctx context.Context, c *core.Chunk) *string {
	summary, err := b.provider.Summarizer().Summarize(ctx, c.Text)
	if err != nil {
		b.logger.Warn("summary failed", "chunk", c.ID, "err", err)
		return nil
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil
	}
	return &summary
}

func (b *Builder) extract(ctx context.Context, c *core.Chunk) []core.Triple {
	extracted, err := b.provider.TripleExtractor().ExtractTriples(ctx, c.Text)
	if err != nil {
		b.logger.Warn("triple extraction failed", "chunk", c.ID, "err", err)
		return nil
	}
	var triples []core.Triple
	seen := make(map[core.Triple]bool, len(extracted))
	for _, et := range extracted {
		t := core.Triple{
			Subject:   strings.TrimSpace(et.Subject),
			Predicate: strings.TrimSpace(et.Predicate),
			Object:    strings.TrimSpace(et.Object),
			ChunkID:   c.ID,
		}
		if core.ValidateTriple(&t) != nil || seen[t] {
			continue
		}
		seen[t] = true
		triples = append(triples, t)
	}
	return triples
}

// embed embeds texts in batches and returns normalized entries in input order.
// dim holds the dimension seen so far across spaces; 0 means none yet.
func (b *Builder) embed(ctx context.Context, label string, texts []string, dim *int) ([]core.IndexEntry, error) {
	entries := make([]core.IndexEntry, len(texts))
	if len(texts) == 0 {
		return entries, nil
	}

	batches := (len(texts) + b.batchSize - 1) / b.batchSize
	tracker := NewProgressTracker(b.progress, "Embedding "+label, len(texts), b.batchSize)
	tracker.Start()
	defer tracker.Finish()

	embedder := b.provider.Embedder()
	err := b.parallel(ctx, batches, func(batch int) error {
		start := batch * b.batchSize
		end := min(start+b.batchSize, len(texts))

		var vectors [][]float32
		batchLabel := fmt.Sprintf("%s %d/%d", label, batch+1, batches)
		err := b.retries.retry(ctx, batchLabel, func(ctx context.Context) error {
			var err error
			vectors, err = embedder.EmbedTexts(ctx, texts[start:end])
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrEmbeddingFailed, batchLabel, err)
		}
		if len(vectors) != end-start {
			return fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingFailed, end-start, len(vectors))
		}
		for j, v := range vectors {
			entries[start+j] = core.IndexEntry{ChunkID: start + j, Vector: index.NormalizeVector(v)}
		}
		tracker.Increment(end - start)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if *dim == 0 {
			*dim = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != *dim {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(e.Vector), *dim)
		}
	}
	return entries, nil
}

func (b *Builder) persist(ctx context.Context, chunks []*core.Chunk, triples []core.Triple, spaces map[string][]core.IndexEntry) error {
	for start := 0; start < len(chunks); start += writeBatch {
		if err := b.repos.Chunks.AddChunks(ctx, chunks[start:min(start+writeBatch, len(chunks))]...); err != nil {
			return fmt.Errorf("storing chunks: %w", err)
		}
	}
	for start := 0; start < len(triples); start += writeBatch {
		if err := b.repos.Triples.AddTriples(ctx, triples[start:min(start+writeBatch, len(triples))]...); err != nil {
			return fmt.Errorf("storing triples: %w", err)
		}
	}
	for space, entries := range spaces {
		if err := b.repos.Vectors.PutVectors(ctx, space, entries...); err != nil {
			return fmt.Errorf("storing %s vectors: %w", space, err)
		}
	}
	return nil
}

// parallel runs task(0..n-1) on the worker pool and returns the first error.
func (b *Builder) parallel(ctx context.Context, n int, task func(i int) error) error {
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() { firstErr = err })
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		wg.Add(1)
		if err := b.pool.Submit(func() {
			defer wg.Done()
			if err := task(i); err != nil {
				fail(err)
			}
		}); err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()
	return firstErr
}
