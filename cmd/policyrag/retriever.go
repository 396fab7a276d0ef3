package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/policyrag"
	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/ai/openai"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/graph"
	"github.com/poiesic/policyrag/rerank"
	"github.com/poiesic/policyrag/search"
	"github.com/urfave/cli/v2"
)

const queryCacheTTL = 10 * time.Minute

// openRetriever opens the index read-only and builds the query path from flags.
// The caller must close the returned store.
func openRetriever(ctx context.Context, c *cli.Context, opts ...search.Option) (*policyrag.Store, *search.Retriever, error) {
	variant, err := core.ParseVariant(c.String("variant"))
	if err != nil {
		return nil, nil, err
	}
	aiCfg, err := aiConfig(c)
	if err != nil {
		return nil, nil, err
	}
	embedder, err := openai.NewEmbedder(aiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	embedder = ai.NewCachedEmbedder(embedder, c.Int("query-cache"), queryCacheTTL)

	store, err := policyrag.OpenStore(c.String("db"), policyrag.ReadOnly())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	manifest, err := store.Manifest(ctx)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if manifest.EmbeddingModel != aiCfg.EmbeddingModel {
		slog.Warn("query embedding model differs from the index",
			"index", manifest.EmbeddingModel, "query", aiCfg.EmbeddingModel)
	}

	opts = append([]search.Option{search.WithDefaultVariant(variant), search.WithDefaultTopK(c.Int("top-k"))}, opts...)
	if c.Bool("rerank") {
		reranker := rerank.NewReranker(
			rerank.WithTimeout(c.Duration("rerank-timeout")),
			rerank.WithBatchSize(c.Int("rerank-batch-size")),
			rerank.WithEnv(
				"POLICYRAG_RERANKER_HOST="+aiCfg.RerankerHost,
				"POLICYRAG_RERANKER_MODEL="+aiCfg.RerankerModel,
				"POLICYRAG_LOG_LEVEL="+c.String("log-level"),
			),
		)
		opts = append(opts, search.WithReranker(reranker))
	}
	if c.Bool("graph") {
		opts = append(opts, search.WithGraph(graph.DefaultConfig()))
	}

	retriever, err := store.NewRetriever(ctx, embedder, opts...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, retriever, nil
}
