package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poiesic/policyrag"
	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/ai/openai"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/indexing"
	"github.com/urfave/cli/v2"
)

func buildCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected one documents file or directory, got %d arguments", c.NArg())
	}
	docs, err := loadDocuments(c.Args().First())
	if err != nil {
		return err
	}

	opts, err := builderOptions(c)
	if err != nil {
		return err
	}

	aiCfg, err := aiConfig(c)
	if err != nil {
		return err
	}
	provider, err := openai.NewProvider(aiCfg)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}
	defer provider.Close()

	store, err := policyrag.OpenStore(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer store.Close()

	fmt.Fprintf(os.Stderr, "Index: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Documents: %d\n", len(docs))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", aiCfg.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	build := store.Build
	if c.Bool("rebuild") {
		build = store.Rebuild
	}
	manifest, err := build(ctx, provider, docs, opts...)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	printManifest(c.App.Writer, manifest)
	return nil
}

func builderOptions(c *cli.Context) ([]indexing.Option, error) {
	var variants []core.Variant
	for _, name := range c.StringSlice("variants") {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			v, err := core.ParseVariant(part)
			if err != nil {
				return nil, err
			}
			variants = append(variants, v)
		}
	}

	counter := ai.TokenCounter(ai.WordCounter{})
	if encoding := c.String("tokenizer"); encoding != "" {
		tc, err := ai.NewTiktokenCounter(encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer %q: %w", encoding, err)
		}
		counter = tc
	}

	return []indexing.Option{
		indexing.WithChunkSize(c.Int("chunk-size"), c.Int("overlap")),
		indexing.WithVariants(variants...),
		indexing.WithTokenCounter(counter),
		indexing.WithPoolSize(c.Int("workers")),
		indexing.WithBatchSize(c.Int("batch-size")),
		indexing.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		indexing.WithSummaries(!c.Bool("no-summaries")),
		indexing.WithTriples(!c.Bool("no-triples")),
		indexing.WithProgress(os.Stderr),
	}, nil
}

// loadDocuments reads parsed documents from a JSON file, or from every
// .json file of a directory in name order. A file holds one document or a list.
func loadDocuments(path string) ([]core.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, err
		}
		slices.Sort(files)
	}

	var docs []core.Document
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		parsed, err := decodeDocuments(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		docs = append(docs, parsed...)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents found in %s", path)
	}
	return docs, nil
}

func decodeDocuments(data []byte) ([]core.Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var docs []core.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return []core.Document{doc}, nil
}
