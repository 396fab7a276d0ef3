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


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/rerank"
	"github.com/poiesic/policyrag/search"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "policyrag",
		Usage: "Retrieve grounded passages from policy documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"POLICYRAG_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"POLICYRAG_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "embeddinggemma",
				EnvVars: []string{"POLICYRAG_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "extractor-host",
				Usage:   "Chat service host URL for summaries and triples (defaults to embedding-host)",
				EnvVars: []string{"POLICYRAG_EXTRACTOR_HOST"},
			},
			&cli.StringFlag{
				Name:    "extractor-model",
				Usage:   "Chat model name for summaries and triples",
				Value:   "qwen2.5:3b",
				EnvVars: []string{"POLICYRAG_EXTRACTOR_MODEL"},
			},
			&cli.StringFlag{
				Name:    "reranker-host",
				Usage:   "Cross-encoder service URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"POLICYRAG_RERANKER_HOST"},
			},
			&cli.StringFlag{
				Name:    "reranker-model",
				Usage:   "Cross-encoder model name",
				Value:   "BAAI/bge-reranker-base",
				EnvVars: []string{"POLICYRAG_RERANKER_MODEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Build an index from parsed documents",
				ArgsUsage: "<documents.json|directory>",
				Action:    buildCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.BoolFlag{
						Name:  "rebuild",
						Usage: "Discard an existing index before building",
					},
					&cli.StringSliceFlag{
						Name:    "variants",
						Usage:   "Embedding variants to build (content, keyword, prefix)",
						Value:   cli.NewStringSlice("content", "keyword", "prefix"),
						EnvVars: []string{"POLICYRAG_VARIANTS"},
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk length in characters",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Characters shared by consecutive chunks",
						Value: 200,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of texts per embedding request",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent collaborator calls",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
					&cli.BoolFlag{
						Name:  "no-summaries",
						Usage: "Skip one-line chunk summaries",
					},
					&cli.BoolFlag{
						Name:  "no-triples",
						Usage: "Skip triple extraction",
					},
					&cli.StringFlag{
						Name:  "tokenizer",
						Usage: "tiktoken encoding for chunk token counts (empty counts words)",
						Value: "cl100k_base",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Answer one query from the command line",
				ArgsUsage: "<query>",
				Action:    queryCommand,
				Flags:     append(retrievalFlags(), dbFlag(), &cli.BoolFlag{Name: "json", Usage: "Print results as JSON"}),
			},
			{
				Name:   "serve",
				Usage:  "Serve retrieval over HTTP",
				Action: serveCommand,
				Flags: append(retrievalFlags(), dbFlag(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8090",
						EnvVars: []string{"POLICYRAG_ADDR"},
					},
				),
			},
			{
				Name:   rerank.WorkerCommand,
				Usage:  "Score one rerank request from stdin (spawned by the reranker)",
				Hidden: true,
				Action: rerankWorkerCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "batch-size",
						Usage:   "Candidates per cross-encoder call",
						Value:   rerank.DefaultBatchSize,
						EnvVars: []string{rerank.BatchSizeEnv},
					},
				},
			},
			{
				Name:   "info",
				Usage:  "Print the manifest of a built index",
				Action: infoCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to the index directory",
		Required: true,
		EnvVars:  []string{"POLICYRAG_DB"},
	}
}

// retrievalFlags are shared by query and serve.
func retrievalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "variant",
			Usage:   "Default embedding variant (content, keyword, prefix)",
			Value:   "prefix",
			EnvVars: []string{"POLICYRAG_VARIANT"},
		},
		&cli.IntFlag{
			Name:    "top-k",
			Aliases: []string{"k"},
			Usage:   "Number of results",
			Value:   search.DefaultTopK,
		},
		&cli.BoolFlag{
			Name:    "rerank",
			Usage:   "Rerank dense candidates with the cross-encoder worker",
			Value:   true,
			EnvVars: []string{"POLICYRAG_RERANK"},
		},
		&cli.DurationFlag{
			Name:  "rerank-timeout",
			Usage: "Bound on one rerank worker round-trip",
			Value: rerank.DefaultTimeout,
		},
		&cli.IntFlag{
			Name:  "rerank-batch-size",
			Usage: "Candidates per cross-encoder call inside the worker",
			Value: rerank.DefaultBatchSize,
		},
		&cli.BoolFlag{
			Name:    "graph",
			Usage:   "Fuse graph beam search over triples into the ranking",
			EnvVars: []string{"POLICYRAG_GRAPH"},
		},
		&cli.IntFlag{
			Name:  "query-cache",
			Usage: "Number of query embeddings to cache (0 disables)",
			Value: 1024,
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// aiConfig assembles the collaborator configuration from global flags.
func aiConfig(c *cli.Context) (*ai.Config, error) {
	extractorHost := c.String("extractor-host")
	if extractorHost == "" {
		extractorHost = c.String("embedding-host")
	}
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithExtractorHost(extractorHost),
		ai.WithExtractorModel(c.String("extractor-model")),
		ai.WithRerankerHost(c.String("reranker-host")),
		ai.WithRerankerModel(c.String("reranker-model")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}
