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


// Package ai provides abstractions for the AI services policyrag depends on.
//
// The retrieval core never talks to a model directly. It depends on the
// interfaces declared here:
//
//   - Embedder: turns chunk variants and queries into vectors
//   - TripleExtractor: pulls subject-predicate-object facts out of chunks at build time
//   - Summarizer: writes the one-line summaries used by the prefix variant
//   - CrossEncoder: scores (query, passage) pairs inside the rerank worker
//   - TokenCounter: measures chunk length in model tokens
//   - AIProvider: aggregates the build-time services
//
// # Implementation Packages
//
//   - ai/openai: langchaingo clients for OpenAI-compatible servers (Ollama, vLLM, LocalAI)
//   - ai/crossencoder: HTTP client for a text-embeddings-inference style /rerank endpoint
//   - ai/mock: deterministic test doubles
//
// Public constructors in the implementation packages return interface types.
// Mock constructors return concrete types so tests can inject behavior and
// inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	query := ai.NewCachedEmbedder(provider.Embedder(), ai.DefaultCacheSize, ai.DefaultCacheTTL)
//	vec, err := query.EmbedText(ctx, "how many days of annual leave?")
package ai
