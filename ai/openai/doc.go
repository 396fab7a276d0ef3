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


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// This package implements the ai.AIProvider interface using the langchaingo
// library to communicate with OpenAI or OpenAI-compatible services (such as
// Ollama, LocalAI, or vLLM).
//
// Model replies are parsed strictly as JSON. The single fallback is removing
// one surrounding markdown code fence before parsing again; replies that still
// fail are regenerated a bounded number of times and then reported as
// ErrMalformedResponse.
//
// # Usage
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434")) // /v1 added automatically
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "sample text")
//	triples, err := provider.TripleExtractor().ExtractTriples(ctx, "Employees accrue 20 days of leave.")
package openai
