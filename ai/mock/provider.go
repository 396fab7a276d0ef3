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


package mock

import "github.com/poiesic/policyrag/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder   *MockEmbedder
	extractor  *MockTripleExtractor
	summarizer *MockSummarizer
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockExtractor()/GetMockSummarizer() for test assertions.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockTripleExtractor(), NewMockSummarizer())
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
func NewMockProviderWithServices(embedder *MockEmbedder, extractor *MockTripleExtractor, summarizer *MockSummarizer) ai.AIProvider {
	return &MockProvider{
		embedder:   embedder,
		extractor:  extractor,
		summarizer: summarizer,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// TripleExtractor returns the mock triple extractor.
func (p *MockProvider) TripleExtractor() ai.TripleExtractor {
	return p.extractor
}

// Summarizer returns the mock summarizer.
func (p *MockProvider) Summarizer() ai.Summarizer {
	return p.summarizer
}

// EmbeddingModel returns a fixed model name.
func (p *MockProvider) EmbeddingModel() string {
	return "mock-embedding"
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockExtractor returns the underlying mock triple extractor for test assertions.
func (p *MockProvider) GetMockExtractor() *MockTripleExtractor {
	return p.extractor
}

// GetMockSummarizer returns the underlying mock summarizer for test assertions.
func (p *MockProvider) GetMockSummarizer() *MockSummarizer {
	return p.summarizer
}
