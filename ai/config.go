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


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ExtractorHost is the base URL for the chat service used for summaries and triple extraction.
	ExtractorHost string

	// RerankerHost is the base URL of the cross-encoder service.
	// It is only contacted from inside the rerank worker process.
	// Example: "http://localhost:8080" for text-embeddings-inference
	RerankerHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "mistral-embed"
	EmbeddingModel string

	// ExtractorModel is the chat model identifier used for summaries and triples.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	ExtractorModel string

	// RerankerModel names the cross-encoder. Informational for services that host a single model.
	RerankerModel string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithExtractorHost sets the chat service host URL.
func WithExtractorHost(host string) ConfigOption {
	return func(c *Config) {
		c.ExtractorHost = host
	}
}

// WithRerankerHost sets the cross-encoder service URL.
func WithRerankerHost(host string) ConfigOption {
	return func(c *Config) {
		c.RerankerHost = host
	}
}

// WithHost sets both embedding and extractor hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ExtractorHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithExtractorModel sets the chat model identifier.
func WithExtractorModel(model string) ConfigOption {
	return func(c *Config) {
		c.ExtractorModel = model
	}
}

// WithRerankerModel sets the cross-encoder model identifier.
func WithRerankerModel(model string) ConfigOption {
	return func(c *Config) {
		c.RerankerModel = model
	}
}

// DefaultConfig returns a Config with defaults for local services.
// Embedding and extraction share an OpenAI-compatible host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:  defaultHost,
		ExtractorHost:  defaultHost,
		RerankerHost:   "http://localhost:8080",
		EmbeddingModel: "embeddinggemma",
		ExtractorModel: "qwen2.5:3b",
		RerankerModel:  "BAAI/bge-reranker-base",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("mistral-embed"),
//	    WithRerankerHost("http://reranker:8080"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix; the reranker host loses any trailing slash.
func (c *Config) Normalize() {
	c.EmbeddingHost = withV1(c.EmbeddingHost)
	c.ExtractorHost = withV1(c.ExtractorHost)
	c.RerankerHost = strings.TrimSuffix(c.RerankerHost, "/")
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ExtractorHost == "" {
		return errors.New("ai config: ExtractorHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ExtractorModel == "" {
		return errors.New("ai config: ExtractorModel is required")
	}
	return nil
}

// ValidateReranker checks the fields the cross-encoder client needs.
func (c *Config) ValidateReranker() error {
	c.Normalize()
	if c.RerankerHost == "" {
		return errors.New("ai config: RerankerHost is required")
	}
	return nil
}
