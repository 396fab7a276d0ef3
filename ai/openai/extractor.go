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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/policyrag/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// parseAttempts bounds how many times a malformed reply is regenerated.
const parseAttempts = 3

// TripleExtractor implements ai.TripleExtractor using OpenAI-compatible chat APIs.
type TripleExtractor struct {
	client llms.Model
	logger *slog.Logger
}

// newTripleExtractor is an internal constructor that returns the concrete type.
func newTripleExtractor(config *ai.Config) (*TripleExtractor, error) {
	client, err := newChatClient(config)
	if err != nil {
		return nil, err
	}
	return &TripleExtractor{
		client: client,
		logger: slog.Default().With("component", "openai-triples"),
	}, nil
}

// NewTripleExtractor creates a triple extractor using the provided configuration.
//
// Returns ai.TripleExtractor interface to enforce abstraction.
func NewTripleExtractor(config *ai.Config) (ai.TripleExtractor, error) {
	return newTripleExtractor(config)
}

func newChatClient(config *ai.Config) (llms.Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	return openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
}

// ExtractTriples asks the model for a JSON list of triples.
// Items that are not objects or lack any of the three fields are dropped.
func (e *TripleExtractor) ExtractTriples(ctx context.Context, text string) ([]ai.ExtractedTriple, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []ai.ExtractedTriple{}, nil
	}

	var items []json.RawMessage
	err := generateJSON(ctx, e.client, e.logger, triplePrompt, text, false, &items)
	if err != nil {
		return nil, err
	}
	return cleanTriples(items), nil
}

func cleanTriples(items []json.RawMessage) []ai.ExtractedTriple {
	triples := make([]ai.ExtractedTriple, 0, len(items))
	for _, item := range items {
		var t ai.ExtractedTriple
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		t.Subject = strings.TrimSpace(t.Subject)
		t.Predicate = strings.TrimSpace(t.Predicate)
		t.Object = strings.TrimSpace(t.Object)
		if !t.Complete() {
			continue
		}
		triples = append(triples, t)
	}
	return triples
}

// generateJSON sends a system prompt and user text and decodes the reply into v.
// A reply that fails decodeStrict is regenerated up to parseAttempts times.
func generateJSON(ctx context.Context, client llms.Model, logger *slog.Logger, system, user string, jsonMode bool, v any) error {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	callOpts := []llms.CallOption{llms.WithTemperature(0.0)}
	if jsonMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := client.GenerateContent(ctx, content, callOpts...)
		if err != nil {
			logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}
		if len(response.Choices) < 1 {
			return ErrMalformedResponse
		}

		reply := response.Choices[0].Content
		if err := decodeStrict(reply, v); err != nil {
			lastErr = err
			logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", reply,
				"err", err)
			continue
		}
		return nil
	}

	logger.Error("failed to parse model response after retries", "err", lastErr)
	return lastErr
}
