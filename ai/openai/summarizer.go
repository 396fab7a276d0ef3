package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/policyrag/ai"
	"github.com/tmc/langchaingo/llms"
)

// Summarizer implements ai.Summarizer with a JSON-mode chat completion.
type Summarizer struct {
	client llms.Model
	logger *slog.Logger
}

type summaryReply struct {
	Summary string `json:"summary"`
}

func newSummarizer(config *ai.Config) (*Summarizer, error) {
	client, err := newChatClient(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{
		client: client,
		logger: slog.Default().With("component", "openai-summarizer"),
	}, nil
}

// NewSummarizer creates a summarizer using the provided configuration.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// Summarize returns a one-line summary of text. Line breaks in the reply are collapsed.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	var reply summaryReply
	if err := generateJSON(ctx, s.client, s.logger, summaryPrompt, text, true, &reply); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(reply.Summary), " "), nil
}
