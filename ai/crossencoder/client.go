// Package crossencoder calls a text-embeddings-inference style /rerank endpoint.
package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/policyrag/ai"
)

var (
	// ErrBadStatus is returned for non-2xx replies.
	ErrBadStatus = errors.New("cross-encoder service returned an error status")
	// ErrBadReply is returned when the reply does not cover every input text exactly once.
	ErrBadReply = errors.New("cross-encoder reply does not match request")
)

const defaultTimeout = 30 * time.Second

type rerankRequest struct {
	Query      string   `json:"query"`
	Texts      []string `json:"texts"`
	RawScores  bool     `json:"raw_scores"`
	ReturnText bool     `json:"return_text"`
	Truncate   bool     `json:"truncate"`
}

type rerankItem struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// Client implements ai.CrossEncoder over HTTP.
type Client struct {
	url    string
	model  string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// New creates a Client for config.RerankerHost.
func New(config *ai.Config, opts ...Option) (*Client, error) {
	if err := config.ValidateReranker(); err != nil {
		return nil, err
	}
	c := &Client{
		url:    config.RerankerHost + "/rerank",
		model:  config.RerankerModel,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: slog.Default().With("component", "crossencoder"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Logits scores each text against query. The service reorders its reply by
// score; rows are put back in input order here. Each row holds one raw logit.
func (c *Client) Logits(ctx context.Context, query string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts, RawScores: true, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %d: %s", ErrBadStatus, resp.StatusCode, bytes.TrimSpace(payload))
	}

	var items []rerankItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadReply, err)
	}
	if len(items) != len(texts) {
		return nil, fmt.Errorf("%w: %d scores for %d texts", ErrBadReply, len(items), len(texts))
	}

	rows := make([][]float32, len(texts))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(texts) || rows[item.Index] != nil {
			return nil, fmt.Errorf("%w: bad index %d", ErrBadReply, item.Index)
		}
		rows[item.Index] = []float32{item.Score}
	}

	c.logger.Debug("scored batch", "model", c.model, "count", len(texts), "elapsed", time.Since(start))
	return rows, nil
}
