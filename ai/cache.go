package ai

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 30 * time.Minute
)

// cachedEmbedder memoizes single-text embeddings. Query traffic repeats itself;
// batch calls go straight through.
type cachedEmbedder struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
}

// NewCachedEmbedder wraps e with an expiring LRU cache keyed by text.
// A non-positive size or ttl disables caching and returns e unchanged.
func NewCachedEmbedder(e Embedder, size int, ttl time.Duration) Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &cachedEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *cachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		return cloneVector(cached), nil
	}
	vec, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, cloneVector(vec))
	return vec, nil
}

func (c *cachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedTexts(ctx, texts)
}

func cloneVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
