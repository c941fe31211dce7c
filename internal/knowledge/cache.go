package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Cache stores generated text by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, model, text string) error
}

type cachedGenerator struct {
	next  Generator
	cache Cache
	model string
}

// WithCache serves repeated prompts from c. Keys cover the model and the
// whole prompt, so changing either yields a fresh generation.
func WithCache(g Generator, c Cache, model string) Generator {
	return &cachedGenerator{next: g, cache: c, model: model}
}

// CacheKey returns the cache key for p under model.
func CacheKey(model string, p Prompt) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00%s", model, p.MaxTokens, p.System, p.User)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *cachedGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	key := CacheKey(c.model, p)
	if text, ok, err := c.cache.Get(ctx, key); err != nil {
		return "", fmt.Errorf("generation cache lookup: %w", err)
	} else if ok {
		return text, nil
	}

	text, err := c.next.Generate(ctx, p)
	if err != nil {
		return "", err
	}
	if err := c.cache.Put(ctx, key, c.model, text); err != nil {
		return "", fmt.Errorf("generation cache store: %w", err)
	}
	return text, nil
}
