package storage

import (
	"context"

	"autodocs/internal/knowledge"
)

// GenerationStore persists generated documentation between runs.
type GenerationStore interface {
	knowledge.Cache

	// Count reports how many generations are stored, optionally for one model.
	Count(ctx context.Context, model string) (int, error)

	// Purge drops every stored generation for model, or all of them when
	// model is empty.
	Purge(ctx context.Context, model string) (int64, error)

	Close() error
}

var _ GenerationStore = (*SQLiteCache)(nil)
