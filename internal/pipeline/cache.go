package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"autodocs/internal/config"
	"autodocs/internal/storage"
)

// CacheModel is the model key generations are stored under for cfg.
func CacheModel(cfg config.Config) string {
	return cfg.AI.Provider + "/" + cfg.AI.Model
}

// CacheStats describes the generation cache at cfg.Cache.Path.
type CacheStats struct {
	Path  string `json:"path"`
	Model string `json:"model"`
	// Entries counts generations stored for Model; Total counts all of them.
	Entries int `json:"entries"`
	Total   int `json:"total"`
}

// InspectCache counts cached generations. A missing cache file reports zero
// entries and is not created.
func InspectCache(ctx context.Context, cfg config.Config) (CacheStats, error) {
	stats := CacheStats{Path: cfg.Cache.Path, Model: CacheModel(cfg)}
	store, err := openExistingCache(cfg.Cache.Path)
	if err != nil || store == nil {
		return stats, err
	}
	defer store.Close()

	if stats.Entries, err = store.Count(ctx, stats.Model); err != nil {
		return stats, fmt.Errorf("counting cached generations: %w", err)
	}
	if stats.Total, err = store.Count(ctx, ""); err != nil {
		return stats, fmt.Errorf("counting cached generations: %w", err)
	}
	return stats, nil
}

// PurgeCache deletes cached generations for the configured model, or every
// generation when all is set, and returns how many were removed.
func PurgeCache(ctx context.Context, cfg config.Config, all bool) (int64, error) {
	store, err := openExistingCache(cfg.Cache.Path)
	if err != nil || store == nil {
		return 0, err
	}
	defer store.Close()

	model := CacheModel(cfg)
	if all {
		model = ""
	}
	n, err := store.Purge(ctx, model)
	if err != nil {
		return 0, fmt.Errorf("purging cached generations: %w", err)
	}
	return n, nil
}

func openExistingCache(path string) (storage.GenerationStore, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening generation cache: %w", err)
	}
	store, err := storage.NewSQLiteCache(path)
	if err != nil {
		return nil, fmt.Errorf("opening generation cache: %w", err)
	}
	return store, nil
}
