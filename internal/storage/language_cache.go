package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

// LanguageLister loads the language catalog.
type LanguageLister interface {
	List(ctx context.Context) ([]entities.Language, error)
}

// LanguageCache keeps the language catalog in memory. The catalog is loaded
// on first use and reused until Invalidate is called.
type LanguageCache struct {
	source LanguageLister

	mu     sync.RWMutex
	loaded bool
	langs  []entities.Language
	codes  map[string]struct{}
}

// NewLanguageCache creates an empty LanguageCache.
func NewLanguageCache(source LanguageLister) *LanguageCache {
	return &LanguageCache{source: source}
}

// All returns the cached catalog, loading it if needed.
func (c *LanguageCache) All(ctx context.Context) ([]entities.Language, error) {
	langs, _, err := c.snapshot(ctx)
	return langs, err
}

// Has reports whether code is a known language code.
func (c *LanguageCache) Has(ctx context.Context, code string) (bool, error) {
	_, codes, err := c.snapshot(ctx)
	if err != nil {
		return false, err
	}
	_, ok := codes[code]
	return ok, nil
}

// snapshot returns the catalog and its code set as read under one lock.
// Invalidate replaces both rather than mutating them, so the returned
// values stay consistent after the lock is released.
func (c *LanguageCache) snapshot(ctx context.Context) ([]entities.Language, map[string]struct{}, error) {
	c.mu.RLock()
	if c.loaded {
		langs, codes := c.langs, c.codes
		c.mu.RUnlock()
		return langs, codes, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have loaded it while we waited for the write lock.
	if c.loaded {
		return c.langs, c.codes, nil
	}

	langs, err := c.source.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load languages: %w", err)
	}
	if langs == nil {
		langs = []entities.Language{}
	}

	codes := make(map[string]struct{}, len(langs))
	for _, l := range langs {
		codes[l.Code] = struct{}{}
	}

	c.langs = langs
	c.codes = codes
	c.loaded = true

	return langs, codes, nil
}

// Invalidate drops the cached catalog. The next read loads it again.
func (c *LanguageCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.langs = nil
	c.codes = nil
}

// RunInvalidation invalidates the cache on the given cron schedule until ctx is done.
func (c *LanguageCache) RunInvalidation(ctx context.Context, spec string, logger *zap.Logger) error {
	scheduler := cron.New(cron.WithLocation(time.UTC))

	_, err := scheduler.AddFunc(spec, func() {
		c.Invalidate()
		logger.Debug("language cache invalidated")
	})
	if err != nil {
		return fmt.Errorf("schedule language cache invalidation: %w", err)
	}

	scheduler.Start()
	logger.Info("language cache invalidation scheduled", zap.String("spec", spec))

	<-ctx.Done()

	<-scheduler.Stop().Done()
	logger.Info("language cache invalidation stopped")

	return nil
}
