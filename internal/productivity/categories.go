package productivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"
)

// DefaultCategoryTTL is how long a loaded category snapshot is reused.
const DefaultCategoryTTL = 5 * time.Minute

// CategoryCache holds a snapshot of the category table and reloads it after its TTL.
type CategoryCache struct {
	store  ports.CategoryStore
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	snapshot Categories
	loadedAt time.Time
}

type CacheOption func(*CategoryCache)

// WithTTL overrides DefaultCategoryTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CategoryCache) { c.ttl = ttl }
}

// WithClock injects the time source used for expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CategoryCache) { c.now = now }
}

func NewCategoryCache(store ports.CategoryStore, logger *slog.Logger, opts ...CacheOption) *CategoryCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &CategoryCache{
		store:  store,
		logger: logger,
		ttl:    DefaultCategoryTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current category map, loading it when missing or expired.
// A failed load yields an empty map so every app scores as neutral.
func (c *CategoryCache) Snapshot(ctx context.Context) Categories {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.snapshot != nil && now.Sub(c.loadedAt) < c.ttl {
		return c.snapshot
	}

	categories, err := c.store.GetAppCategories(ctx)
	if err != nil {
		c.logger.Warn("category store unavailable, scoring with neutral defaults", slog.Any("error", err))
		return Categories{}
	}

	snapshot := make(Categories, len(categories))
	for _, cat := range categories {
		snapshot[cat.AppName] = cat
	}
	c.snapshot = snapshot
	c.loadedAt = now
	return snapshot
}

// Invalidate forces the next Snapshot to reload from the store.
func (c *CategoryCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}

// Set stores a user-defined category and drops the cached snapshot.
func (c *CategoryCache) Set(ctx context.Context, appName, category string, rating models.Rating) error {
	return c.upsert(ctx, &models.AppCategory{
		AppName:            appName,
		Category:           category,
		ProductivityRating: rating,
		IsUserDefined:      true,
	})
}

// Adopt records the keyword suggestion for an app that has no category yet.
// Known apps are left untouched so user-defined entries always win.
func (c *CategoryCache) Adopt(ctx context.Context, appName string) (bool, error) {
	if _, known := c.Snapshot(ctx)[appName]; known {
		return false, nil
	}
	s, ok := SuggestCategory(appName)
	if !ok {
		return false, nil
	}
	err := c.upsert(ctx, &models.AppCategory{
		AppName:            appName,
		Category:           s.Category,
		ProductivityRating: s.Rating,
	})
	return err == nil, err
}

func (c *CategoryCache) upsert(ctx context.Context, category *models.AppCategory) error {
	if err := c.store.UpsertAppCategory(ctx, category); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}
