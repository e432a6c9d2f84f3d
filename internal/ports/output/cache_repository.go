package output

import (
	"context"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// CacheRepository interface - persistence for media identity cache entries
type CacheRepository interface {
	// Fetch returns the cache entry for one post representation, or ErrNotFound
	Fetch(ctx context.Context, postID int, asDocument bool) (*domain.CacheEntry, error)
	// Upsert stores a cache entry, replacing any existing row for its key
	Upsert(ctx context.Context, entry *domain.CacheEntry) error
	// Count returns the number of stored cache entries
	Count(ctx context.Context) (int64, error)
	// CountForPosts returns how many of the given posts hold an entry able to
	// serve the representation. Photo requests also count document rows, since
	// lookups fall back to those.
	CountForPosts(ctx context.Context, postIDs []int, asDocument bool) (int64, error)
}
