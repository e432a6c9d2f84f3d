package application

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// UploadStateCache struct - TTL cache of upload-state snapshots, keyed by the
// query and the operator's upload tag infix. Snapshots are updated in place
// when single posts change, so menu navigation stays cheap between rescans.
type UploadStateCache struct {
	catalog output.CatalogClient
	cache   *gocache.Cache
}

// NewUploadStateCache creates the snapshot cache with the given time to live
func NewUploadStateCache(catalog output.CatalogClient, ttl time.Duration) *UploadStateCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UploadStateCache{
		catalog: catalog,
		cache:   gocache.New(ttl, time.Minute),
	}
}

// snapshotKey builds the cache key for one query and operator
func snapshotKey(query, uploadTagInfix string) string {
	return fmt.Sprintf("%s|%s", query, uploadTagInfix)
}

// Snapshot returns the upload-state snapshot for a query, rescanning the
// catalog when no fresh snapshot exists. A refresh drops any cached snapshot
// first, so command entry points see the catalog's current state.
func (c *UploadStateCache) Snapshot(ctx context.Context, query string, user domain.TrustedUser, refresh bool) (*domain.UploadStateSnapshot, error) {
	if refresh {
		c.Invalidate(query, user)
	}
	key := snapshotKey(query, user.UploadTagInfix)
	if cached, found := c.cache.Get(key); found {
		return cached.(*domain.UploadStateSnapshot), nil
	}

	logrus.Infof("Scanning upload state for query %q (infix %s)", query, user.UploadTagInfix)
	posts, err := c.catalog.SearchAllPosts(ctx, query)
	if err != nil {
		return nil, err
	}
	snapshot := domain.NewUploadStateSnapshot(query, user.UploadTagInfix, posts)
	c.cache.Set(key, snapshot, gocache.DefaultExpiration)
	return snapshot, nil
}

// UpdatePost re-classifies one post inside a cached snapshot, if present.
// Cache misses are fine; the next Snapshot call rescans anyway.
func (c *UploadStateCache) UpdatePost(query string, user domain.TrustedUser, post *domain.Post) {
	key := snapshotKey(query, user.UploadTagInfix)
	cached, found := c.cache.Get(key)
	if !found {
		return
	}
	cached.(*domain.UploadStateSnapshot).UpdatePost(post)
}

// Invalidate drops the snapshot for one query and operator
func (c *UploadStateCache) Invalidate(query string, user domain.TrustedUser) {
	c.cache.Delete(snapshotKey(query, user.UploadTagInfix))
}
