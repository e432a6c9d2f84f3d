package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// CacheRepository struct - gorm-backed persistence for media cache entries.
// Works against sqlite or postgres, whichever connection it is given.
type CacheRepository struct {
	db *gorm.DB
}

var _ output.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates the repository over an open gorm connection
func NewCacheRepository(db *gorm.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Fetch returns the cache entry for one post representation
func (r *CacheRepository) Fetch(ctx context.Context, postID int, asDocument bool) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND as_document = ?", postID, asDocument).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Upsert stores a cache entry, replacing any existing row for its key
func (r *CacheRepository) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "as_document"}},
			UpdateAll: true,
		}).
		Create(entry).Error
}

// Count returns the number of stored cache entries
func (r *CacheRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CacheEntry{}).Count(&count).Error
	return count, err
}

// CountForPosts returns how many of the given posts hold an entry able to
// serve the representation. A post may carry both rows, so distinct post IDs
// are counted.
func (r *CacheRepository) CountForPosts(ctx context.Context, postIDs []int, asDocument bool) (int64, error) {
	if len(postIDs) == 0 {
		return 0, nil
	}
	query := r.db.WithContext(ctx).Model(&domain.CacheEntry{}).
		Distinct("post_id").
		Where("post_id IN ?", postIDs)
	if asDocument {
		query = query.Where("as_document = ?", true)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
