package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
	"github.com/Deer-Spangle/hoardbooru-bot/pkg/images"
)

// inlinePhotoMimes are the content types the chat platform accepts as photos
var inlinePhotoMimes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// MediaCacheService struct - resolves catalog posts to platform media IDs.
// Fresh media is delivered once to a private cache channel, and the resulting
// identifiers are persisted so later sends and inline answers reuse them.
type MediaCacheService struct {
	repo           output.CacheRepository
	catalog        output.CatalogClient
	chat           output.ChatClient
	cacheChannelID int64
}

// NewMediaCacheService creates a media cache service backed by the given ports
func NewMediaCacheService(repo output.CacheRepository, catalog output.CatalogClient, chat output.ChatClient, cacheChannelID int64) *MediaCacheService {
	return &MediaCacheService{
		repo:           repo,
		catalog:        catalog,
		chat:           chat,
		cacheChannelID: cacheChannelID,
	}
}

// CachedEntry returns the stored entry for one post representation without
// producing fresh media. A photo request falls back to the document row when
// only that exists, since some content can never be rendered as a photo.
// Returns domain.ErrNotFound on a cache miss.
func (s *MediaCacheService) CachedEntry(ctx context.Context, ref domain.MediaRef) (*domain.CacheEntry, error) {
	entry, err := s.repo.Fetch(ctx, ref.PostID, ref.AsDocument)
	if err == nil || ref.AsDocument {
		return entry, err
	}
	return s.repo.Fetch(ctx, ref.PostID, true)
}

// StoreMedia resolves one post representation to a cache entry, producing and
// delivering fresh media on a miss. The photo representation falls back to a
// document when the content cannot be rendered as an inline photo.
func (s *MediaCacheService) StoreMedia(ctx context.Context, ref domain.MediaRef) (*domain.CacheEntry, error) {
	entry, err := s.CachedEntry(ctx, ref)
	if err == nil {
		return entry, nil
	}

	post, err := s.catalog.GetPost(ctx, ref.PostID)
	if err != nil {
		return nil, err
	}
	return s.StoreMediaForPost(ctx, post, ref.AsDocument)
}

// StoreMediaForPost is StoreMedia for an already fetched post
func (s *MediaCacheService) StoreMediaForPost(ctx context.Context, post *domain.Post, asDocument bool) (*domain.CacheEntry, error) {
	entry, err := s.CachedEntry(ctx, domain.MediaRef{PostID: post.ID, AsDocument: asDocument})
	if err == nil {
		return entry, nil
	}

	data, err := s.catalog.DownloadContent(ctx, post)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Caching fresh media for post %d (document=%v, mime=%s)", post.ID, asDocument, post.MimeType)
	if asDocument || !inlinePhotoMimes[post.MimeType] {
		return s.deliverDocument(ctx, post, data)
	}
	return s.deliverPhoto(ctx, post, data)
}

// deliverPhoto converts content for inline display and sends it as a photo.
// A rejected photo delivery falls back to the document path.
func (s *MediaCacheService) deliverPhoto(ctx context.Context, post *domain.Post, data []byte) (*domain.CacheEntry, error) {
	converted, err := images.ConvertForInline(data)
	if err != nil {
		logrus.Errorf("Failed to convert post %d for inline display: %v", post.ID, err)
		return s.deliverDocument(ctx, post, data)
	}

	filename := fmt.Sprintf("hoardbooru_%d.jpg", post.ID)
	sent, err := s.chat.SendPhotoFile(ctx, s.cacheChannelID, converted, filename, s.catalog.PostURL(post.ID))
	if err != nil {
		logrus.Errorf("Photo delivery rejected for post %d, falling back to document: %v", post.ID, err)
		return s.deliverDocument(ctx, post, data)
	}
	return s.persistEntry(ctx, post, sent, false)
}

// deliverDocument sends content uncompressed with its original extension.
// Document deliveries always persist under the document key, even when the
// photo representation was asked for; the photo lookup path falls back.
func (s *MediaCacheService) deliverDocument(ctx context.Context, post *domain.Post, data []byte) (*domain.CacheEntry, error) {
	ext := domain.FileExt(post.ContentURL)
	if ext == "" {
		ext = "dat"
	}
	filename := fmt.Sprintf("hoardbooru_%d.%s", post.ID, ext)
	sent, err := s.chat.SendDocumentFile(ctx, s.cacheChannelID, data, filename, s.catalog.PostURL(post.ID))
	if err != nil {
		return nil, err
	}
	return s.persistEntry(ctx, post, sent, true)
}

// CacheSize reports how many of the given posts hold a cache entry able to
// serve the representation, document fallbacks included for photo requests
func (s *MediaCacheService) CacheSize(ctx context.Context, postIDs []int, asDocument bool) (int64, error) {
	return s.repo.CountForPosts(ctx, postIDs, asDocument)
}

// persistEntry upserts the cache row for a delivered piece of media
func (s *MediaCacheService) persistEntry(ctx context.Context, post *domain.Post, sent *domain.SentMessage, asDocument bool) (*domain.CacheEntry, error) {
	if sent.Media == nil {
		return nil, domain.ErrDeliveryFailed
	}
	entry := &domain.CacheEntry{
		PostID:              post.ID,
		AsDocument:          asDocument,
		PlatformFileID:      sent.Media.FileID,
		PlatformAccessToken: sent.Media.FileUniqueID,
		FileURL:             post.ContentURL,
		MimeType:            sent.Media.MimeType,
		CacheDate:           time.Now().UTC(),
		// Photo renditions are converted previews, not the original content
		IsThumbnail: !asDocument,
	}
	if entry.MimeType == "" {
		entry.MimeType = post.MimeType
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
