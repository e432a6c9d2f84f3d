package application

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// pngBytes encodes a small solid PNG for conversion tests
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

// TestStoreMediaCachesPhotoOnce tests that a second request reuses the stored entry
func TestStoreMediaCachesPhotoOnce(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.posts[12] = &domain.Post{ID: 12, MimeType: "image/png", ContentURL: "http://hoard.test/data/12.png"}
	catalog.downloadedData = pngBytes(t)
	chat := &fakeChat{}
	repo := newFakeCacheRepo()
	service := NewMediaCacheService(repo, catalog, chat, -100)

	entry, err := service.StoreMedia(context.Background(), domain.MediaRef{PostID: 12})
	if err != nil {
		t.Fatalf("Expected store to succeed, got %v", err)
	}
	if entry.PlatformFileID != "photo-1" {
		t.Errorf("Expected photo file ID, got %q", entry.PlatformFileID)
	}
	if entry.AsDocument {
		t.Error("Expected photo representation")
	}
	if chat.sentPhotos != 1 {
		t.Errorf("Expected 1 photo delivery, got %d", chat.sentPhotos)
	}

	again, err := service.StoreMedia(context.Background(), domain.MediaRef{PostID: 12})
	if err != nil {
		t.Fatalf("Expected cached fetch to succeed, got %v", err)
	}
	if again.PlatformFileID != entry.PlatformFileID {
		t.Errorf("Expected reused entry, got %q", again.PlatformFileID)
	}
	if chat.sentPhotos != 1 {
		t.Errorf("Expected no further deliveries, got %d photos", chat.sentPhotos)
	}
}

// TestStoreMediaDualRepresentations tests that photo and document rows coexist
func TestStoreMediaDualRepresentations(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.posts[7] = &domain.Post{ID: 7, MimeType: "image/png", ContentURL: "http://hoard.test/data/7.png"}
	catalog.downloadedData = pngBytes(t)
	chat := &fakeChat{}
	repo := newFakeCacheRepo()
	service := NewMediaCacheService(repo, catalog, chat, -100)

	photo, err := service.StoreMedia(context.Background(), domain.MediaRef{PostID: 7})
	if err != nil {
		t.Fatalf("Expected photo store to succeed, got %v", err)
	}
	document, err := service.StoreMedia(context.Background(), domain.MediaRef{PostID: 7, AsDocument: true})
	if err != nil {
		t.Fatalf("Expected document store to succeed, got %v", err)
	}

	if photo.PlatformFileID == document.PlatformFileID {
		t.Error("Expected distinct file IDs per representation")
	}
	if !photo.IsThumbnail {
		t.Error("Expected the photo rendition marked as a thumbnail")
	}
	if document.IsThumbnail {
		t.Error("Expected the document row to hold the original content")
	}
	count, _ := repo.Count(context.Background())
	if count != 2 {
		t.Errorf("Expected 2 cache rows, got %d", count)
	}
}

// TestStoreMediaNonPhotoFallsBackToDocument tests the document fallback for
// content the platform cannot show as a photo
func TestStoreMediaNonPhotoFallsBackToDocument(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.posts[3] = &domain.Post{ID: 3, MimeType: "image/gif", ContentURL: "http://hoard.test/data/3.gif"}
	catalog.downloadedData = []byte("GIF89a")
	chat := &fakeChat{}
	repo := newFakeCacheRepo()
	service := NewMediaCacheService(repo, catalog, chat, -100)

	entry, err := service.StoreMedia(context.Background(), domain.MediaRef{PostID: 3})
	if err != nil {
		t.Fatalf("Expected store to succeed, got %v", err)
	}
	if chat.sentPhotos != 0 || chat.sentDocuments != 1 {
		t.Errorf("Expected document delivery, got %d photos %d documents", chat.sentPhotos, chat.sentDocuments)
	}
	if !entry.AsDocument {
		t.Error("Expected fallback entry stored under the document representation")
	}

	again, err := service.StoreMedia(context.Background(), domain.MediaRef{PostID: 3})
	if err != nil {
		t.Fatalf("Expected cached fetch to succeed, got %v", err)
	}
	if again.PlatformFileID != entry.PlatformFileID {
		t.Errorf("Expected the document row to serve photo requests, got %q", again.PlatformFileID)
	}
	if chat.sentDocuments != 1 {
		t.Errorf("Expected no further deliveries, got %d documents", chat.sentDocuments)
	}
}

// TestStoreMediaPhotoRejectionFallsBack tests fallback when the platform
// rejects a photo delivery
func TestStoreMediaPhotoRejectionFallsBack(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.posts[5] = &domain.Post{ID: 5, MimeType: "image/png", ContentURL: "http://hoard.test/data/5.png"}
	catalog.downloadedData = pngBytes(t)
	chat := &fakeChat{photoErr: domain.ErrDeliveryFailed}
	repo := newFakeCacheRepo()
	service := NewMediaCacheService(repo, catalog, chat, -100)

	entry, err := service.StoreMedia(context.Background(), domain.MediaRef{PostID: 5})
	if err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if chat.sentDocuments != 1 {
		t.Errorf("Expected 1 document delivery, got %d", chat.sentDocuments)
	}
	if entry.PlatformFileID == "" {
		t.Error("Expected a file ID from the document fallback")
	}
}
