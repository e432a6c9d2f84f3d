package application

import (
	"context"
	"strings"
	"testing"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// TestParsePopulateArgs tests the count, representation flag, and search terms
func TestParsePopulateArgs(t *testing.T) {
	args := parsePopulateArgs("/populate 25 file ych")
	if args.limit != 25 {
		t.Errorf("Expected limit 25, got %d", args.limit)
	}
	if !args.asDocument {
		t.Error("Expected the file flag to select the document representation")
	}
	if args.query != "ych" {
		t.Errorf("Expected search terms, got %q", args.query)
	}

	args = parsePopulateArgs("/populate")
	if args.limit != populateDefaultLimit || args.asDocument || args.query != "" {
		t.Errorf("Expected defaults for a bare command, got %+v", args)
	}
}

// TestPopulateCacheReportsFill tests that a populate run caches the missing
// posts and reports the cache fill before and after
func TestPopulateCacheReportsFill(t *testing.T) {
	posts := []*domain.Post{
		{ID: 1, MimeType: "image/png", ContentURL: "http://hoard.test/data/1.png"},
		{ID: 2, MimeType: "image/png", ContentURL: "http://hoard.test/data/2.png"},
	}
	catalog := newFakeCatalog()
	catalog.searchResults = posts
	for _, post := range posts {
		catalog.posts[post.ID] = post
	}
	catalog.downloadedData = pngBytes(t)
	chat := &fakeChat{}
	repo := newFakeCacheRepo()
	cachedPost(t, repo, 1)
	media := NewMediaCacheService(repo, catalog, chat, -100)
	service := NewMaintenanceService(catalog, chat, media)

	event := &domain.ChatMessageEvent{
		Ref:  domain.ChatMessageRef{ChatID: 10, MessageID: 40},
		Text: "/populate ych",
	}
	if err := service.PopulateCache(context.Background(), event, domain.TrustedUser{}); err != nil {
		t.Fatalf("Expected populate to succeed, got %v", err)
	}

	if chat.sentPhotos != 1 {
		t.Errorf("Expected 1 fresh delivery for the uncached post, got %d", chat.sentPhotos)
	}
	if len(chat.edits) == 0 {
		t.Fatal("Expected a populate summary")
	}
	summary := chat.edits[len(chat.edits)-1]
	if !strings.Contains(summary, "1 new, 1 already cached") {
		t.Errorf("Expected the new and cached counts, got %q", summary)
	}
	if !strings.Contains(summary, "1/2 before, 2/2 now") {
		t.Errorf("Expected the fill report over the checked posts, got %q", summary)
	}
}

// TestCommissionDetail tests artist and character summaries across a
// commission's work in progress posts
func TestCommissionDetail(t *testing.T) {
	posts := []*domain.Post{
		{ID: 1, Tags: []domain.Tag{
			{Names: []string{"artist_a"}, Category: "artists"},
			{Names: []string{"zephyr"}, Category: "our_characters"},
		}},
		{ID: 2, Tags: []domain.Tag{
			{Names: []string{"artist_a"}, Category: "artists"},
			{Names: []string{"aurora"}, Category: "our_characters"},
		}},
	}

	detail := commissionDetail(posts)
	want := "by artist_a, featuring aurora, zephyr"
	if detail != want {
		t.Errorf("Expected %q, got %q", want, detail)
	}

	if commissionDetail(nil) != "" {
		t.Error("Expected empty detail for no posts")
	}
}
