package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/input"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// MaxInlineAnswers caps how many results one inline response carries
const MaxInlineAnswers = 30

// CallbackSpoiler prefixes the button data that spoilerises a sent inline result
const CallbackSpoiler = "spoiler:"

// InlineServiceImpl struct - answers inline catalog searches with cached
// media. Cache lookups fan out concurrently; at most a handful of cache
// misses per response get fresh media produced, the rest wait for the next
// page request.
type InlineServiceImpl struct {
	catalog       output.CatalogClient
	chat          output.ChatClient
	media         *MediaCacheService
	maxFreshMedia int
}

var _ input.InlineService = (*InlineServiceImpl)(nil)

// NewInlineService creates the inline search service
func NewInlineService(catalog output.CatalogClient, chat output.ChatClient, media *MediaCacheService, maxFreshMedia int) *InlineServiceImpl {
	if maxFreshMedia <= 0 {
		maxFreshMedia = 1
	}
	return &InlineServiceImpl{
		catalog:       catalog,
		chat:          chat,
		media:         media,
		maxFreshMedia: maxFreshMedia,
	}
}

// HandleInlineQuery answers one inline search query
func (s *InlineServiceImpl) HandleInlineQuery(ctx context.Context, event *domain.InlineQueryEvent, user domain.TrustedUser) error {
	params := domain.ParseInlineParams(event.Query)
	offset, _ := strconv.Atoi(event.Offset)

	query := params.Query
	for _, blocked := range user.BlockedTags {
		query = strings.TrimSpace(query + " -" + blocked)
	}

	posts, total, err := s.catalog.SearchPosts(ctx, query, offset, MaxInlineAnswers)
	if err != nil {
		logrus.Errorf("Inline search failed for %q: %v", query, err)
		return s.chat.AnswerInlineQuery(ctx, &domain.InlineAnswer{QueryID: event.ID})
	}

	entries := s.lookupEntries(ctx, posts, params.AsDocument)

	answer := &domain.InlineAnswer{QueryID: event.ID}
	freshBudget := s.maxFreshMedia
	for i, post := range posts {
		// The platform cannot play webm, and converting is not worth it here
		if post.MimeType == "video/webm" {
			continue
		}
		entry := entries[i]
		if entry == nil {
			if freshBudget <= 0 {
				continue
			}
			freshBudget--
			entry, err = s.media.StoreMediaForPost(ctx, post, params.AsDocument)
			if err != nil {
				logrus.Errorf("Failed to produce fresh media for post %d: %v", post.ID, err)
				continue
			}
		}
		result := domain.InlineResult{
			ID:         resultID(post.ID, params),
			PostID:     post.ID,
			FileID:     entry.PlatformFileID,
			AsDocument: params.AsDocument || !strings.HasPrefix(entry.MimeType, "image/"),
			MimeType:   entry.MimeType,
			Caption:    params.CaptionFor(s.catalog.PostURL(post.ID)),
			HasSpoiler: params.Spoiler,
		}
		if params.Spoiler {
			result.Button = &domain.Button{Text: "Spoilerise 🫣", Data: CallbackSpoiler + result.ID}
		}
		answer.Results = append(answer.Results, result)
	}

	if offset+len(posts) < total {
		answer.NextOffset = strconv.Itoa(offset + len(posts))
	}
	return s.chat.AnswerInlineQuery(ctx, answer)
}

// HandleChosenInline applies the spoiler overlay to a just-sent inline result.
// Cached inline answers cannot carry a spoiler flag, so the sent message gets
// its media swapped for the same media marked as a spoiler.
func (s *InlineServiceImpl) HandleChosenInline(ctx context.Context, event *domain.ChosenInlineEvent, user domain.TrustedUser) error {
	params := domain.ParseInlineParams(event.Query)
	if !params.Spoiler || event.InlineMessageID == "" {
		return nil
	}

	postID, asDocument, ok := parseResultID(event.ResultID)
	if !ok {
		return nil
	}
	entry, err := s.media.CachedEntry(ctx, domain.MediaRef{PostID: postID, AsDocument: asDocument})
	if err != nil {
		logrus.Errorf("Spoiler edit missed cache for post %d: %v", postID, err)
		return err
	}
	caption := params.CaptionFor(s.catalog.PostURL(postID))
	return s.chat.EditInlineMedia(ctx, event.InlineMessageID, entry.PlatformFileID, asDocument, caption, true)
}

// HandleSpoilerCallback spoilerises the inline message a Spoilerise button
// sits under. The button is what gives the sent message an inline message ID,
// so a missing ID just gets the press acknowledged.
func (s *InlineServiceImpl) HandleSpoilerCallback(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	postID, asDocument, ok := parseResultID(strings.TrimPrefix(event.Data, CallbackSpoiler))
	if !ok || event.InlineMessageID == "" {
		return s.chat.AnswerCallback(ctx, event.ID, "Cannot spoilerise this message")
	}

	entry, err := s.media.CachedEntry(ctx, domain.MediaRef{PostID: postID, AsDocument: asDocument})
	if err != nil {
		logrus.Errorf("Spoiler button missed cache for post %d: %v", postID, err)
		return err
	}
	caption := s.catalog.PostURL(postID)
	if err := s.chat.EditInlineMedia(ctx, event.InlineMessageID, entry.PlatformFileID, asDocument, caption, true); err != nil {
		return err
	}
	return s.chat.AnswerCallback(ctx, event.ID, "Spoilerised")
}

// lookupEntries fans cache lookups out concurrently, one per post, and joins
// the results in post order. Misses come back nil.
func (s *InlineServiceImpl) lookupEntries(ctx context.Context, posts []*domain.Post, asDocument bool) []*domain.CacheEntry {
	entries := make([]*domain.CacheEntry, len(posts))
	done := make(chan struct{})
	for i, post := range posts {
		go func(i int, post *domain.Post) {
			defer func() { done <- struct{}{} }()
			entry, err := s.media.CachedEntry(ctx, domain.MediaRef{PostID: post.ID, AsDocument: asDocument})
			if err == nil {
				entries[i] = entry
			}
		}(i, post)
	}
	for range posts {
		<-done
	}
	close(done)
	return entries
}

// resultID encodes the post and its representation into an inline result ID
func resultID(postID int, params domain.InlineParams) string {
	if params.AsDocument {
		return fmt.Sprintf("%d:doc", postID)
	}
	return strconv.Itoa(postID)
}

// parseResultID decodes an inline result ID back to a media reference
func parseResultID(id string) (int, bool, bool) {
	asDocument := false
	if trimmed, found := strings.CutSuffix(id, ":doc"); found {
		asDocument = true
		id = trimmed
	}
	postID, err := strconv.Atoi(id)
	if err != nil {
		return 0, false, false
	}
	return postID, asDocument, true
}
