package application

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// fakeCatalog implements output.CatalogClient for tests, with call counters
// and per-method hooks
type fakeCatalog struct {
	posts           map[int]*domain.Post
	tags            map[string]*domain.Tag
	searchResults   []*domain.Post
	searchCalls     int
	getPostCalls    int
	updatedTags     map[int][]string
	categoryChanges map[string]string
	downloadedData  []byte
}

var _ output.CatalogClient = (*fakeCatalog)(nil)

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		posts:           make(map[int]*domain.Post),
		tags:            make(map[string]*domain.Tag),
		updatedTags:     make(map[int][]string),
		categoryChanges: make(map[string]string),
	}
}

func (f *fakeCatalog) GetPost(_ context.Context, postID int) (*domain.Post, error) {
	f.getPostCalls++
	post, ok := f.posts[postID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return post, nil
}

func (f *fakeCatalog) SearchPosts(_ context.Context, _ string, offset, limit int) ([]*domain.Post, int, error) {
	end := offset + limit
	if end > len(f.searchResults) {
		end = len(f.searchResults)
	}
	if offset > len(f.searchResults) {
		offset = len(f.searchResults)
	}
	return f.searchResults[offset:end], len(f.searchResults), nil
}

func (f *fakeCatalog) SearchAllPosts(_ context.Context, _ string) ([]*domain.Post, error) {
	f.searchCalls++
	return f.searchResults, nil
}

func (f *fakeCatalog) UpdatePostTags(_ context.Context, post *domain.Post, tagNames []string) (*domain.Post, error) {
	f.updatedTags[post.ID] = tagNames
	updated := &domain.Post{ID: post.ID, Version: post.Version + 1, Safety: post.Safety}
	for _, name := range tagNames {
		updated.Tags = append(updated.Tags, domain.Tag{Names: []string{name}})
	}
	f.posts[post.ID] = updated
	return updated, nil
}

func (f *fakeCatalog) SetPostDescription(_ context.Context, post *domain.Post, description string) (*domain.Post, error) {
	updated := *post
	updated.Description = description
	updated.Version++
	f.posts[post.ID] = &updated
	return &updated, nil
}

func (f *fakeCatalog) GetTag(_ context.Context, name string) (*domain.Tag, error) {
	tag, ok := f.tags[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tag, nil
}

func (f *fakeCatalog) SearchTags(_ context.Context, _ string, _ int) ([]*domain.Tag, error) {
	return nil, nil
}

func (f *fakeCatalog) CreateTag(_ context.Context, name, category string) (*domain.Tag, error) {
	tag := &domain.Tag{Names: []string{name}, Category: category, Version: 1}
	f.tags[name] = tag
	return tag, nil
}

func (f *fakeCatalog) SetTagCategory(_ context.Context, tag *domain.Tag, category string) (*domain.Tag, error) {
	f.categoryChanges[tag.PrimaryName()] = category
	updated := *tag
	updated.Category = category
	updated.Version++
	f.tags[updated.PrimaryName()] = &updated
	return &updated, nil
}

func (f *fakeCatalog) UploadFile(_ context.Context, _ string, _ io.Reader) (*domain.FileToken, error) {
	return &domain.FileToken{Token: "upload-token"}, nil
}

func (f *fakeCatalog) ReverseSearch(_ context.Context, _ *domain.FileToken) (*domain.ReverseSearchResult, error) {
	return &domain.ReverseSearchResult{}, nil
}

func (f *fakeCatalog) CreatePost(_ context.Context, _ *domain.FileToken, safety string, tagNames []string, _ []int) (*domain.Post, error) {
	post := &domain.Post{ID: len(f.posts) + 1, Version: 1, Safety: safety}
	for _, name := range tagNames {
		post.Tags = append(post.Tags, domain.Tag{Names: []string{name}})
	}
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakeCatalog) DownloadContent(_ context.Context, _ *domain.Post) ([]byte, error) {
	if f.downloadedData == nil {
		return nil, errors.New("no content configured")
	}
	return f.downloadedData, nil
}

func (f *fakeCatalog) PostURL(postID int) string {
	return fmt.Sprintf("http://hoard.test/post/%d", postID)
}

// inlineEdit records one EditInlineMedia call made against fakeChat
type inlineEdit struct {
	inlineMessageID string
	fileID          string
	asDocument      bool
	caption         string
	spoiler         bool
}

// fakeChat implements output.ChatClient for tests, recording deliveries
type fakeChat struct {
	sentPhotos    int
	sentDocuments int
	photoErr      error
	lastCaption   string
	answers       []*domain.InlineAnswer
	inlineEdits   []inlineEdit
	toasts        []string
	edits         []string
}

var _ output.ChatClient = (*fakeChat)(nil)

func (f *fakeChat) ReplyText(_ context.Context, chatID int64, _ int, _ string, _ [][]domain.Button) (*domain.SentMessage, error) {
	return &domain.SentMessage{Ref: domain.ChatMessageRef{ChatID: chatID, MessageID: 1}}, nil
}

func (f *fakeChat) EditText(_ context.Context, _ domain.ChatMessageRef, html string, _ [][]domain.Button) error {
	f.edits = append(f.edits, html)
	return nil
}

func (f *fakeChat) EditInlineMedia(_ context.Context, inlineMessageID string, fileID string, asDocument bool, caption string, spoiler bool) error {
	f.inlineEdits = append(f.inlineEdits, inlineEdit{
		inlineMessageID: inlineMessageID,
		fileID:          fileID,
		asDocument:      asDocument,
		caption:         caption,
		spoiler:         spoiler,
	})
	return nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, _ domain.ChatMessageRef) error {
	return nil
}

func (f *fakeChat) SendPhotoFile(_ context.Context, _ int64, _ []byte, _, caption string) (*domain.SentMessage, error) {
	if f.photoErr != nil {
		return nil, f.photoErr
	}
	f.sentPhotos++
	f.lastCaption = caption
	return &domain.SentMessage{
		Ref:   domain.ChatMessageRef{MessageID: f.sentPhotos},
		Media: &domain.MediaHandle{FileID: fmt.Sprintf("photo-%d", f.sentPhotos), FileUniqueID: "uniq", MimeType: "image/jpeg"},
	}, nil
}

func (f *fakeChat) SendDocumentFile(_ context.Context, _ int64, _ []byte, filename, caption string) (*domain.SentMessage, error) {
	f.sentDocuments++
	f.lastCaption = caption
	return &domain.SentMessage{
		Ref:   domain.ChatMessageRef{MessageID: f.sentDocuments},
		Media: &domain.MediaHandle{FileID: fmt.Sprintf("doc-%d-%s", f.sentDocuments, filename), FileUniqueID: "uniq"},
	}, nil
}

func (f *fakeChat) DownloadFile(_ context.Context, _ string) ([]byte, string, error) {
	return nil, "", errors.New("not configured")
}

func (f *fakeChat) AnswerCallback(_ context.Context, _, text string) error {
	f.toasts = append(f.toasts, text)
	return nil
}

func (f *fakeChat) AnswerInlineQuery(_ context.Context, answer *domain.InlineAnswer) error {
	f.answers = append(f.answers, answer)
	return nil
}

// fakeCacheRepo implements output.CacheRepository in memory
type fakeCacheRepo struct {
	entries map[string]*domain.CacheEntry
	upserts int
}

var _ output.CacheRepository = (*fakeCacheRepo)(nil)

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string]*domain.CacheEntry)}
}

func repoKey(postID int, asDocument bool) string {
	return fmt.Sprintf("%d|%v", postID, asDocument)
}

func (f *fakeCacheRepo) Fetch(_ context.Context, postID int, asDocument bool) (*domain.CacheEntry, error) {
	entry, ok := f.entries[repoKey(postID, asDocument)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (f *fakeCacheRepo) Upsert(_ context.Context, entry *domain.CacheEntry) error {
	f.upserts++
	f.entries[repoKey(entry.PostID, entry.AsDocument)] = entry
	return nil
}

func (f *fakeCacheRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.entries)), nil
}

func (f *fakeCacheRepo) CountForPosts(_ context.Context, postIDs []int, asDocument bool) (int64, error) {
	var count int64
	for _, id := range postIDs {
		if _, ok := f.entries[repoKey(id, true)]; ok {
			count++
			continue
		}
		if !asDocument {
			if _, ok := f.entries[repoKey(id, false)]; ok {
				count++
			}
		}
	}
	return count, nil
}
