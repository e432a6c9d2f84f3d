package output

import (
	"context"
	"io"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// CatalogClient interface - operations against the hoardbooru catalog service
type CatalogClient interface {
	// GetPost fetches one post by ID
	GetPost(ctx context.Context, postID int) (*domain.Post, error)
	// SearchPosts runs a tag query and returns one page of matching posts
	SearchPosts(ctx context.Context, query string, offset, limit int) ([]*domain.Post, int, error)
	// SearchAllPosts runs a tag query and returns every matching post
	SearchAllPosts(ctx context.Context, query string) ([]*domain.Post, error)
	// UpdatePostTags replaces a post's tag list, carrying its version
	UpdatePostTags(ctx context.Context, post *domain.Post, tagNames []string) (*domain.Post, error)
	// SetPostDescription replaces a post's description, carrying its version
	SetPostDescription(ctx context.Context, post *domain.Post, description string) (*domain.Post, error)
	// GetTag fetches one tag by name
	GetTag(ctx context.Context, name string) (*domain.Tag, error)
	// SearchTags runs a tag name query and returns matching tags
	SearchTags(ctx context.Context, query string, limit int) ([]*domain.Tag, error)
	// CreateTag creates a tag in the given category
	CreateTag(ctx context.Context, name, category string) (*domain.Tag, error)
	// SetTagCategory moves a tag to another category, carrying its version
	SetTagCategory(ctx context.Context, tag *domain.Tag, category string) (*domain.Tag, error)
	// UploadFile stores file content in the catalog's temporary upload store
	UploadFile(ctx context.Context, filename string, content io.Reader) (*domain.FileToken, error)
	// ReverseSearch finds exact and similar posts for uploaded file content
	ReverseSearch(ctx context.Context, token *domain.FileToken) (*domain.ReverseSearchResult, error)
	// CreatePost creates a post from an upload token with the given safety and tags
	CreatePost(ctx context.Context, token *domain.FileToken, safety string, tagNames []string, relatedPostIDs []int) (*domain.Post, error)
	// DownloadContent fetches a post's file content
	DownloadContent(ctx context.Context, post *domain.Post) ([]byte, error)
	// PostURL returns the browser URL of a post
	PostURL(postID int) string
}
