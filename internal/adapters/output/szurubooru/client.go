package szurubooru

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

const (
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
	requestTimeout = 60 * time.Second
	searchPageSize = 100
)

// Client struct - HTTP client for the hoardbooru catalog's REST API.
// Reads retry transient failures with exponential backoff; writes never
// retry, so a version conflict surfaces to the caller untouched.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

var _ output.CatalogClient = (*Client)(nil)

// NewClient creates a catalog client with token authentication
func NewClient(baseURL, username, token string) *Client {
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + token))
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Token " + credentials,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// GetPost fetches one post by ID
func (c *Client) GetPost(ctx context.Context, postID int) (*domain.Post, error) {
	var res postResource
	if err := c.getJSON(ctx, fmt.Sprintf("/api/post/%d", postID), &res); err != nil {
		return nil, err
	}
	return toDomainPost(res), nil
}

// SearchPosts runs a tag query and returns one page of matching posts
func (c *Client) SearchPosts(ctx context.Context, query string, offset, limit int) ([]*domain.Post, int, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))

	var page pagedPosts
	if err := c.getJSON(ctx, "/api/posts/?"+params.Encode(), &page); err != nil {
		return nil, 0, err
	}
	posts := make([]*domain.Post, 0, len(page.Results))
	for _, res := range page.Results {
		posts = append(posts, toDomainPost(res))
	}
	return posts, page.Total, nil
}

// SearchAllPosts runs a tag query and walks every page of results
func (c *Client) SearchAllPosts(ctx context.Context, query string) ([]*domain.Post, error) {
	var all []*domain.Post
	offset := 0
	for {
		posts, total, err := c.SearchPosts(ctx, query, offset, searchPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, posts...)
		offset += len(posts)
		if len(posts) == 0 || offset >= total {
			return all, nil
		}
	}
}

// UpdatePostTags replaces a post's tag list, carrying its version
func (c *Client) UpdatePostTags(ctx context.Context, post *domain.Post, tagNames []string) (*domain.Post, error) {
	body := updateTagsRequest{Version: post.Version, Tags: tagNames}
	var res postResource
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/post/%d", post.ID), body, &res); err != nil {
		return nil, err
	}
	return toDomainPost(res), nil
}

// SetPostDescription replaces a post's description, carrying its version
func (c *Client) SetPostDescription(ctx context.Context, post *domain.Post, description string) (*domain.Post, error) {
	body := updateDescriptionRequest{Version: post.Version, Description: description}
	var res postResource
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/post/%d", post.ID), body, &res); err != nil {
		return nil, err
	}
	return toDomainPost(res), nil
}

// GetTag fetches one tag by name
func (c *Client) GetTag(ctx context.Context, name string) (*domain.Tag, error) {
	var res tagResource
	if err := c.getJSON(ctx, "/api/tag/"+url.PathEscape(name), &res); err != nil {
		return nil, err
	}
	return toDomainTag(res), nil
}

// SearchTags runs a tag name query and returns matching tags
func (c *Client) SearchTags(ctx context.Context, query string, limit int) ([]*domain.Tag, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))

	var page pagedTags
	if err := c.getJSON(ctx, "/api/tags/?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	tags := make([]*domain.Tag, 0, len(page.Results))
	for _, res := range page.Results {
		tags = append(tags, toDomainTag(res))
	}
	return tags, nil
}

// CreateTag creates a tag in the given category
func (c *Client) CreateTag(ctx context.Context, name, category string) (*domain.Tag, error) {
	body := createTagRequest{Names: []string{name}, Category: category}
	var res tagResource
	if err := c.sendJSON(ctx, http.MethodPost, "/api/tags", body, &res); err != nil {
		return nil, err
	}
	return toDomainTag(res), nil
}

// SetTagCategory moves a tag to another category, carrying its version
func (c *Client) SetTagCategory(ctx context.Context, tag *domain.Tag, category string) (*domain.Tag, error) {
	body := updateTagCategoryRequest{Version: tag.Version, Category: category}
	var res tagResource
	if err := c.sendJSON(ctx, http.MethodPut, "/api/tag/"+url.PathEscape(tag.PrimaryName()), body, &res); err != nil {
		return nil, err
	}
	return toDomainTag(res), nil
}

// UploadFile stores file content in the catalog's temporary upload store
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (*domain.FileToken, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("content", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var res uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &domain.FileToken{Token: res.Token, Filepath: filename}, nil
}

// ReverseSearch finds exact and similar posts for uploaded file content
func (c *Client) ReverseSearch(ctx context.Context, token *domain.FileToken) (*domain.ReverseSearchResult, error) {
	body := reverseSearchRequest{ContentToken: token.Token}
	var res reverseSearchResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/posts/reverse-search", body, &res); err != nil {
		return nil, err
	}

	result := &domain.ReverseSearchResult{}
	if res.ExactPost != nil {
		result.ExactPost = toDomainPost(*res.ExactPost)
	}
	for _, match := range res.SimilarPosts {
		result.Similar = append(result.Similar, domain.ReverseSearchMatch{
			Post:     *toDomainPost(match.Post),
			Distance: match.Distance,
		})
	}
	return result, nil
}

// CreatePost creates a post from an upload token
func (c *Client) CreatePost(ctx context.Context, token *domain.FileToken, safety string, tagNames []string, relatedPostIDs []int) (*domain.Post, error) {
	body := createPostRequest{
		Tags:         tagNames,
		Safety:       safety,
		ContentToken: token.Token,
		Relations:    relatedPostIDs,
	}
	var res postResource
	if err := c.sendJSON(ctx, http.MethodPost, "/api/posts", body, &res); err != nil {
		return nil, err
	}
	return toDomainPost(res), nil
}

// DownloadContent fetches a post's file content
func (c *Client) DownloadContent(ctx context.Context, post *domain.Post) ([]byte, error) {
	contentURL := post.ContentURL
	if !strings.HasPrefix(contentURL, "http://") && !strings.HasPrefix(contentURL, "https://") {
		contentURL = c.baseURL + "/" + strings.TrimLeft(contentURL, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// PostURL returns the browser URL of a post
func (c *Client) PostURL(postID int) string {
	return fmt.Sprintf("%s/post/%d", c.baseURL, postID)
}

// getJSON performs a GET with retries and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			logrus.Infof("Retrying catalog request %s in %v (attempt %d/%d)", path, delay, attempt+1, maxRetries)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.doJSON(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err
		// Client errors will not get better with retries
		if !isRetryable(err) {
			return err
		}
	}
	return lastErr
}

// sendJSON performs a write request without retries
func (c *Client) sendJSON(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doJSON(ctx, method, path, body, out)
}

// doJSON performs one JSON request and decodes the response
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// checkStatus maps HTTP status codes to domain errors
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	detail := ""
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Title != "" {
		detail = fmt.Sprintf(": %s - %s", apiErr.Title, apiErr.Description)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w%s", domain.ErrNotFound, detail)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w%s", domain.ErrVersionConflict, detail)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w (status %d)%s", domain.ErrInvalidRequest, resp.StatusCode, detail)
	default:
		return fmt.Errorf("%w (status %d)%s", domain.ErrCatalogUnavailable, resp.StatusCode, detail)
	}
}

// isRetryable reports whether a request is worth retrying
func isRetryable(err error) bool {
	return !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrInvalidRequest) &&
		!errors.Is(err, domain.ErrVersionConflict)
}
