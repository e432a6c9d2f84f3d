package szurubooru

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// TestGetPostMapsWireFormat tests the post wire format landing in the domain model
func TestGetPostMapsWireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/post/12" {
			t.Errorf("Expected /api/post/12, got %s", r.URL.Path)
		}
		wantAuth := "Token " + base64.StdEncoding.EncodeToString([]byte("bot:secret"))
		if r.Header.Get("Authorization") != wantAuth {
			t.Errorf("Expected token auth header, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 12, "version": 3, "safety": "safe",
			"tags": [{"names": ["ych", "auction"], "category": "default", "usages": 4, "version": 1}],
			"contentUrl": "data/posts/12.png", "mimeType": "image/png",
			"description": "notes"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bot", "secret")
	post, err := client.GetPost(context.Background(), 12)
	if err != nil {
		t.Fatalf("Expected post, got %v", err)
	}

	if post.ID != 12 || post.Version != 3 || post.Safety != "safe" {
		t.Errorf("Expected mapped post fields, got %+v", post)
	}
	if len(post.Tags) != 1 || post.Tags[0].PrimaryName() != "ych" || !post.HasTag("auction") {
		t.Errorf("Expected tag aliases mapped, got %+v", post.Tags)
	}
	if post.MimeType != "image/png" || post.Description != "notes" {
		t.Errorf("Expected content fields mapped, got %+v", post)
	}
}

// TestErrorStatusMapping tests HTTP statuses mapping to domain errors
func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrVersionConflict},
		{http.StatusBadRequest, domain.ErrInvalidRequest},
		{http.StatusInternalServerError, domain.ErrCatalogUnavailable},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := NewClient(server.URL, "bot", "secret")

		post := &domain.Post{ID: 1, Version: 1}
		_, err := client.UpdatePostTags(context.Background(), post, []string{"a"})
		if !errors.Is(err, tc.want) {
			t.Errorf("Expected %v for status %d, got %v", tc.want, tc.status, err)
		}
		server.Close()
	}
}

// TestGetRetriesTransientFailures tests reads retrying a transient failure
func TestGetRetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 5, "version": 1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bot", "secret")
	post, err := client.GetPost(context.Background(), 5)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if post.ID != 5 {
		t.Errorf("Expected post 5, got %d", post.ID)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

// TestWritesDoNotRetry tests that a conflicting write surfaces immediately
func TestWritesDoNotRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bot", "secret")
	post := &domain.Post{ID: 1, Version: 1}
	_, err := client.SetPostDescription(context.Background(), post, "text")
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("Expected version conflict, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

// TestSearchAllPostsWalksPages tests page walking until the total is reached
func TestSearchAllPostsWalksPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		w.Header().Set("Content-Type", "application/json")
		if offset == "0" {
			_, _ = w.Write([]byte(`{"total": 3, "results": [{"id": 1, "version": 1}, {"id": 2, "version": 1}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"total": 3, "results": [{"id": 3, "version": 1}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bot", "secret")
	posts, err := client.SearchAllPosts(context.Background(), "ych")
	if err != nil {
		t.Fatalf("Expected posts, got %v", err)
	}
	if len(posts) != 3 || posts[2].ID != 3 {
		t.Errorf("Expected 3 posts across pages, got %+v", posts)
	}
}

// TestDownloadContentResolvesRelativeURL tests relative content paths being
// resolved against the base URL
func TestDownloadContentResolvesRelativeURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/posts/9.png" {
			t.Errorf("Expected /data/posts/9.png, got %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("content-bytes"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bot", "secret")
	data, err := client.DownloadContent(context.Background(), &domain.Post{ID: 9, ContentURL: "data/posts/9.png"})
	if err != nil {
		t.Fatalf("Expected content, got %v", err)
	}
	if string(data) != "content-bytes" {
		t.Errorf("Expected raw content, got %q", data)
	}
}
