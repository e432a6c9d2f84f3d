package application

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// popularityBaseQuery restricts the popularity index to finished pieces
const popularityBaseQuery = `status\:final`

// popularityCacheKey is the single key the index is stored under
const popularityCacheKey = "popularity"

// PopularityCache struct - memoized index of tag usage counts among finished
// pieces, used to order tag menus by how often a tag actually gets applied
type PopularityCache struct {
	catalog output.CatalogClient
	cache   *gocache.Cache
}

// NewPopularityCache creates a popularity index with the given time to live
func NewPopularityCache(catalog output.CatalogClient, ttl time.Duration) *PopularityCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PopularityCache{
		catalog: catalog,
		cache:   gocache.New(ttl, 10*time.Minute),
	}
}

// Popularity returns the tag usage index, rebuilding it when expired. Every
// name of a tag counts toward the same total, so alias lookups agree.
func (p *PopularityCache) Popularity(ctx context.Context) (map[string]int, error) {
	if cached, found := p.cache.Get(popularityCacheKey); found {
		return cached.(map[string]int), nil
	}

	logrus.Infof("Rebuilding tag popularity index")
	posts, err := p.catalog.SearchAllPosts(ctx, popularityBaseQuery)
	if err != nil {
		logrus.Errorf("Failed to rebuild popularity index: %v", err)
		return nil, err
	}

	index := make(map[string]int)
	for _, post := range posts {
		for _, tag := range post.Tags {
			for _, name := range tag.Names {
				index[name]++
			}
		}
	}
	p.cache.Set(popularityCacheKey, index, gocache.DefaultExpiration)
	logrus.Infof("Popularity index rebuilt from %d posts, %d tag names", len(posts), len(index))
	return index, nil
}

// PopularityWithin returns usage counts narrowed to finished pieces carrying
// any of the given tags, so character menus can rank co-occurring tags first.
// With no filter tags the full index is returned.
func (p *PopularityCache) PopularityWithin(ctx context.Context, filterTags []string) (map[string]int, error) {
	if len(filterTags) == 0 {
		return p.Popularity(ctx)
	}
	combined := make(map[string]int)
	for _, filter := range filterTags {
		index, err := p.narrowedIndex(ctx, filter)
		if err != nil {
			return nil, err
		}
		for name, count := range index {
			combined[name] += count
		}
	}
	return combined, nil
}

// narrowedIndex builds and memoizes the usage index among finished pieces
// carrying one specific tag
func (p *PopularityCache) narrowedIndex(ctx context.Context, filterTag string) (map[string]int, error) {
	key := popularityCacheKey + "|" + filterTag
	if cached, found := p.cache.Get(key); found {
		return cached.(map[string]int), nil
	}

	query := popularityBaseQuery + " " + escapeQueryTerm(filterTag)
	posts, err := p.catalog.SearchAllPosts(ctx, query)
	if err != nil {
		logrus.Errorf("Failed to build narrowed popularity index for %q: %v", filterTag, err)
		return nil, err
	}

	index := make(map[string]int)
	for _, post := range posts {
		for _, tag := range post.Tags {
			for _, name := range tag.Names {
				index[name]++
			}
		}
	}
	p.cache.Set(key, index, gocache.DefaultExpiration)
	return index, nil
}

// escapeQueryTerm escapes a literal tag name for use in a catalog search query
func escapeQueryTerm(name string) string {
	return strings.ReplaceAll(name, ":", `\:`)
}

// Invalidate drops every stored index so the next read rebuilds it
func (p *PopularityCache) Invalidate() {
	p.cache.Flush()
}
