package domain

import "strings"

// Tag struct - one catalog tag with its aliases and relations
type Tag struct {
	Names        []string
	Category     string
	Implications []string
	Usages       int
	Version      int
}

// PrimaryName returns the canonical name of the tag
func (t *Tag) PrimaryName() string {
	if len(t.Names) == 0 {
		return ""
	}
	return t.Names[0]
}

// HasName reports whether any of the tag's names matches the given name
func (t *Tag) HasName(name string) bool {
	for _, n := range t.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Post struct - one catalog entry ("post"), identified by integer ID
type Post struct {
	ID          int
	Version     int
	Safety      string
	Tags        []Tag
	ContentURL  string
	MimeType    string
	Description string
}

// TagNames returns every name of every tag on the post, aliases included
func (p *Post) TagNames() []string {
	var names []string
	for _, tag := range p.Tags {
		names = append(names, tag.Names...)
	}
	return names
}

// PrimaryTagNames returns the canonical name of each tag on the post
func (p *Post) PrimaryTagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		names = append(names, tag.PrimaryName())
	}
	return names
}

// HasTag reports whether the post carries a tag with the given name or alias
func (p *Post) HasTag(name string) bool {
	for _, tag := range p.Tags {
		if tag.HasName(name) {
			return true
		}
	}
	return false
}

// TagsInCategory returns the post's tags belonging to the given category
func (p *Post) TagsInCategory(category string) []Tag {
	var tags []Tag
	for _, tag := range p.Tags {
		if tag.Category == category {
			tags = append(tags, tag)
		}
	}
	return tags
}

// FileToken struct - handle for a file in the catalog's temporary upload store
type FileToken struct {
	Token    string
	Filepath string
}

// ReverseSearchMatch struct - one similar post from a reverse image search
type ReverseSearchMatch struct {
	Post     Post
	Distance float64
}

// ReverseSearchResult struct - outcome of a reverse image search
type ReverseSearchResult struct {
	ExactPost *Post
	Similar   []ReverseSearchMatch
}

// FileExt returns the lowercase extension of a file name or URL, without the dot
func FileExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
