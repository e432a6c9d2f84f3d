package szurubooru

import "github.com/Deer-Spangle/hoardbooru-bot/internal/domain"

// tagResource struct - wire format of one tag
type tagResource struct {
	Names        []string   `json:"names"`
	Category     string     `json:"category"`
	Implications []microTag `json:"implications,omitempty"`
	Usages       int        `json:"usages"`
	Version      int        `json:"version"`
}

// microTag struct - abbreviated tag reference inside other resources
type microTag struct {
	Names    []string `json:"names"`
	Category string   `json:"category"`
	Usages   int      `json:"usages"`
}

// postResource struct - wire format of one post
type postResource struct {
	ID          int           `json:"id"`
	Version     int           `json:"version"`
	Safety      string        `json:"safety"`
	Tags        []tagResource `json:"tags"`
	ContentURL  string        `json:"contentUrl"`
	MimeType    string        `json:"mimeType"`
	Description string        `json:"description"`
}

// pagedPosts struct - one page of a post search
type pagedPosts struct {
	Query   string         `json:"query"`
	Offset  int            `json:"offset"`
	Limit   int            `json:"limit"`
	Total   int            `json:"total"`
	Results []postResource `json:"results"`
}

// pagedTags struct - one page of a tag search
type pagedTags struct {
	Total   int           `json:"total"`
	Results []tagResource `json:"results"`
}

// uploadResponse struct - response of the temporary upload endpoint
type uploadResponse struct {
	Token string `json:"token"`
}

// reverseSearchResponse struct - response of the reverse search endpoint
type reverseSearchResponse struct {
	ExactPost    *postResource `json:"exactPost"`
	SimilarPosts []struct {
		Distance float64      `json:"distance"`
		Post     postResource `json:"post"`
	} `json:"similarPosts"`
}

// errorResponse struct - the catalog's error body
type errorResponse struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// updateTagsRequest struct - version-carrying tag replacement
type updateTagsRequest struct {
	Version int      `json:"version"`
	Tags    []string `json:"tags"`
}

// updateDescriptionRequest struct - version-carrying description replacement
type updateDescriptionRequest struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// createTagRequest struct - new tag creation body
type createTagRequest struct {
	Names    []string `json:"names"`
	Category string   `json:"category"`
}

// updateTagCategoryRequest struct - version-carrying category move
type updateTagCategoryRequest struct {
	Version  int    `json:"version"`
	Category string `json:"category"`
}

// createPostRequest struct - new post creation body
type createPostRequest struct {
	Tags         []string `json:"tags"`
	Safety       string   `json:"safety"`
	ContentToken string   `json:"contentToken"`
	Relations    []int    `json:"relations,omitempty"`
}

// reverseSearchRequest struct - reverse search body
type reverseSearchRequest struct {
	ContentToken string `json:"contentToken"`
}

// toDomainTag converts a wire tag to the domain model
func toDomainTag(res tagResource) *domain.Tag {
	tag := &domain.Tag{
		Names:    res.Names,
		Category: res.Category,
		Usages:   res.Usages,
		Version:  res.Version,
	}
	for _, implied := range res.Implications {
		if len(implied.Names) > 0 {
			tag.Implications = append(tag.Implications, implied.Names[0])
		}
	}
	return tag
}

// toDomainPost converts a wire post to the domain model
func toDomainPost(res postResource) *domain.Post {
	post := &domain.Post{
		ID:          res.ID,
		Version:     res.Version,
		Safety:      res.Safety,
		ContentURL:  res.ContentURL,
		MimeType:    res.MimeType,
		Description: res.Description,
	}
	for _, tag := range res.Tags {
		post.Tags = append(post.Tags, *toDomainTag(tag))
	}
	return post
}
