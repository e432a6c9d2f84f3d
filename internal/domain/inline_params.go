package domain

import "strings"

// documentAliases are the query words selecting the uncompressed document variant
var documentAliases = map[string]bool{
	"file":         true,
	"doc":          true,
	"uncompressed": true,
	"raw":          true,
}

// InlineParams struct - modifiers parsed out of an inline search query
type InlineParams struct {
	Query      string
	AsDocument bool
	WithLink   bool
	Spoiler    bool
	Caption    string
	HasCaption bool
}

// ParseInlineParams splits an inline query into catalog search terms and
// delivery modifiers. Modifier words are consumed wherever they appear;
// "caption:" swallows the remainder of the query as a caption template.
// The template may reference {link} to splice in the post's catalog URL.
func ParseInlineParams(raw string) InlineParams {
	params := InlineParams{}
	terms := strings.Fields(raw)
	var searchTerms []string
	for i := 0; i < len(terms); i++ {
		term := strings.ToLower(terms[i])
		switch {
		case documentAliases[term]:
			params.AsDocument = true
		case term == "link":
			params.WithLink = true
		case term == "spoiler":
			params.Spoiler = true
		case term == "caption:":
			params.HasCaption = true
			params.Caption = strings.Join(terms[i+1:], " ")
			i = len(terms)
		default:
			searchTerms = append(searchTerms, terms[i])
		}
	}
	params.Query = strings.Join(searchTerms, " ")
	return params
}

// CaptionFor renders the caption for one post, substituting {link} with the
// post's catalog URL. Returns the post link alone when only "link" was given.
func (p InlineParams) CaptionFor(postURL string) string {
	if p.HasCaption {
		return strings.ReplaceAll(p.Caption, "{link}", postURL)
	}
	if p.WithLink {
		return postURL
	}
	return ""
}
