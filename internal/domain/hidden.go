package domain

import (
	"fmt"
	"net/url"
)

// HiddenDomain is the host used for the invisible state-carrying link.
// Messages never render it: the anchor text is a single zero-width space.
const HiddenDomain = "example.com"

// zeroWidthSpace is the anchor text of the hidden link
const zeroWidthSpace = "​"

// EncodeHiddenData serializes a flat session-state map into an invisible
// HTML link to be prepended to outgoing message text. When keys are given,
// only that subset is encoded, in that order - callers use this to trim
// unrelated fields when a message accumulates state across many edits.
// Keys missing from the state map are skipped.
func EncodeHiddenData(state map[string]string, keys ...string) string {
	params := url.Values{}
	if len(keys) == 0 {
		for key, value := range state {
			params.Set(key, value)
		}
	} else {
		for _, key := range keys {
			if value, ok := state[key]; ok {
				params.Set(key, value)
			}
		}
	}
	link := fmt.Sprintf("https://%s?%s", HiddenDomain, params.Encode())
	return fmt.Sprintf("<a href=\"%s\">%s</a>", link, zeroWidthSpace)
}

// ParseHiddenData recovers the session-state map from a message's link
// entities. Returns nil when no hidden marker is present, or when the
// marker's query string is malformed or empty. Validating that the map
// holds the keys a particular workflow phase needs is the caller's job.
func ParseHiddenData(entities []MessageEntity) map[string]string {
	for _, entity := range entities {
		if entity.Type != EntityTypeTextLink {
			continue
		}
		parsed, err := url.Parse(entity.URL)
		if err != nil {
			continue
		}
		if parsed.Host != HiddenDomain {
			continue
		}
		if parsed.RawQuery == "" {
			continue
		}
		values, err := url.ParseQuery(parsed.RawQuery)
		if err != nil {
			continue
		}
		state := make(map[string]string, len(values))
		for key, vals := range values {
			if len(vals) > 0 {
				state[key] = vals[0]
			}
		}
		return state
	}
	return nil
}

// HasFields reports whether the state map holds every one of the given keys.
// When precise is set, the map must hold exactly those keys and no others.
func HasFields(state map[string]string, fields []string, precise bool) bool {
	if state == nil {
		return false
	}
	for _, field := range fields {
		if _, ok := state[field]; !ok {
			return false
		}
	}
	if precise && len(state) != len(fields) {
		return false
	}
	return true
}
