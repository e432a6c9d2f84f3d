package domain

import (
	"fmt"
	"sort"
	"sync"
)

// ChannelState - ternary upload status of a post for one destination channel
type ChannelState int

const (
	// StatePending means the post still needs uploading to the channel
	StatePending ChannelState = iota
	// StateUploaded means the post has been uploaded to the channel
	StateUploaded
	// StateNotPosting means the post was deliberately skipped for the channel
	StateNotPosting
)

// String returns a human readable name for the channel state
func (s ChannelState) String() string {
	switch s {
	case StateUploaded:
		return "uploaded"
	case StateNotPosting:
		return "not posting"
	default:
		return "pending"
	}
}

// Destination channel names
const (
	ChannelE621 = "e621"
	ChannelFA   = "fa"
)

// PostUploadState struct - classification of one post across destination channels
type PostUploadState struct {
	PostID int
	States map[string]ChannelState
}

// Resolved reports whether every channel has reached a terminal state
func (p PostUploadState) Resolved() bool {
	for _, state := range p.States {
		if state == StatePending {
			return false
		}
	}
	return true
}

// ClassifyPost derives the per-channel upload state of a post from its tags.
// The FA channel is per-operator, selected by the operator's upload tag infix.
func ClassifyPost(post *Post, uploadTagInfix string) PostUploadState {
	states := map[string]ChannelState{
		ChannelE621: StatePending,
		ChannelFA:   StatePending,
	}
	if post.HasTag("uploaded_to:e621") {
		states[ChannelE621] = StateUploaded
	} else if post.HasTag("uploaded_to:e621_not_posting") {
		states[ChannelE621] = StateNotPosting
	}
	if post.HasTag(fmt.Sprintf("uploaded_to:%s_fa", uploadTagInfix)) {
		states[ChannelFA] = StateUploaded
	} else if post.HasTag(fmt.Sprintf("uploaded_to:%s_not_posting", uploadTagInfix)) {
		states[ChannelFA] = StateNotPosting
	}
	return PostUploadState{PostID: post.ID, States: states}
}

// UploadStateSnapshot struct - aggregate upload state over one query's posts,
// built once and then updated incrementally as the operator resolves posts.
// Updates arrive from concurrently handled chat events, so the maps stay
// behind a lock.
type UploadStateSnapshot struct {
	Query          string
	UploadTagInfix string

	mu     sync.RWMutex
	posts  map[int]*Post
	states map[int]PostUploadState
}

// NewUploadStateSnapshot classifies every post of a query result
func NewUploadStateSnapshot(query, uploadTagInfix string, posts []*Post) *UploadStateSnapshot {
	snapshot := &UploadStateSnapshot{
		Query:          query,
		UploadTagInfix: uploadTagInfix,
		posts:          make(map[int]*Post, len(posts)),
		states:         make(map[int]PostUploadState, len(posts)),
	}
	for _, post := range posts {
		snapshot.posts[post.ID] = post
		snapshot.states[post.ID] = ClassifyPost(post, uploadTagInfix)
	}
	return snapshot
}

// UpdatePost re-classifies a single post in place, without a full rescan
func (s *UploadStateSnapshot) UpdatePost(post *Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = post
	s.states[post.ID] = ClassifyPost(post, s.UploadTagInfix)
}

// Lookup returns one post and its classification, if the snapshot holds it
func (s *UploadStateSnapshot) Lookup(postID int) (*Post, PostUploadState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[postID]
	if !ok {
		return nil, PostUploadState{}, false
	}
	return post, s.states[postID], true
}

// Pending returns the posts with at least one channel still pending, by ascending ID
func (s *UploadStateSnapshot) Pending() []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*Post
	for id, state := range s.states {
		if !state.Resolved() {
			pending = append(pending, s.posts[id])
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending
}

// PendingForChannel returns the posts still pending for one channel, by ascending ID
func (s *UploadStateSnapshot) PendingForChannel(channel string) []*Post {
	return s.InState(channel, StatePending)
}

// InState returns the posts in one state for one channel, by ascending ID
func (s *UploadStateSnapshot) InState(channel string, wanted ChannelState) []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var posts []*Post
	for id, state := range s.states {
		if state.States[channel] == wanted {
			posts = append(posts, s.posts[id])
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts
}

// ListAlts returns the posts sharing a commission tag, by ascending ID. These
// are alternate versions of the same commission. With uploadedOnly set, only
// posts whose channels are all resolved are returned.
func (s *UploadStateSnapshot) ListAlts(commissionTag string, uploadedOnly bool) []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var alts []*Post
	for id, post := range s.posts {
		if !post.HasTag(commissionTag) {
			continue
		}
		if uploadedOnly && !s.states[id].Resolved() {
			continue
		}
		alts = append(alts, post)
	}
	sort.Slice(alts, func(i, j int) bool { return alts[i].ID < alts[j].ID })
	return alts
}

// CountByState tallies posts per channel state for one channel
func (s *UploadStateSnapshot) CountByState(channel string) map[ChannelState]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[ChannelState]int)
	for _, state := range s.states {
		counts[state.States[channel]]++
	}
	return counts
}
