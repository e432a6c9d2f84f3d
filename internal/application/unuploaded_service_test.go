package application

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// backlogFixture wires an unuploaded service over fakes
func backlogFixture(posts ...*domain.Post) (*UnuploadedServiceImpl, *fakeCatalog, *fakeChat, *UploadStateCache) {
	catalog := newFakeCatalog()
	catalog.searchResults = posts
	for _, post := range posts {
		catalog.posts[post.ID] = post
	}
	chat := &fakeChat{}
	snapshots := NewUploadStateCache(catalog, time.Minute)
	service := NewUnuploadedService(catalog, chat, snapshots)
	return service, catalog, chat, snapshots
}

// promptEntities simulates the hidden data a proposal prompt carries
func promptEntities(postID int, field string) []domain.MessageEntity {
	encoded := domain.EncodeHiddenData(map[string]string{
		"post_id":       strconv.Itoa(postID),
		"propose_field": field,
	})
	start := len(`<a href="`)
	end := len(encoded) - len(`">​</a>`)
	return []domain.MessageEntity{{Type: domain.EntityTypeTextLink, URL: encoded[start:end]}}
}

// TestDecisionAppliesTagAndUpdatesSnapshot tests that marking a post skipped
// applies the channel tag and re-classifies without a rescan
func TestDecisionAppliesTagAndUpdatesSnapshot(t *testing.T) {
	post := uploadTestPost(4, "status:final")
	service, catalog, _, snapshots := backlogFixture(post)
	user := domain.TrustedUser{TelegramID: 1, UploadTagInfix: "zeph"}

	if _, err := snapshots.Snapshot(context.Background(), backlogQuery(user, ""), user, false); err != nil {
		t.Fatalf("Expected snapshot, got %v", err)
	}

	event := &domain.CallbackEvent{
		ID:      "cb1",
		Data:    CallbackUploadTag + "4:e621:skip",
		Message: &domain.ChatMessageRef{ChatID: 10, MessageID: 20},
	}
	if err := service.HandleMenuCallback(context.Background(), event, user); err != nil {
		t.Fatalf("Expected decision to succeed, got %v", err)
	}

	tags := catalog.updatedTags[4]
	found := false
	for _, name := range tags {
		if name == "uploaded_to:e621_not_posting" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected not_posting tag applied, got %v", tags)
	}

	snapshot, _ := snapshots.Snapshot(context.Background(), backlogQuery(user, ""), user, false)
	if catalog.searchCalls != 1 {
		t.Errorf("Expected no rescan after the decision, got %d scans", catalog.searchCalls)
	}
	_, state, ok := snapshot.Lookup(4)
	if !ok {
		t.Fatal("Expected post 4 in the snapshot")
	}
	if state.States[domain.ChannelE621] != domain.StateNotPosting {
		t.Errorf("Expected snapshot state not_posting, got %v", state.States[domain.ChannelE621])
	}
}

// TestProposalReplyStoresTitle tests a replied title landing in the
// description upload data document
func TestProposalReplyStoresTitle(t *testing.T) {
	post := uploadTestPost(9, "status:final")
	service, catalog, _, _ := backlogFixture(post)
	user := domain.TrustedUser{TelegramID: 1, UploadTagInfix: "zeph"}

	event := &domain.ChatMessageEvent{
		Ref:             domain.ChatMessageRef{ChatID: 10, MessageID: 30},
		Text:            "Beach day",
		ReplyTo:         &domain.ChatMessageRef{ChatID: 10, MessageID: 29},
		ReplyToEntities: promptEntities(9, ProposeTitle),
	}
	handled, err := service.HandleProposalReply(context.Background(), event, user)
	if err != nil {
		t.Fatalf("Expected reply to be stored, got %v", err)
	}
	if !handled {
		t.Fatal("Expected reply to be recognised as a proposal")
	}

	stored := catalog.posts[9]
	data := domain.ParseDescription(stored.Description).UploadData()
	if data == nil || data.ProposedData == nil || data.ProposedData.Title != "Beach day" {
		t.Errorf("Expected proposed title stored, got %q", stored.Description)
	}
}

// TestProposalReplyStoresUploadLink tests a replied link landing as an upload
// record with the operator's info attached
func TestProposalReplyStoresUploadLink(t *testing.T) {
	post := uploadTestPost(9, "status:final")
	service, catalog, _, _ := backlogFixture(post)
	user := domain.TrustedUser{TelegramID: 1, UploadTagInfix: "zeph"}

	event := &domain.ChatMessageEvent{
		Ref:             domain.ChatMessageRef{ChatID: 10, MessageID: 31},
		Text:            "https://furaffinity.net/view/555",
		ReplyTo:         &domain.ChatMessageRef{ChatID: 10, MessageID: 30},
		ReplyToEntities: promptEntities(9, "link_fa"),
	}
	handled, err := service.HandleProposalReply(context.Background(), event, user)
	if err != nil || !handled {
		t.Fatalf("Expected link reply to be stored, got handled=%v err=%v", handled, err)
	}

	data := domain.ParseDescription(catalog.posts[9].Description).UploadData()
	if data == nil || len(data.Uploads) != 1 {
		t.Fatalf("Expected one upload record, got %+v", data)
	}
	record := data.Uploads[0]
	if record.UploaderType != domain.ChannelFA || record.Link != "https://furaffinity.net/view/555" || record.UploaderTypeInfo != "zeph" {
		t.Errorf("Expected fa record with operator info, got %+v", record)
	}
}

// TestParseBacklogArgs tests the command argument handling of the backlog menu
func TestParseBacklogArgs(t *testing.T) {
	view := parseBacklogArgs("/unuploaded uploaded ych beach")
	if !view.uploadedOnly {
		t.Error("Expected the uploaded token to flip the view")
	}
	if view.extraQuery != "ych beach" {
		t.Errorf("Expected extra query terms, got %q", view.extraQuery)
	}

	view = parseBacklogArgs("/unuploaded")
	if view.uploadedOnly || view.extraQuery != "" {
		t.Errorf("Expected empty view for a bare command, got %+v", view)
	}
}

// TestProposalReplyIgnoresUnrelatedMessages tests that plain replies pass through
func TestProposalReplyIgnoresUnrelatedMessages(t *testing.T) {
	service, _, _, _ := backlogFixture()

	event := &domain.ChatMessageEvent{
		Ref:     domain.ChatMessageRef{ChatID: 10, MessageID: 31},
		Text:    "just chatting",
		ReplyTo: &domain.ChatMessageRef{ChatID: 10, MessageID: 30},
	}
	handled, err := service.HandleProposalReply(context.Background(), event, domain.TrustedUser{})
	if err != nil {
		t.Fatalf("Expected pass through, got %v", err)
	}
	if handled {
		t.Error("Expected unrelated reply to be left alone")
	}
}
