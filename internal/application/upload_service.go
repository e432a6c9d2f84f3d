package application

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/input"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// CallbackUpload prefixes the upload decision callbacks
const CallbackUpload = "upload:"

// zippedExtensions are source-file formats the catalog cannot ingest directly.
// They are wrapped in a zip with a fixed timestamp, so re-sending the same
// file produces identical bytes and reverse search still catches duplicates.
var zippedExtensions = map[string]bool{
	"sai":  true,
	"sai2": true,
	"swf":  true,
	"xcf":  true,
}

// zipEpoch is the fixed modification time used inside deterministic zips
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// UploadServiceImpl struct - stages received files into the catalog's upload
// store, reports duplicates from reverse search, and finishes the post on the
// operator's safety decision
type UploadServiceImpl struct {
	catalog output.CatalogClient
	chat    output.ChatClient
	media   *MediaCacheService
	tagging input.TaggingService
}

var _ input.UploadService = (*UploadServiceImpl)(nil)

// NewUploadService creates the upload workflow service
func NewUploadService(catalog output.CatalogClient, chat output.ChatClient, media *MediaCacheService, tagging input.TaggingService) *UploadServiceImpl {
	return &UploadServiceImpl{
		catalog: catalog,
		chat:    chat,
		media:   media,
		tagging: tagging,
	}
}

// HandleIncomingFile stages a received file and asks for a safety decision
func (s *UploadServiceImpl) HandleIncomingFile(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) error {
	if event.File == nil {
		return nil
	}

	data, filename, err := s.chat.DownloadFile(ctx, event.File.FileID)
	if err != nil {
		logrus.Errorf("Failed to download incoming file: %v", err)
		_, replyErr := s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "Could not download that file", nil)
		if replyErr != nil {
			return replyErr
		}
		return err
	}
	if event.File.FileName != "" {
		filename = event.File.FileName
	}

	if zippedExtensions[domain.FileExt(filename)] {
		data, err = deterministicZip(filename, data)
		if err != nil {
			return err
		}
		filename += ".zip"
	}

	token, err := s.catalog.UploadFile(ctx, filename, bytes.NewReader(data))
	if err != nil {
		logrus.Errorf("Failed to stage upload: %v", err)
		_, replyErr := s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "Could not stage the file in the catalog", nil)
		if replyErr != nil {
			return replyErr
		}
		return err
	}

	result, err := s.catalog.ReverseSearch(ctx, token)
	if err != nil {
		logrus.Errorf("Reverse search failed: %v", err)
		result = &domain.ReverseSearchResult{}
	}

	if result.ExactPost != nil {
		existing := fmt.Sprintf(
			"This file is already in the catalog as <a href=\"%s\">post %d</a>.",
			s.catalog.PostURL(result.ExactPost.ID), result.ExactPost.ID,
		)
		_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, existing, nil)
		return err
	}

	hidden := domain.EncodeHiddenData(map[string]string{
		"token":    token.Token,
		"filepath": token.Filepath,
	})
	lines := []string{"How should this be uploaded?"}
	for _, match := range result.Similar {
		lines = append(lines, fmt.Sprintf(
			"Similar: <a href=\"%s\">post %d</a> (%.0f%%)",
			s.catalog.PostURL(match.Post.ID), match.Post.ID, (1-match.Distance)*100,
		))
	}

	buttons := [][]domain.Button{
		{
			{Text: "Upload SFW", Data: CallbackUpload + "sfw"},
			{Text: "Upload NSFW", Data: CallbackUpload + "nsfw"},
		},
		{{Text: "Cancel ❌", Data: CallbackUpload + "cancel"}},
	}
	_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, hidden+strings.Join(lines, "\n"), buttons)
	return err
}

// HandleUploadDecision finishes or cancels a staged upload
func (s *UploadServiceImpl) HandleUploadDecision(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	decision := strings.TrimPrefix(event.Data, CallbackUpload)

	if decision == "cancel" {
		if event.Message != nil {
			if err := s.chat.DeleteMessage(ctx, *event.Message); err != nil {
				logrus.Errorf("Failed to delete upload prompt: %v", err)
			}
		}
		return s.chat.AnswerCallback(ctx, event.ID, "Upload cancelled")
	}

	state := domain.ParseHiddenData(event.MessageEntities)
	if !domain.HasFields(state, []string{"token", "filepath"}, false) {
		return s.chat.AnswerCallback(ctx, event.ID, "This upload prompt has expired, send the file again")
	}
	token := &domain.FileToken{Token: state["token"], Filepath: state["filepath"]}

	var safety string
	switch decision {
	case "sfw":
		safety = "safe"
	case "nsfw":
		safety = "unsafe"
	default:
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown upload action")
	}

	tags := []string{ProgressTag(PhaseCommStatus)}
	if user.OwnerTag != "" {
		tags = append(tags, user.OwnerTag)
	}
	post, err := s.catalog.CreatePost(ctx, token, safety, tags, nil)
	if err != nil {
		logrus.Errorf("Failed to create post from upload: %v", err)
		return s.chat.AnswerCallback(ctx, event.ID, "Failed to create the post")
	}
	logrus.Infof("Created post %d from upload by %d", post.ID, event.SenderID)

	// Warm both cache representations while the content is fresh, so inline
	// answers for the new post never spend their fresh media budget on it.
	for _, asDocument := range []bool{false, true} {
		if _, err := s.media.StoreMedia(ctx, domain.MediaRef{PostID: post.ID, AsDocument: asDocument}); err != nil {
			logrus.Errorf("Failed to pre-cache post %d (document=%v): %v", post.ID, asDocument, err)
		}
	}

	if event.Message != nil {
		done := fmt.Sprintf(
			"Created <a href=\"%s\">post %d</a>.",
			s.catalog.PostURL(post.ID), post.ID,
		)
		if err := s.chat.EditText(ctx, *event.Message, done, nil); err != nil {
			return err
		}
		start := &domain.ChatMessageEvent{Ref: *event.Message, SenderID: event.SenderID}
		if err := s.tagging.StartTagging(ctx, start, user, post.ID); err != nil {
			logrus.Errorf("Failed to start tagging for new post %d: %v", post.ID, err)
		}
	}
	return s.chat.AnswerCallback(ctx, event.ID, "Post created")
}

// deterministicZip wraps content in a zip whose entry metadata never varies
func deterministicZip(filename string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	header := &zip.FileHeader{
		Name:     filename,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	entry, err := writer.CreateHeader(header)
	if err != nil {
		return nil, err
	}
	if _, err := entry.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
