package input

import (
	"context"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// UploadService interface - the new-media upload workflow
type UploadService interface {
	// HandleIncomingFile stages a received file and reports duplicates
	HandleIncomingFile(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) error
	// HandleUploadDecision finishes or cancels a staged upload
	HandleUploadDecision(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error
}
