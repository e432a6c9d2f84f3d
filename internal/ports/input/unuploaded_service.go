package input

import (
	"context"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// UnuploadedService interface - the upload-backlog browsing workflow
type UnuploadedService interface {
	// StartMenu opens the backlog overview for the operator
	StartMenu(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) error
	// HandleMenuCallback navigates the backlog menus and applies decisions
	HandleMenuCallback(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error
	// HandleProposalReply stores a field value typed as a reply to a proposal prompt
	HandleProposalReply(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) (bool, error)
}
