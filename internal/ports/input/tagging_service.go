package input

import (
	"context"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// TaggingService interface - the guided tagging workflow
type TaggingService interface {
	// StartTagging opens the tagging menu for a post, at its resumed phase
	StartTagging(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser, postID int) error
	// HandleTagToggle flips one tag on the post under the menu
	HandleTagToggle(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error
	// HandlePhaseChange advances or jumps the menu to another phase
	HandlePhaseChange(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error
	// HandleOrderChange switches the menu's tag ordering
	HandleOrderChange(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error
	// HandlePageChange moves the menu to another page of tags
	HandlePageChange(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error
	// HandleFreeTextTag applies tags typed as a reply to the menu
	HandleFreeTextTag(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) (bool, error)
}
