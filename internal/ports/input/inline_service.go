package input

import (
	"context"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// InlineService interface - inline catalog search from any chat
type InlineService interface {
	// HandleInlineQuery answers an inline search with cached media results
	HandleInlineQuery(ctx context.Context, event *domain.InlineQueryEvent, user domain.TrustedUser) error
	// HandleChosenInline upgrades a sent placeholder to its real media
	HandleChosenInline(ctx context.Context, event *domain.ChosenInlineEvent, user domain.TrustedUser) error
	// HandleSpoilerCallback spoilerises a sent inline result on button press
	HandleSpoilerCallback(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error
}
