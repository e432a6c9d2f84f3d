package input

import (
	"context"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// MaintenanceService interface - catalog maintenance commands
type MaintenanceService interface {
	// PopulateCache walks the catalog and fills the media identity cache
	PopulateCache(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) error
	// ListUnfinished reports posts whose tagging workflow is incomplete
	ListUnfinished(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) error
}
