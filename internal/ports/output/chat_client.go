package output

import (
	"context"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// ChatClient interface - operations against the chat platform
type ChatClient interface {
	// ReplyText sends an HTML-formatted text message with an optional keyboard
	ReplyText(ctx context.Context, chatID int64, replyTo int, html string, buttons [][]domain.Button) (*domain.SentMessage, error)
	// EditText edits a message's HTML text and keyboard in place
	EditText(ctx context.Context, ref domain.ChatMessageRef, html string, buttons [][]domain.Button) error
	// EditInlineMedia swaps an inline message's media and caption in place
	EditInlineMedia(ctx context.Context, inlineMessageID string, fileID string, asDocument bool, caption string, spoiler bool) error
	// DeleteMessage removes a message
	DeleteMessage(ctx context.Context, ref domain.ChatMessageRef) error
	// SendPhotoFile uploads raw bytes as a compressed photo
	SendPhotoFile(ctx context.Context, chatID int64, data []byte, filename, caption string) (*domain.SentMessage, error)
	// SendDocumentFile uploads raw bytes as an uncompressed document
	SendDocumentFile(ctx context.Context, chatID int64, data []byte, filename, caption string) (*domain.SentMessage, error)
	// DownloadFile fetches the content of a file sent to the bot
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
	// AnswerCallback acknowledges a button press, optionally with a toast
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// AnswerInlineQuery responds to an inline search query
	AnswerInlineQuery(ctx context.Context, answer *domain.InlineAnswer) error
}
