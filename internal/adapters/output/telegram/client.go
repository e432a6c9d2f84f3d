package telegram

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// Client struct - Telegram Bot API implementation of the chat port
type Client struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
}

var _ output.ChatClient = (*Client)(nil)

// NewClient wraps an authorized bot API connection
func NewClient(bot *tgbotapi.BotAPI) *Client {
	return &Client{
		bot:        bot,
		httpClient: &http.Client{},
	}
}

// inputMediaWithSpoiler mirrors InputMediaPhoto/Document with the spoiler
// field the bundled API types predate
type inputMediaWithSpoiler struct {
	Type       string `json:"type"`
	Media      string `json:"media"`
	Caption    string `json:"caption,omitempty"`
	ParseMode  string `json:"parse_mode,omitempty"`
	HasSpoiler bool   `json:"has_spoiler,omitempty"`
}

// keyboard converts button rows to an inline keyboard markup
func keyboard(buttons [][]domain.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, buttonRow := range buttons {
		var row []tgbotapi.InlineKeyboardButton
		for _, button := range buttonRow {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
		}
		rows = append(rows, row)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// ReplyText sends an HTML message, optionally as a reply, with a keyboard
func (c *Client) ReplyText(ctx context.Context, chatID int64, replyTo int, html string, buttons [][]domain.Button) (*domain.SentMessage, error) {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	if markup := keyboard(buttons); markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := c.bot.Send(msg)
	if err != nil {
		return nil, err
	}
	return &domain.SentMessage{
		Ref: domain.ChatMessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID},
	}, nil
}

// EditText edits a message's HTML text and keyboard in place
func (c *Client) EditText(ctx context.Context, ref domain.ChatMessageRef, html string, buttons [][]domain.Button) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, html)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = keyboard(buttons)

	_, err := c.bot.Send(edit)
	return err
}

// EditInlineMedia swaps an inline message's media and caption in place
func (c *Client) EditInlineMedia(ctx context.Context, inlineMessageID string, fileID string, asDocument bool, caption string, spoiler bool) error {
	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			InlineMessageID: inlineMessageID,
		},
		Media: spoilerMedia(fileID, asDocument, caption, spoiler),
	}
	_, err := c.bot.Request(edit)
	return err
}

// spoilerMedia builds the media payload for an edit, spoiler flag included
func spoilerMedia(fileID string, asDocument bool, caption string, spoiler bool) inputMediaWithSpoiler {
	mediaType := "photo"
	if asDocument {
		mediaType = "document"
	}
	return inputMediaWithSpoiler{
		Type:       mediaType,
		Media:      fileID,
		Caption:    caption,
		ParseMode:  tgbotapi.ModeHTML,
		HasSpoiler: spoiler && !asDocument,
	}
}

// DeleteMessage removes a message
func (c *Client) DeleteMessage(ctx context.Context, ref domain.ChatMessageRef) error {
	_, err := c.bot.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID))
	return err
}

// SendPhotoFile uploads raw bytes as a compressed photo
func (c *Client) SendPhotoFile(ctx context.Context, chatID int64, data []byte, filename, caption string) (*domain.SentMessage, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	photo.Caption = caption

	sent, err := c.bot.Send(photo)
	if err != nil {
		return nil, err
	}
	result := &domain.SentMessage{
		Ref: domain.ChatMessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID},
	}
	if len(sent.Photo) > 0 {
		// Sizes come smallest first; the last is the full rendition
		largest := sent.Photo[len(sent.Photo)-1]
		result.Media = &domain.MediaHandle{
			FileID:       largest.FileID,
			FileUniqueID: largest.FileUniqueID,
			MimeType:     "image/jpeg",
		}
	}
	return result, nil
}

// SendDocumentFile uploads raw bytes as an uncompressed document
func (c *Client) SendDocumentFile(ctx context.Context, chatID int64, data []byte, filename, caption string) (*domain.SentMessage, error) {
	document := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	document.Caption = caption

	sent, err := c.bot.Send(document)
	if err != nil {
		return nil, err
	}
	result := &domain.SentMessage{
		Ref: domain.ChatMessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID},
	}
	if sent.Document != nil {
		result.Media = &domain.MediaHandle{
			FileID:       sent.Document.FileID,
			FileUniqueID: sent.Document.FileUniqueID,
			MimeType:     sent.Document.MimeType,
		}
	}
	return result, nil
}

// DownloadFile fetches the content of a file sent to the bot
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.bot.Token), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, path.Base(file.FilePath), nil
}

// AnswerCallback acknowledges a button press, optionally with a toast
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := c.bot.Request(tgbotapi.CallbackConfig{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

// AnswerInlineQuery responds to an inline search query with cached media
func (c *Client) AnswerInlineQuery(ctx context.Context, answer *domain.InlineAnswer) error {
	results := make([]interface{}, 0, len(answer.Results))
	for _, result := range answer.Results {
		// Cached results have no spoiler flag, so spoilered results carry the
		// swap button instead. The markup also makes the platform hand back an
		// inline message ID once the result is sent.
		var markup *tgbotapi.InlineKeyboardMarkup
		if result.HasSpoiler && result.Button != nil {
			markup = keyboard([][]domain.Button{{*result.Button}})
		}
		if result.AsDocument || !strings.HasPrefix(result.MimeType, "image/") {
			document := tgbotapi.NewInlineQueryResultCachedDocument(result.ID, result.FileID, "Post")
			document.Caption = result.Caption
			document.ParseMode = tgbotapi.ModeHTML
			document.ReplyMarkup = markup
			results = append(results, document)
			continue
		}
		photo := tgbotapi.NewInlineQueryResultCachedPhoto(result.ID, result.FileID)
		photo.Caption = result.Caption
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = markup
		results = append(results, photo)
	}

	_, err := c.bot.Request(tgbotapi.InlineConfig{
		InlineQueryID: answer.QueryID,
		Results:       results,
		NextOffset:    answer.NextOffset,
		IsPersonal:    true,
		CacheTime:     30,
	})
	return err
}
