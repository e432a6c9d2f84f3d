package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// convertEntities maps message entities to the domain model
func convertEntities(entities []tgbotapi.MessageEntity) []domain.MessageEntity {
	var converted []domain.MessageEntity
	for _, entity := range entities {
		converted = append(converted, domain.MessageEntity{
			Type:   entity.Type,
			URL:    entity.URL,
			Offset: entity.Offset,
			Length: entity.Length,
		})
	}
	return converted
}

// convertFile extracts the attached file of a message, if any. Photos come
// through as their largest rendition.
func convertFile(msg *tgbotapi.Message) *domain.IncomingFile {
	if msg.Document != nil {
		return &domain.IncomingFile{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			FileSize: int64(msg.Document.FileSize),
		}
	}
	if len(msg.Photo) > 0 {
		largest := msg.Photo[len(msg.Photo)-1]
		return &domain.IncomingFile{
			FileID:   largest.FileID,
			MimeType: "image/jpeg",
			FileSize: int64(largest.FileSize),
		}
	}
	return nil
}

// messageText returns the text of a message, falling back to its caption
func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// messageEntities returns the entities of a message, falling back to its
// caption entities
func messageEntities(msg *tgbotapi.Message) []domain.MessageEntity {
	if len(msg.Entities) > 0 {
		return convertEntities(msg.Entities)
	}
	return convertEntities(msg.CaptionEntities)
}

// convertMessage maps an incoming message to the domain event
func convertMessage(msg *tgbotapi.Message) *domain.ChatMessageEvent {
	event := &domain.ChatMessageEvent{
		Ref: domain.ChatMessageRef{
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
		},
		Text:     messageText(msg),
		Entities: messageEntities(msg),
		File:     convertFile(msg),
	}
	if msg.From != nil {
		event.SenderID = msg.From.ID
	}
	if msg.ReplyToMessage != nil {
		event.ReplyTo = &domain.ChatMessageRef{
			ChatID:    msg.ReplyToMessage.Chat.ID,
			MessageID: msg.ReplyToMessage.MessageID,
		}
		event.ReplyToText = messageText(msg.ReplyToMessage)
		event.ReplyToEntities = messageEntities(msg.ReplyToMessage)
	}
	return event
}

// convertCallback maps a button press to the domain event
func convertCallback(cb *tgbotapi.CallbackQuery) *domain.CallbackEvent {
	event := &domain.CallbackEvent{
		ID:              cb.ID,
		Data:            cb.Data,
		InlineMessageID: cb.InlineMessageID,
	}
	if cb.From != nil {
		event.SenderID = cb.From.ID
	}
	if cb.Message != nil {
		event.Message = &domain.ChatMessageRef{
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.MessageID,
		}
		event.MessageText = messageText(cb.Message)
		event.MessageEntities = messageEntities(cb.Message)
	}
	return event
}

// convertInlineQuery maps an inline search to the domain event
func convertInlineQuery(query *tgbotapi.InlineQuery) *domain.InlineQueryEvent {
	event := &domain.InlineQueryEvent{
		ID:     query.ID,
		Query:  query.Query,
		Offset: query.Offset,
	}
	if query.From != nil {
		event.SenderID = query.From.ID
	}
	return event
}

// convertChosenInline maps a chosen inline result to the domain event
func convertChosenInline(chosen *tgbotapi.ChosenInlineResult) *domain.ChosenInlineEvent {
	event := &domain.ChosenInlineEvent{
		ResultID:        chosen.ResultID,
		Query:           chosen.Query,
		InlineMessageID: chosen.InlineMessageID,
	}
	if chosen.From != nil {
		event.SenderID = chosen.From.ID
	}
	return event
}
