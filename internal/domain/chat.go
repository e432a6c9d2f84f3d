package domain

// EntityTypeTextLink is the chat platform's entity type for inline hyperlinks
const EntityTypeTextLink = "text_link"

// MessageEntity struct - one formatting entity attached to a chat message
type MessageEntity struct {
	Type   string
	URL    string
	Offset int
	Length int
}

// ChatMessageRef struct - address of an existing chat message
type ChatMessageRef struct {
	ChatID    int64
	MessageID int
}

// IncomingFile struct - a document or photo attached to an incoming message
type IncomingFile struct {
	FileID   string
	FileName string
	MimeType string
	FileSize int64
}

// ChatMessageEvent struct - one incoming chat message, normalized from the platform
type ChatMessageEvent struct {
	Ref      ChatMessageRef
	SenderID int64
	Text     string
	Entities []MessageEntity
	File     *IncomingFile
	// ReplyTo fields carry the replied-to message, when there is one. Replies
	// to bot menus are how free text lands in a workflow.
	ReplyTo         *ChatMessageRef
	ReplyToText     string
	ReplyToEntities []MessageEntity
}

// CallbackEvent struct - one button press on an inline keyboard
type CallbackEvent struct {
	ID              string
	SenderID        int64
	Data            string
	Message         *ChatMessageRef
	MessageText     string
	MessageEntities []MessageEntity
	InlineMessageID string
}

// InlineQueryEvent struct - one inline search query typed in any chat
type InlineQueryEvent struct {
	ID       string
	SenderID int64
	Query    string
	Offset   string
}

// ChosenInlineEvent struct - a notification that an inline result was sent
type ChosenInlineEvent struct {
	ResultID        string
	SenderID        int64
	Query           string
	InlineMessageID string
}

// Button struct - one inline keyboard button
type Button struct {
	Text string
	Data string
}

// MediaRef struct - request to send a cached or fresh piece of catalog media.
// AsDocument selects the uncompressed original over the inline photo rendition.
type MediaRef struct {
	PostID     int
	AsDocument bool
}

// MediaHandle struct - platform identifiers of a delivered piece of media
type MediaHandle struct {
	FileID       string
	FileUniqueID string
	MimeType     string
}

// SentMessage struct - result of delivering a message to the chat platform
type SentMessage struct {
	Ref   ChatMessageRef
	Media *MediaHandle
}

// InlineResult struct - one answer to an inline query, backed by cached media.
// Cached results cannot carry the platform's spoiler flag, so spoilered
// results ship with a button that swaps the media for a spoilered copy after
// sending.
type InlineResult struct {
	ID         string
	PostID     int
	FileID     string
	AsDocument bool
	MimeType   string
	Caption    string
	HasSpoiler bool
	Button     *Button
}

// InlineAnswer struct - the full response to one inline query
type InlineAnswer struct {
	QueryID    string
	Results    []InlineResult
	NextOffset string
}
