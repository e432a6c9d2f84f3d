package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/application"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/input"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// handlerTimeout bounds how long one update may take to handle
const handlerTimeout = 5 * time.Minute

// Dispatcher struct - long-polls the Bot API and routes updates to the
// workflow services. Updates from anyone outside the trusted user set are
// dropped without a response.
type Dispatcher struct {
	bot         *tgbotapi.BotAPI
	chat        output.ChatClient
	users       *domain.TrustedUserSet
	tagging     input.TaggingService
	upload      input.UploadService
	inline      input.InlineService
	unuploaded  input.UnuploadedService
	maintenance input.MaintenanceService
}

// NewDispatcher creates the update dispatcher
func NewDispatcher(
	bot *tgbotapi.BotAPI,
	chat output.ChatClient,
	users *domain.TrustedUserSet,
	tagging input.TaggingService,
	upload input.UploadService,
	inline input.InlineService,
	unuploaded input.UnuploadedService,
	maintenance input.MaintenanceService,
) *Dispatcher {
	return &Dispatcher{
		bot:         bot,
		chat:        chat,
		users:       users,
		tagging:     tagging,
		upload:      upload,
		inline:      inline,
		unuploaded:  unuploaded,
		maintenance: maintenance,
	}
}

// Run long-polls for updates until the context is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := d.bot.GetUpdatesChan(cfg)
	logrus.Infof("Dispatcher started as @%s", d.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			d.bot.StopReceivingUpdates()
			logrus.Infof("Dispatcher stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go d.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate routes one update, bounded by the handler timeout. Each update
// gets a request ID so concurrent handler logs can be told apart.
func (d *Dispatcher) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()
	requestID := uuid.NewString()

	var err error
	switch {
	case update.Message != nil:
		err = d.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = d.handleCallback(ctx, update.CallbackQuery)
	case update.InlineQuery != nil:
		err = d.handleInlineQuery(ctx, update.InlineQuery)
	case update.ChosenInlineResult != nil:
		err = d.handleChosenInline(ctx, update.ChosenInlineResult)
	}
	if err != nil {
		logrus.Errorf("Update %d (request %s) failed: %v", update.UpdateID, requestID, err)
	}
}

// handleMessage routes commands, files, and workflow replies
func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	event := convertMessage(msg)
	user, trusted := d.users.Lookup(event.SenderID)
	if !trusted {
		// Liveness check stays open to everyone; everything else is dropped.
		if msg.IsCommand() && msg.Command() == "beep" {
			_, err := d.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "Boop!", nil)
			return err
		}
		logrus.Infof("Ignoring message from untrusted user %d", event.SenderID)
		return nil
	}

	if msg.IsCommand() {
		return d.handleCommand(ctx, msg, event, user)
	}

	if event.File != nil {
		return d.upload.HandleIncomingFile(ctx, event, user)
	}

	if event.ReplyTo != nil {
		if handled, err := d.tagging.HandleFreeTextTag(ctx, event, user); handled {
			return err
		}
		if handled, err := d.unuploaded.HandleProposalReply(ctx, event, user); handled {
			return err
		}
	}
	return nil
}

// handleCommand routes one slash command
func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message, event *domain.ChatMessageEvent, user domain.TrustedUser) error {
	switch msg.Command() {
	case "start", "help":
		help := strings.Join([]string{
			"Hoardbooru curation bot.",
			"/tag &lt;post&gt; - run the tagging workflow for a post",
			"/unuploaded [uploaded] [search...] - browse the upload backlog",
			"/unfinished - list commissions without a finished piece",
			"/populate [count] [file] [search...] - fill the media cache",
			"Send a file to add it to the catalog.",
		}, "\n")
		_, err := d.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, help, nil)
		return err
	case "beep":
		_, err := d.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "Boop!", nil)
		return err
	case "tag":
		postID, err := parsePostRef(msg.CommandArguments())
		if err != nil {
			_, replyErr := d.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "Usage: /tag &lt;post id or link&gt;", nil)
			return replyErr
		}
		return d.tagging.StartTagging(ctx, event, user, postID)
	case "unuploaded":
		return d.unuploaded.StartMenu(ctx, event, user)
	case "unfinished":
		return d.maintenance.ListUnfinished(ctx, event, user)
	case "populate":
		return d.maintenance.PopulateCache(ctx, event, user)
	}
	_, err := d.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "Unknown command", nil)
	return err
}

// handleCallback routes a button press by its data prefix
func (d *Dispatcher) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	event := convertCallback(cb)
	user, trusted := d.users.Lookup(event.SenderID)
	if !trusted {
		logrus.Infof("Ignoring callback from untrusted user %d", event.SenderID)
		return nil
	}

	switch {
	case strings.HasPrefix(event.Data, application.CallbackTagToggle):
		return d.tagging.HandleTagToggle(ctx, event, user)
	case strings.HasPrefix(event.Data, application.CallbackTagPhase), event.Data == application.SpecialNewCommission:
		return d.tagging.HandlePhaseChange(ctx, event, user)
	case strings.HasPrefix(event.Data, application.CallbackTagOrder):
		return d.tagging.HandleOrderChange(ctx, event, user)
	case strings.HasPrefix(event.Data, application.CallbackTagPage):
		return d.tagging.HandlePageChange(ctx, event, user)
	case strings.HasPrefix(event.Data, application.CallbackUpload):
		return d.upload.HandleUploadDecision(ctx, event, user)
	case strings.HasPrefix(event.Data, application.CallbackSpoiler):
		return d.inline.HandleSpoilerCallback(ctx, event, user)
	case strings.HasPrefix(event.Data, application.CallbackUnuploaded),
		strings.HasPrefix(event.Data, application.CallbackUploadTag),
		strings.HasPrefix(event.Data, application.CallbackUploadPropose):
		return d.unuploaded.HandleMenuCallback(ctx, event, user)
	}
	return d.chat.AnswerCallback(ctx, event.ID, "Unknown action")
}

// handleInlineQuery routes an inline search
func (d *Dispatcher) handleInlineQuery(ctx context.Context, query *tgbotapi.InlineQuery) error {
	event := convertInlineQuery(query)
	user, trusted := d.users.Lookup(event.SenderID)
	if !trusted {
		return nil
	}
	return d.inline.HandleInlineQuery(ctx, event, user)
}

// handleChosenInline routes a chosen inline result
func (d *Dispatcher) handleChosenInline(ctx context.Context, chosen *tgbotapi.ChosenInlineResult) error {
	event := convertChosenInline(chosen)
	user, trusted := d.users.Lookup(event.SenderID)
	if !trusted {
		return nil
	}
	return d.inline.HandleChosenInline(ctx, event, user)
}

// parsePostRef accepts a bare post ID or a catalog post link
func parsePostRef(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if idx := strings.LastIndex(arg, "/post/"); idx >= 0 {
		arg = arg[idx+len("/post/"):]
		arg = strings.TrimRight(arg, "/")
	}
	return strconv.Atoi(arg)
}
