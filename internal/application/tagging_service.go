package application

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/input"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// Callback data prefixes of the tagging menu
const (
	CallbackTagToggle = "tag:"
	CallbackTagPhase  = "tag_phase:"
	CallbackTagOrder  = "tag_order:"
	CallbackTagPage   = "tag_page:"
)

// tagSearchLimit caps how many candidate tags one phase offers
const tagSearchLimit = 100

// TaggingServiceImpl struct - drives the guided tagging workflow over chat
// menus. All menu state besides the post's own progress tag rides in hidden
// message data, so the service itself stays stateless.
type TaggingServiceImpl struct {
	catalog    output.CatalogClient
	chat       output.ChatClient
	popularity *PopularityCache
}

var _ input.TaggingService = (*TaggingServiceImpl)(nil)

// NewTaggingService creates the tagging workflow service
func NewTaggingService(catalog output.CatalogClient, chat output.ChatClient, popularity *PopularityCache) *TaggingServiceImpl {
	return &TaggingServiceImpl{
		catalog:    catalog,
		chat:       chat,
		popularity: popularity,
	}
}

// StartTagging opens the tagging menu for a post, resuming at the phase its
// progress tag records
func (s *TaggingServiceImpl) StartTagging(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser, postID int) error {
	post, err := s.catalog.GetPost(ctx, postID)
	if err != nil {
		if _, replyErr := s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, fmt.Sprintf("Could not find post %d", postID), nil); replyErr != nil {
			return replyErr
		}
		return err
	}

	phase := CurrentPhase(post)
	if !post.HasTag(ProgressTag(phase)) && phase != PhaseDone {
		post, err = s.catalog.UpdatePostTags(ctx, post, TagsWithProgress(post, phase))
		if err != nil {
			return err
		}
	}

	text, buttons, err := s.renderMenu(ctx, user, post, phase, OrderPopularity, 0)
	if err != nil {
		return err
	}
	_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, text, buttons)
	return err
}

// HandleTagToggle flips one tag on the post under the menu
func (s *TaggingServiceImpl) HandleTagToggle(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	session, err := s.menuSession(event)
	if err != nil {
		// Menus from an older bot, or messages that never were menus.
		return s.chat.AnswerCallback(ctx, event.ID, "")
	}
	tagName := strings.TrimPrefix(event.Data, CallbackTagToggle)

	post, err := s.catalog.GetPost(ctx, session.postID)
	if err != nil {
		return err
	}

	names := post.PrimaryTagNames()
	if post.HasTag(tagName) {
		kept := names[:0]
		for _, name := range names {
			if name != tagName {
				kept = append(kept, name)
			}
		}
		names = kept
	} else {
		names = append(names, tagName)
		if tag, err := s.catalog.GetTag(ctx, tagName); err == nil {
			for _, implied := range tag.Implications {
				if !post.HasTag(implied) {
					names = append(names, implied)
				}
			}
		}
	}

	post, err = s.catalog.UpdatePostTags(ctx, post, names)
	if err != nil {
		logrus.Errorf("Failed to toggle tag %s on post %d: %v", tagName, session.postID, err)
		return s.chat.AnswerCallback(ctx, event.ID, "Failed to update tags")
	}

	if err := s.redrawMenu(ctx, event, user, post, CurrentPhase(post), session.order, session.page); err != nil {
		return err
	}
	return s.chat.AnswerCallback(ctx, event.ID, "")
}

// HandlePhaseChange validates the current phase and advances the workflow.
// The special new-commission button also lands here.
func (s *TaggingServiceImpl) HandlePhaseChange(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	session, err := s.menuSession(event)
	if err != nil {
		return s.chat.AnswerCallback(ctx, event.ID, "")
	}

	post, err := s.catalog.GetPost(ctx, session.postID)
	if err != nil {
		return err
	}

	if event.Data == SpecialNewCommission {
		return s.createCommissionTag(ctx, event, user, post, session)
	}

	phase := CurrentPhase(post)
	spec, ok := GetPhase(phase)
	if !ok {
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown workflow phase")
	}
	if spec.Check != nil {
		if err := spec.Check(post); err != nil {
			return s.chat.AnswerCallback(ctx, event.ID, err.Error())
		}
	}

	next := spec.Next(post)
	post, err = s.catalog.UpdatePostTags(ctx, post, TagsWithProgress(post, next))
	if err != nil {
		return err
	}

	if next == PhaseDone {
		if event.Message != nil {
			done := fmt.Sprintf(
				"Tagging complete for <a href=\"%s\">post %d</a> 🎉",
				s.catalog.PostURL(post.ID), post.ID,
			)
			if err := s.chat.EditText(ctx, *event.Message, done, nil); err != nil {
				return err
			}
		}
		return s.chat.AnswerCallback(ctx, event.ID, "Tagging complete")
	}

	if err := s.redrawMenu(ctx, event, user, post, next, OrderPopularity, 0); err != nil {
		return err
	}
	return s.chat.AnswerCallback(ctx, event.ID, "")
}

// HandleOrderChange switches the menu's tag ordering
func (s *TaggingServiceImpl) HandleOrderChange(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	session, err := s.menuSession(event)
	if err != nil {
		return s.chat.AnswerCallback(ctx, event.ID, "")
	}
	order := Order(strings.TrimPrefix(event.Data, CallbackTagOrder))

	post, err := s.catalog.GetPost(ctx, session.postID)
	if err != nil {
		return err
	}
	if err := s.redrawMenu(ctx, event, user, post, CurrentPhase(post), order, 0); err != nil {
		return err
	}
	return s.chat.AnswerCallback(ctx, event.ID, "")
}

// HandlePageChange moves the menu to another page of tags
func (s *TaggingServiceImpl) HandlePageChange(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	session, err := s.menuSession(event)
	if err != nil {
		return s.chat.AnswerCallback(ctx, event.ID, "")
	}
	page, err := strconv.Atoi(strings.TrimPrefix(event.Data, CallbackTagPage))
	if err != nil {
		page = 0
	}

	post, err := s.catalog.GetPost(ctx, session.postID)
	if err != nil {
		return err
	}
	if err := s.redrawMenu(ctx, event, user, post, CurrentPhase(post), session.order, page); err != nil {
		return err
	}
	return s.chat.AnswerCallback(ctx, event.ID, "")
}

// HandleFreeTextTag applies tags typed as a reply to the menu, creating any
// that the catalog does not know yet. Returns false when the message is not
// a reply to a tagging menu.
func (s *TaggingServiceImpl) HandleFreeTextTag(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) (bool, error) {
	if event.ReplyTo == nil {
		return false, nil
	}
	state := domain.ParseHiddenData(event.ReplyToEntities)
	if !domain.HasFields(state, []string{"post_id"}, false) {
		return false, nil
	}
	postID, err := strconv.Atoi(state["post_id"])
	if err != nil {
		return false, nil
	}

	post, err := s.catalog.GetPost(ctx, postID)
	if err != nil {
		return true, err
	}
	phase := CurrentPhase(post)
	spec, ok := GetPhase(phase)
	if !ok || spec.NewTagCategory == "" {
		_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "This phase does not accept typed tags", nil)
		return true, err
	}

	var applied []string
	names := post.PrimaryTagNames()
	for _, field := range strings.Fields(strings.ToLower(event.Text)) {
		tag, err := s.catalog.GetTag(ctx, field)
		if err != nil {
			tag, err = s.catalog.CreateTag(ctx, field, spec.NewTagCategory)
			if err != nil {
				logrus.Errorf("Failed to create tag %s: %v", field, err)
				continue
			}
		} else if tag.Category == "default" && spec.NewTagCategory != "default" {
			// Tags auto-created on upload land in the default category; typing
			// one during a phase adopts it into the phase's category.
			moved, err := s.catalog.SetTagCategory(ctx, tag, spec.NewTagCategory)
			if err != nil {
				logrus.Errorf("Failed to recategorise tag %s: %v", field, err)
			} else {
				tag = moved
			}
		}
		if !post.HasTag(tag.PrimaryName()) {
			names = append(names, tag.PrimaryName())
		}
		applied = append(applied, tag.PrimaryName())
	}
	if len(applied) == 0 {
		_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "No tags could be applied", nil)
		return true, err
	}

	post, err = s.catalog.UpdatePostTags(ctx, post, names)
	if err != nil {
		return true, err
	}

	order := Order(state["order"])
	if order == "" {
		order = OrderPopularity
	}
	page, _ := strconv.Atoi(state["page"])
	text, buttons, err := s.renderMenu(ctx, user, post, phase, order, page)
	if err == nil {
		_ = s.chat.EditText(ctx, *event.ReplyTo, text, buttons)
	}

	_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, fmt.Sprintf("Added: %s", html.EscapeString(strings.Join(applied, ", "))), nil)
	return true, err
}

// menuSession holds the hidden state of one tagging menu message
type menuSession struct {
	postID int
	order  Order
	page   int
}

// menuSession decodes a callback's hidden session state
func (s *TaggingServiceImpl) menuSession(event *domain.CallbackEvent) (menuSession, error) {
	state := domain.ParseHiddenData(event.MessageEntities)
	if !domain.HasFields(state, []string{"post_id", "tag_phase", "order", "page"}, false) {
		return menuSession{}, domain.ErrSessionInvalid
	}
	postID, err := strconv.Atoi(state["post_id"])
	if err != nil {
		return menuSession{}, domain.ErrSessionInvalid
	}
	session := menuSession{postID: postID, order: OrderPopularity}
	if order := Order(state["order"]); order == OrderAlphabetical {
		session.order = order
	}
	session.page, _ = strconv.Atoi(state["page"])
	return session, nil
}

// redrawMenu re-renders the menu into the message the callback came from
func (s *TaggingServiceImpl) redrawMenu(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser, post *domain.Post, phase PhaseID, order Order, page int) error {
	if event.Message == nil {
		return nil
	}
	text, buttons, err := s.renderMenu(ctx, user, post, phase, order, page)
	if err != nil {
		return err
	}
	return s.chat.EditText(ctx, *event.Message, text, buttons)
}

// renderMenu builds the menu text and keyboard for one phase of one post
func (s *TaggingServiceImpl) renderMenu(ctx context.Context, user domain.TrustedUser, post *domain.Post, phase PhaseID, order Order, page int) (string, [][]domain.Button, error) {
	spec, ok := GetPhase(phase)
	if !ok {
		return "", nil, fmt.Errorf("unknown phase %s", phase)
	}

	candidates, err := s.candidateTags(ctx, user, spec)
	if err != nil {
		return "", nil, err
	}
	if spec.AllowOrdering && order == OrderPopularity {
		var filter []string
		if spec.PopularityFilter != nil {
			filter = spec.PopularityFilter(post)
		}
		popularity, err := s.popularity.PopularityWithin(ctx, filter)
		if err != nil {
			logrus.Errorf("Popularity index unavailable, falling back to alphabetical: %v", err)
			order = OrderAlphabetical
		} else {
			candidates = OrderTags(candidates, OrderPopularity, popularity)
		}
	}
	if order == OrderAlphabetical || !spec.AllowOrdering {
		candidates = OrderTags(candidates, OrderAlphabetical, nil)
	}

	var tagRows [][]domain.Button
	var row []domain.Button
	for _, tag := range candidates {
		label := tag.PrimaryName()
		if post.HasTag(label) {
			label = "✅ " + label
		}
		row = append(row, domain.Button{Text: label, Data: CallbackTagToggle + tag.PrimaryName()})
		if len(row) == spec.ButtonsPerRow {
			tagRows = append(tagRows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		tagRows = append(tagRows, row)
	}

	pageRows, page, totalPages := PaginateRows(tagRows, page)

	buttons := make([][]domain.Button, 0, len(pageRows)+3)
	buttons = append(buttons, pageRows...)
	if totalPages > 1 {
		var nav []domain.Button
		if page > 0 {
			nav = append(nav, domain.Button{Text: "⬅️ Prev", Data: fmt.Sprintf("%s%d", CallbackTagPage, page-1)})
		}
		nav = append(nav, domain.Button{Text: fmt.Sprintf("Page %d/%d", page+1, totalPages), Data: fmt.Sprintf("%s%d", CallbackTagPage, page)})
		if page < totalPages-1 {
			nav = append(nav, domain.Button{Text: "Next ➡️", Data: fmt.Sprintf("%s%d", CallbackTagPage, page+1)})
		}
		buttons = append(buttons, nav)
	}
	if spec.AllowOrdering {
		if order == OrderPopularity {
			buttons = append(buttons, []domain.Button{{Text: "Sort: popularity 🔀", Data: CallbackTagOrder + string(OrderAlphabetical)}})
		} else {
			buttons = append(buttons, []domain.Button{{Text: "Sort: alphabetical 🔀", Data: CallbackTagOrder + string(OrderPopularity)}})
		}
	}
	for _, special := range spec.SpecialButtons {
		buttons = append(buttons, []domain.Button{{Text: special.Label, Data: special.Data}})
	}
	buttons = append(buttons, []domain.Button{{Text: "Done ☑️", Data: CallbackTagPhase + "next"}})

	hidden := domain.EncodeHiddenData(map[string]string{
		"post_id":   strconv.Itoa(post.ID),
		"tag_phase": string(phase),
		"order":     string(order),
		"page":      strconv.Itoa(page),
	})
	text := fmt.Sprintf(
		"%s%s\n<a href=\"%s\">Post %d</a>\nYou can also reply to this message to type tags directly.",
		hidden, html.EscapeString(spec.Question), s.catalog.PostURL(post.ID), post.ID,
	)
	return text, buttons, nil
}

// candidateTags lists the tags a phase offers, with the operator's blocked
// tags removed
func (s *TaggingServiceImpl) candidateTags(ctx context.Context, user domain.TrustedUser, spec PhaseSpec) ([]*domain.Tag, error) {
	blocked := make(map[string]bool, len(user.BlockedTags))
	for _, name := range user.BlockedTags {
		blocked[name] = true
	}

	if len(spec.FixedTags) > 0 {
		tags := make([]*domain.Tag, 0, len(spec.FixedTags))
		for _, name := range spec.FixedTags {
			if !blocked[name] {
				tags = append(tags, &domain.Tag{Names: []string{name}})
			}
		}
		return tags, nil
	}

	found, err := s.catalog.SearchTags(ctx, fmt.Sprintf(`category:%s`, spec.TagCategory), tagSearchLimit)
	if err != nil {
		return nil, err
	}
	tags := make([]*domain.Tag, 0, len(found))
	for _, tag := range found {
		if !blocked[tag.PrimaryName()] {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// createCommissionTag mints the next sequential commission tag and applies it
func (s *TaggingServiceImpl) createCommissionTag(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser, post *domain.Post, session menuSession) error {
	existing, err := s.catalog.SearchTags(ctx, `category:meta-commissions`, 1000)
	if err != nil {
		return err
	}
	name := NextCommissionTag(existing)
	tag, err := s.catalog.CreateTag(ctx, name, "meta-commissions")
	if err != nil {
		logrus.Errorf("Failed to create commission tag %s: %v", name, err)
		return s.chat.AnswerCallback(ctx, event.ID, "Failed to create commission tag")
	}

	post, err = s.catalog.UpdatePostTags(ctx, post, append(post.PrimaryTagNames(), tag.PrimaryName()))
	if err != nil {
		return err
	}
	if err := s.redrawMenu(ctx, event, user, post, CurrentPhase(post), session.order, session.page); err != nil {
		return err
	}
	return s.chat.AnswerCallback(ctx, event.ID, fmt.Sprintf("Created %s", tag.PrimaryName()))
}
