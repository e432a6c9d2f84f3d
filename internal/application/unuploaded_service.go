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

// Callback data prefixes of the upload backlog menus
const (
	CallbackUnuploaded    = "unuploaded:"
	CallbackUploadTag     = "upload_tag:"
	CallbackUploadPropose = "upload_propose:"
)

// backlogListLimit caps how many pending posts one listing shows
const backlogListLimit = 10

// Proposal field names accepted by the propose prompts
const (
	ProposeTitle          = "title"
	ProposeDescription    = "description"
	ProposeTags           = "tags"
	ProposeAltDescription = "alt_description"
)

// UnuploadedServiceImpl struct - walks the operator through the backlog of
// finished pieces not yet posted to the destination channels. Decisions land
// as catalog tags; proposed titles and links land in the post's description
// upload data document.
type UnuploadedServiceImpl struct {
	catalog   output.CatalogClient
	chat      output.ChatClient
	snapshots *UploadStateCache
}

var _ input.UnuploadedService = (*UnuploadedServiceImpl)(nil)

// NewUnuploadedService creates the backlog browsing service
func NewUnuploadedService(catalog output.CatalogClient, chat output.ChatClient, snapshots *UploadStateCache) *UnuploadedServiceImpl {
	return &UnuploadedServiceImpl{
		catalog:   catalog,
		chat:      chat,
		snapshots: snapshots,
	}
}

// backlogView struct - the operator's chosen slice of the backlog: extra
// search terms narrowing the query, and whether already uploaded posts are
// listed instead of pending ones
type backlogView struct {
	extraQuery   string
	uploadedOnly bool
}

// parseBacklogArgs reads the view from a command's arguments. The token
// "uploaded" flips the listings to already uploaded posts; everything else
// narrows the catalog query.
func parseBacklogArgs(text string) backlogView {
	var view backlogView
	var terms []string
	fields := strings.Fields(text)
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		fields = fields[1:]
	}
	for _, field := range fields {
		if field == "uploaded" {
			view.uploadedOnly = true
			continue
		}
		terms = append(terms, field)
	}
	view.extraQuery = strings.Join(terms, " ")
	return view
}

// viewFromState restores the view a backlog menu message was rendered with
func viewFromState(entities []domain.MessageEntity) backlogView {
	state := domain.ParseHiddenData(entities)
	return backlogView{
		extraQuery:   state["search"],
		uploadedOnly: state["uploaded"] == "1",
	}
}

// hiddenState encodes the view into a menu message's hidden data
func (v backlogView) hiddenState() string {
	uploaded := "0"
	if v.uploadedOnly {
		uploaded = "1"
	}
	return domain.EncodeHiddenData(map[string]string{
		"search":   v.extraQuery,
		"uploaded": uploaded,
	})
}

// backlogQuery is the catalog query whose posts form the operator's backlog
func backlogQuery(user domain.TrustedUser, extra string) string {
	query := `status\:final`
	if user.OwnerTag != "" {
		query += " " + user.OwnerTag
	}
	if extra != "" {
		query += " " + extra
	}
	return query
}

// StartMenu opens the backlog overview
func (s *UnuploadedServiceImpl) StartMenu(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) error {
	view := parseBacklogArgs(event.Text)
	snapshot, err := s.snapshots.Snapshot(ctx, backlogQuery(user, view.extraQuery), user, true)
	if err != nil {
		return err
	}
	text, buttons := s.renderOverview(snapshot, view)
	_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, text, buttons)
	return err
}

// HandleMenuCallback routes backlog menu navigation and decisions
func (s *UnuploadedServiceImpl) HandleMenuCallback(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	switch {
	case strings.HasPrefix(event.Data, CallbackUnuploaded):
		return s.handleNavigation(ctx, event, user)
	case strings.HasPrefix(event.Data, CallbackUploadTag):
		return s.handleDecision(ctx, event, user)
	case strings.HasPrefix(event.Data, CallbackUploadPropose):
		return s.handleProposePrompt(ctx, event, user)
	}
	return s.chat.AnswerCallback(ctx, event.ID, "Unknown backlog action")
}

// handleNavigation redraws the overview, a channel listing, or a post menu
func (s *UnuploadedServiceImpl) handleNavigation(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	parts := strings.Split(strings.TrimPrefix(event.Data, CallbackUnuploaded), ":")
	view := viewFromState(event.MessageEntities)

	snapshot, err := s.snapshots.Snapshot(ctx, backlogQuery(user, view.extraQuery), user, false)
	if err != nil {
		return err
	}

	var text string
	var buttons [][]domain.Button
	switch parts[0] {
	case "menu":
		text, buttons = s.renderOverview(snapshot, view)
	case "channel":
		if len(parts) < 2 {
			return s.chat.AnswerCallback(ctx, event.ID, "Unknown channel")
		}
		text, buttons = s.renderChannelListing(snapshot, view, parts[1])
	case "post":
		if len(parts) < 2 {
			return s.chat.AnswerCallback(ctx, event.ID, "Unknown post")
		}
		postID, err := strconv.Atoi(parts[1])
		if err != nil {
			return s.chat.AnswerCallback(ctx, event.ID, "Unknown post")
		}
		text, buttons, err = s.renderPostMenu(ctx, snapshot, view, postID)
		if err != nil {
			return err
		}
	case "links":
		if len(parts) < 2 {
			return s.chat.AnswerCallback(ctx, event.ID, "Unknown post")
		}
		postID, err := strconv.Atoi(parts[1])
		if err != nil {
			return s.chat.AnswerCallback(ctx, event.ID, "Unknown post")
		}
		text, buttons, err = s.renderLinks(ctx, view, postID)
		if err != nil {
			return err
		}
	default:
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown backlog action")
	}

	if event.Message != nil {
		if err := s.chat.EditText(ctx, *event.Message, text, buttons); err != nil {
			return err
		}
	}
	return s.chat.AnswerCallback(ctx, event.ID, "")
}

// handleDecision marks a post uploaded or skipped for one channel
func (s *UnuploadedServiceImpl) handleDecision(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	parts := strings.Split(strings.TrimPrefix(event.Data, CallbackUploadTag), ":")
	if len(parts) != 3 {
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown backlog action")
	}
	postID, err := strconv.Atoi(parts[0])
	if err != nil {
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown post")
	}
	channel, decision := parts[1], parts[2]

	var tagName string
	switch {
	case channel == domain.ChannelE621 && decision == "done":
		tagName = "uploaded_to:e621"
	case channel == domain.ChannelE621 && decision == "skip":
		tagName = "uploaded_to:e621_not_posting"
	case channel == domain.ChannelFA && decision == "done":
		tagName = fmt.Sprintf("uploaded_to:%s_fa", user.UploadTagInfix)
	case channel == domain.ChannelFA && decision == "skip":
		tagName = fmt.Sprintf("uploaded_to:%s_not_posting", user.UploadTagInfix)
	default:
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown decision")
	}

	view := viewFromState(event.MessageEntities)
	post, err := s.catalog.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if !post.HasTag(tagName) {
		post, err = s.catalog.UpdatePostTags(ctx, post, append(post.PrimaryTagNames(), tagName))
		if err != nil {
			logrus.Errorf("Failed to mark post %d as %s: %v", postID, tagName, err)
			return s.chat.AnswerCallback(ctx, event.ID, "Failed to update the post")
		}
	}
	s.snapshots.UpdatePost(backlogQuery(user, view.extraQuery), user, post)

	if decision == "done" && event.Message != nil {
		// Prompt for the destination link, stored in the description document
		hidden := domain.EncodeHiddenData(map[string]string{
			"post_id":       strconv.Itoa(postID),
			"propose_field": "link_" + channel,
		})
		prompt := fmt.Sprintf("%sReply with the %s link for post %d", hidden, channel, postID)
		if _, err := s.chat.ReplyText(ctx, event.Message.ChatID, 0, prompt, nil); err != nil {
			return err
		}
	}

	snapshot, err := s.snapshots.Snapshot(ctx, backlogQuery(user, view.extraQuery), user, false)
	if err != nil {
		return err
	}
	text, buttons, err := s.renderPostMenu(ctx, snapshot, view, postID)
	if err != nil {
		return err
	}
	if event.Message != nil {
		if err := s.chat.EditText(ctx, *event.Message, text, buttons); err != nil {
			return err
		}
	}
	return s.chat.AnswerCallback(ctx, event.ID, "Marked "+decision)
}

// handleProposePrompt asks the operator to reply with a proposal field value
func (s *UnuploadedServiceImpl) handleProposePrompt(ctx context.Context, event *domain.CallbackEvent, user domain.TrustedUser) error {
	parts := strings.Split(strings.TrimPrefix(event.Data, CallbackUploadPropose), ":")
	if len(parts) != 2 {
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown proposal field")
	}
	postID, err := strconv.Atoi(parts[0])
	if err != nil {
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown post")
	}
	field := parts[1]
	switch field {
	case ProposeTitle, ProposeDescription, ProposeTags, ProposeAltDescription:
	default:
		return s.chat.AnswerCallback(ctx, event.ID, "Unknown proposal field")
	}

	hidden := domain.EncodeHiddenData(map[string]string{
		"post_id":       strconv.Itoa(postID),
		"propose_field": field,
	})
	prompt := fmt.Sprintf("%sReply with the proposed %s for post %d", hidden, strings.ReplaceAll(field, "_", " "), postID)
	if event.Message != nil {
		if _, err := s.chat.ReplyText(ctx, event.Message.ChatID, 0, prompt, nil); err != nil {
			return err
		}
	}
	return s.chat.AnswerCallback(ctx, event.ID, "")
}

// HandleProposalReply stores a replied field value into the post's upload
// data document. Returns false when the message is not a reply to a prompt.
func (s *UnuploadedServiceImpl) HandleProposalReply(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) (bool, error) {
	if event.ReplyTo == nil {
		return false, nil
	}
	state := domain.ParseHiddenData(event.ReplyToEntities)
	if !domain.HasFields(state, []string{"post_id", "propose_field"}, false) {
		return false, nil
	}
	postID, err := strconv.Atoi(state["post_id"])
	if err != nil {
		return false, nil
	}
	field := state["propose_field"]

	post, err := s.catalog.GetPost(ctx, postID)
	if err != nil {
		return true, err
	}
	description := domain.ParseDescription(post.Description)
	data := description.UploadData()
	if data == nil {
		data = &domain.UploadData{}
	}
	if data.ProposedData == nil {
		data.ProposedData = &domain.ProposedData{}
	}

	value := strings.TrimSpace(event.Text)
	switch {
	case field == ProposeTitle:
		data.ProposedData.Title = value
	case field == ProposeDescription:
		data.ProposedData.Description = value
	case field == ProposeTags:
		data.ProposedData.Tags = strings.Fields(value)
	case field == ProposeAltDescription:
		data.AltDescription = value
	case strings.HasPrefix(field, "link_"):
		record := domain.UploadRecord{
			UploaderType: strings.TrimPrefix(field, "link_"),
			Link:         value,
		}
		if record.UploaderType == domain.ChannelFA {
			record.UploaderTypeInfo = user.UploadTagInfix
		}
		data.Uploads = append(data.Uploads, record)
	default:
		return true, nil
	}

	description.SetUploadData(data)
	if _, err := s.catalog.SetPostDescription(ctx, post, description.Render()); err != nil {
		logrus.Errorf("Failed to store proposal for post %d: %v", postID, err)
		return true, err
	}

	_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, fmt.Sprintf("Stored %s for post %d", strings.ReplaceAll(field, "_", " "), postID), nil)
	return true, err
}

// renderOverview builds the backlog overview with per channel tallies
func (s *UnuploadedServiceImpl) renderOverview(snapshot *domain.UploadStateSnapshot, view backlogView) (string, [][]domain.Button) {
	var lines []string
	lines = append(lines, view.hiddenState()+"<b>Upload backlog</b>")
	if view.extraQuery != "" {
		lines = append(lines, fmt.Sprintf("Search: %s", html.EscapeString(view.extraQuery)))
	}
	for _, channel := range []string{domain.ChannelE621, domain.ChannelFA} {
		counts := snapshot.CountByState(channel)
		lines = append(lines, fmt.Sprintf(
			"%s: %d uploaded, %d not posting, %d pending",
			channel, counts[domain.StateUploaded], counts[domain.StateNotPosting], counts[domain.StatePending],
		))
	}
	mode := "Pending"
	if view.uploadedOnly {
		mode = "Uploaded"
	}
	buttons := [][]domain.Button{
		{{Text: mode + " for e621", Data: CallbackUnuploaded + "channel:" + domain.ChannelE621}},
		{{Text: mode + " for FA", Data: CallbackUnuploaded + "channel:" + domain.ChannelFA}},
	}
	return strings.Join(lines, "\n"), buttons
}

// renderChannelListing lists the first posts of one channel in the viewed state
func (s *UnuploadedServiceImpl) renderChannelListing(snapshot *domain.UploadStateSnapshot, view backlogView, channel string) (string, [][]domain.Button) {
	var posts []*domain.Post
	var text string
	if view.uploadedOnly {
		posts = snapshot.InState(channel, domain.StateUploaded)
		text = fmt.Sprintf("%s<b>%d uploaded to %s</b>", view.hiddenState(), len(posts), channel)
	} else {
		posts = snapshot.PendingForChannel(channel)
		text = fmt.Sprintf("%s<b>%d pending for %s</b>", view.hiddenState(), len(posts), channel)
	}

	var buttons [][]domain.Button
	for i, post := range posts {
		if i >= backlogListLimit {
			break
		}
		buttons = append(buttons, []domain.Button{{
			Text: fmt.Sprintf("Post %d", post.ID),
			Data: fmt.Sprintf("%spost:%d", CallbackUnuploaded, post.ID),
		}})
	}
	buttons = append(buttons, []domain.Button{{Text: "⬅️ Back", Data: CallbackUnuploaded + "menu"}})
	return text, buttons
}

// renderPostMenu builds the decision menu for one backlog post
func (s *UnuploadedServiceImpl) renderPostMenu(ctx context.Context, snapshot *domain.UploadStateSnapshot, view backlogView, postID int) (string, [][]domain.Button, error) {
	post, state, ok := snapshot.Lookup(postID)
	if !ok {
		fetched, err := s.catalog.GetPost(ctx, postID)
		if err != nil {
			return "", nil, err
		}
		post = fetched
		state = domain.ClassifyPost(post, snapshot.UploadTagInfix)
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%s<a href=\"%s\">Post %d</a>", view.hiddenState(), s.catalog.PostURL(postID), postID))
	for _, channel := range []string{domain.ChannelE621, domain.ChannelFA} {
		lines = append(lines, fmt.Sprintf("%s: %s", channel, state.States[channel]))
	}
	for _, tag := range post.TagsInCategory("meta-commissions") {
		alts := snapshot.ListAlts(tag.PrimaryName(), false)
		if len(alts) < 2 {
			continue
		}
		uploaded := snapshot.ListAlts(tag.PrimaryName(), true)
		lines = append(lines, fmt.Sprintf(
			"%s: %d alts, %d fully uploaded",
			html.EscapeString(tag.PrimaryName()), len(alts), len(uploaded),
		))
	}
	if data := domain.ParseDescription(post.Description).UploadData(); data != nil && data.ProposedData != nil && data.ProposedData.Title != "" {
		lines = append(lines, fmt.Sprintf("Proposed title: %s", html.EscapeString(data.ProposedData.Title)))
	}

	id := strconv.Itoa(postID)
	buttons := [][]domain.Button{
		{
			{Text: "e621 ✔️", Data: CallbackUploadTag + id + ":" + domain.ChannelE621 + ":done"},
			{Text: "e621 🚫", Data: CallbackUploadTag + id + ":" + domain.ChannelE621 + ":skip"},
		},
		{
			{Text: "FA ✔️", Data: CallbackUploadTag + id + ":" + domain.ChannelFA + ":done"},
			{Text: "FA 🚫", Data: CallbackUploadTag + id + ":" + domain.ChannelFA + ":skip"},
		},
		{
			{Text: "Propose title", Data: CallbackUploadPropose + id + ":" + ProposeTitle},
			{Text: "Propose description", Data: CallbackUploadPropose + id + ":" + ProposeDescription},
		},
		{
			{Text: "Propose tags", Data: CallbackUploadPropose + id + ":" + ProposeTags},
			{Text: "Alt description", Data: CallbackUploadPropose + id + ":" + ProposeAltDescription},
		},
		{{Text: "Links 🔗", Data: fmt.Sprintf("%slinks:%d", CallbackUnuploaded, postID)}},
	}
	if nav := s.postNavRow(snapshot, postID); nav != nil {
		buttons = append(buttons, nav)
	}
	buttons = append(buttons, []domain.Button{{Text: "⬅️ Back", Data: CallbackUnuploaded + "menu"}})
	return strings.Join(lines, "\n"), buttons, nil
}

// postNavRow builds previous and next buttons walking the pending backlog
func (s *UnuploadedServiceImpl) postNavRow(snapshot *domain.UploadStateSnapshot, postID int) []domain.Button {
	var row []domain.Button
	var prev, next *domain.Post
	for _, post := range snapshot.Pending() {
		if post.ID < postID && (prev == nil || post.ID > prev.ID) {
			prev = post
		}
		if post.ID > postID && (next == nil || post.ID < next.ID) {
			next = post
		}
	}
	if prev != nil {
		row = append(row, domain.Button{Text: fmt.Sprintf("⬅️ Post %d", prev.ID), Data: fmt.Sprintf("%spost:%d", CallbackUnuploaded, prev.ID)})
	}
	if next != nil {
		row = append(row, domain.Button{Text: fmt.Sprintf("Post %d ➡️", next.ID), Data: fmt.Sprintf("%spost:%d", CallbackUnuploaded, next.ID)})
	}
	return row
}

// renderLinks lists the stored upload records of one post
func (s *UnuploadedServiceImpl) renderLinks(ctx context.Context, view backlogView, postID int) (string, [][]domain.Button, error) {
	post, err := s.catalog.GetPost(ctx, postID)
	if err != nil {
		return "", nil, err
	}

	lines := []string{fmt.Sprintf("%s<b>Uploads of post %d</b>", view.hiddenState(), postID)}
	if data := domain.ParseDescription(post.Description).UploadData(); data != nil {
		for _, record := range data.Uploads {
			line := fmt.Sprintf("%s: %s", record.UploaderType, html.EscapeString(record.Link))
			if record.UploaderTypeInfo != "" {
				line += fmt.Sprintf(" (%s)", html.EscapeString(record.UploaderTypeInfo))
			}
			lines = append(lines, line)
		}
	}
	if len(lines) == 1 {
		lines = append(lines, "No uploads recorded")
	}

	buttons := [][]domain.Button{
		{{Text: "⬅️ Back", Data: fmt.Sprintf("%spost:%d", CallbackUnuploaded, postID)}},
	}
	return strings.Join(lines, "\n"), buttons, nil
}
