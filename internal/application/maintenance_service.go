package application

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/input"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/ports/output"
)

// populatePageSize is how many posts one populate batch fetches
const populatePageSize = 100

// populateDefaultLimit bounds how many fresh entries one populate run produces
// unless the command says otherwise
const populateDefaultLimit = 10

// populateArgs struct - parsed arguments of the populate command
type populateArgs struct {
	limit      int
	asDocument bool
	query      string
}

// parsePopulateArgs reads a count, a file/-file representation flag, and
// search terms from the command's arguments
func parsePopulateArgs(text string) populateArgs {
	args := populateArgs{limit: populateDefaultLimit}
	var terms []string
	fields := strings.Fields(text)
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		fields = fields[1:]
	}
	for _, field := range fields {
		if count, err := strconv.Atoi(field); err == nil && count > 0 {
			args.limit = count
			continue
		}
		switch field {
		case "file":
			args.asDocument = true
		case "-file":
			args.asDocument = false
		default:
			terms = append(terms, field)
		}
	}
	args.query = strings.Join(terms, " ")
	return args
}

// MaintenanceServiceImpl struct - slow catalog walks run on demand: filling
// the media cache ahead of time and finding posts with unfinished tagging
type MaintenanceServiceImpl struct {
	catalog output.CatalogClient
	chat    output.ChatClient
	media   *MediaCacheService
}

var _ input.MaintenanceService = (*MaintenanceServiceImpl)(nil)

// NewMaintenanceService creates the maintenance command service
func NewMaintenanceService(catalog output.CatalogClient, chat output.ChatClient, media *MediaCacheService) *MaintenanceServiceImpl {
	return &MaintenanceServiceImpl{
		catalog: catalog,
		chat:    chat,
		media:   media,
	}
}

// PopulateCache walks the catalog and produces cache entries for posts that
// lack one, up to the commanded count. This takes a while; progress is
// reported as it goes.
func (s *MaintenanceServiceImpl) PopulateCache(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) error {
	args := parsePopulateArgs(event.Text)
	sent, err := s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "Populating media cache...", nil)
	if err != nil {
		return err
	}

	var cached, alreadyCached, webmSkipped, failed, offset int
	var checked []int
	for cached < args.limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		posts, total, err := s.catalog.SearchPosts(ctx, args.query, offset, populatePageSize)
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			break
		}
		for _, post := range posts {
			if cached >= args.limit {
				break
			}
			if post.MimeType == "video/webm" {
				webmSkipped++
				continue
			}
			checked = append(checked, post.ID)
			if _, err := s.media.CachedEntry(ctx, domain.MediaRef{PostID: post.ID, AsDocument: args.asDocument}); err == nil {
				alreadyCached++
				continue
			}
			if _, err := s.media.StoreMediaForPost(ctx, post, args.asDocument); err != nil {
				logrus.Errorf("Populate failed for post %d: %v", post.ID, err)
				failed++
				continue
			}
			cached++
		}
		offset += len(posts)
		progress := fmt.Sprintf("Populating media cache... %d/%d checked, %d cached, %d failed", offset, total, cached, failed)
		if err := s.chat.EditText(ctx, sent.Ref, progress, nil); err != nil {
			logrus.Errorf("Failed to update populate progress: %v", err)
		}
		if offset >= total {
			break
		}
	}

	summary := fmt.Sprintf("Cache populated: %d new, %d already cached, %d webm skipped, %d failed", cached, alreadyCached, webmSkipped, failed)
	if filled, err := s.media.CacheSize(ctx, checked, args.asDocument); err != nil {
		logrus.Errorf("Failed to count cache fill: %v", err)
	} else {
		summary += fmt.Sprintf("\nCache fill over the checked posts: %d/%d before, %d/%d now", filled-int64(cached), len(checked), filled, len(checked))
	}
	logrus.Infof("%s", strings.ReplaceAll(summary, "\n", "; "))
	return s.chat.EditText(ctx, sent.Ref, summary, nil)
}

// ListUnfinished reports commissions with work in progress but no finished
// piece yet, with the artists and characters involved
func (s *MaintenanceServiceImpl) ListUnfinished(ctx context.Context, event *domain.ChatMessageEvent, user domain.TrustedUser) error {
	finals, err := s.catalog.SearchAllPosts(ctx, `status\:final`)
	if err != nil {
		return err
	}
	wips, err := s.catalog.SearchAllPosts(ctx, `status\:wip`)
	if err != nil {
		return err
	}

	finished := make(map[string]bool)
	for _, post := range finals {
		for _, tag := range post.TagsInCategory("meta-commissions") {
			finished[tag.PrimaryName()] = true
		}
	}

	byCommission := make(map[string][]*domain.Post)
	for _, post := range wips {
		for _, tag := range post.TagsInCategory("meta-commissions") {
			name := tag.PrimaryName()
			if !finished[name] {
				byCommission[name] = append(byCommission[name], post)
			}
		}
	}

	if len(byCommission) == 0 {
		_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, "No unfinished commissions 🎉", nil)
		return err
	}

	commissions := make([]string, 0, len(byCommission))
	for name := range byCommission {
		commissions = append(commissions, name)
	}
	sort.Strings(commissions)

	lines := []string{fmt.Sprintf("<b>%d unfinished commissions</b>", len(commissions))}
	for _, name := range commissions {
		posts := byCommission[name]
		var links []string
		for _, post := range posts {
			links = append(links, fmt.Sprintf("<a href=\"%s\">%d</a>", s.catalog.PostURL(post.ID), post.ID))
		}
		line := fmt.Sprintf("%s (%s)", name, strings.Join(links, ", "))
		if detail := commissionDetail(posts); detail != "" {
			line += ": " + detail
		}
		lines = append(lines, line)
	}
	_, err = s.chat.ReplyText(ctx, event.Ref.ChatID, event.Ref.MessageID, strings.Join(lines, "\n"), nil)
	return err
}

// commissionDetail names the artists and our characters across a commission's posts
func commissionDetail(posts []*domain.Post) string {
	artists := make(map[string]bool)
	characters := make(map[string]bool)
	for _, post := range posts {
		for _, tag := range post.TagsInCategory("artists") {
			artists[tag.PrimaryName()] = true
		}
		for _, tag := range post.TagsInCategory("our_characters") {
			characters[tag.PrimaryName()] = true
		}
	}
	var parts []string
	if len(artists) > 0 {
		parts = append(parts, "by "+strings.Join(sortedKeys(artists), ", "))
	}
	if len(characters) > 0 {
		parts = append(parts, "featuring "+strings.Join(sortedKeys(characters), ", "))
	}
	return strings.Join(parts, ", ")
}

// sortedKeys returns a set's members in stable order
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
