package application

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
)

// PhaseID - identifier of one step of the guided tagging workflow
type PhaseID string

const (
	PhaseCommStatus      PhaseID = "comm_status"
	PhaseOurCharacters   PhaseID = "our_characters"
	PhaseOtherCharacters PhaseID = "other_characters"
	PhaseArtist          PhaseID = "artist"
	PhaseWipTags         PhaseID = "wip_tags"
	PhaseMetaCommissions PhaseID = "meta_commissions"
	PhaseMeta            PhaseID = "meta"
	PhaseDone            PhaseID = "done"
)

// Order - tag button ordering within a phase menu
type Order string

const (
	OrderPopularity   Order = "popularity"
	OrderAlphabetical Order = "alphabetical"
)

// RowsPerPage is how many button rows of tags fit on one menu page
const RowsPerPage = 7

// progressTagPrefix marks a post's current workflow phase
const progressTagPrefix = "tagging:"

// SpecialButton struct - an extra menu button with phase-specific behaviour
type SpecialButton struct {
	Label string
	Data  string
}

// SpecialNewCommission is the callback data of the new-commission button
const SpecialNewCommission = "special:new_comm"

// PhaseSpec struct - one step of the tagging workflow: which tags it offers,
// how it lays them out, and where the workflow goes next
type PhaseSpec struct {
	ID       PhaseID
	Question string
	// TagCategory is the catalog category whose tags the menu offers
	TagCategory string
	// FixedTags offers a fixed tag list instead of a category listing
	FixedTags []string
	// NewTagCategory is the category for tags created from free text replies
	NewTagCategory string
	ButtonsPerRow  int
	AllowOrdering  bool
	SpecialButtons []SpecialButton
	// PopularityFilter narrows popularity ranking to pieces sharing the
	// returned tags, so menus favour tags that co-occur with this post
	PopularityFilter func(post *domain.Post) []string
	// Next decides the following phase from the post's current tags
	Next func(post *domain.Post) PhaseID
	// Check validates the post before the workflow may advance
	Check func(post *domain.Post) error
}

// phases is the workflow registry. Every phase reachable from comm_status
// terminates at done.
var phases = map[PhaseID]PhaseSpec{
	PhaseCommStatus: {
		ID:            PhaseCommStatus,
		Question:      "Is this piece a WIP, or finished?",
		FixedTags:     []string{"status:wip", "status:final"},
		ButtonsPerRow: 2,
		Next:          func(*domain.Post) PhaseID { return PhaseOurCharacters },
		Check: func(post *domain.Post) error {
			wip := post.HasTag("status:wip")
			final := post.HasTag("status:final")
			if wip == final {
				return fmt.Errorf("post must have exactly one of status:wip and status:final")
			}
			return nil
		},
	},
	PhaseOurCharacters: {
		ID:             PhaseOurCharacters,
		Question:       "Which of our characters are in this piece?",
		TagCategory:    "our_characters",
		NewTagCategory: "our_characters",
		ButtonsPerRow:  2,
		AllowOrdering:  true,
		Next:           func(*domain.Post) PhaseID { return PhaseOtherCharacters },
	},
	PhaseOtherCharacters: {
		ID:             PhaseOtherCharacters,
		Question:       "Whose characters besides ours are in this piece?",
		TagCategory:    "characters",
		NewTagCategory: "characters",
		ButtonsPerRow:  2,
		AllowOrdering:  true,
		PopularityFilter: func(post *domain.Post) []string {
			var names []string
			for _, tag := range post.TagsInCategory("our_characters") {
				names = append(names, tag.PrimaryName())
			}
			return names
		},
		Next: func(*domain.Post) PhaseID { return PhaseArtist },
	},
	PhaseArtist: {
		ID:             PhaseArtist,
		Question:       "Who is the artist of this piece?",
		TagCategory:    "artists",
		NewTagCategory: "artists",
		ButtonsPerRow:  2,
		AllowOrdering:  true,
		Next: func(post *domain.Post) PhaseID {
			if post.HasTag("status:wip") {
				return PhaseWipTags
			}
			return PhaseMetaCommissions
		},
	},
	PhaseWipTags: {
		ID:             PhaseWipTags,
		Question:       "Any tags for this WIP? It can be tagged fully when finished.",
		TagCategory:    "default",
		NewTagCategory: "default",
		ButtonsPerRow:  2,
		AllowOrdering:  true,
		Next:           func(*domain.Post) PhaseID { return PhaseDone },
	},
	PhaseMetaCommissions: {
		ID:            PhaseMetaCommissions,
		Question:      "Which commission does this piece belong to?",
		TagCategory:   "meta-commissions",
		ButtonsPerRow: 1,
		SpecialButtons: []SpecialButton{
			{Label: "🆕 New commission", Data: SpecialNewCommission},
		},
		Next: func(*domain.Post) PhaseID { return PhaseMeta },
	},
	PhaseMeta: {
		ID:             PhaseMeta,
		Question:       "Any other tags for this piece?",
		TagCategory:    "default",
		NewTagCategory: "default",
		ButtonsPerRow:  2,
		AllowOrdering:  true,
		Next:           func(*domain.Post) PhaseID { return PhaseDone },
	},
}

// GetPhase returns the spec of one workflow phase
func GetPhase(id PhaseID) (PhaseSpec, bool) {
	spec, ok := phases[id]
	return spec, ok
}

// CurrentPhase reads a post's workflow progress tag. Posts without one start
// at the beginning.
func CurrentPhase(post *domain.Post) PhaseID {
	for _, name := range post.TagNames() {
		if strings.HasPrefix(name, progressTagPrefix) {
			id := PhaseID(strings.TrimPrefix(name, progressTagPrefix))
			if _, ok := phases[id]; ok {
				return id
			}
		}
	}
	return PhaseCommStatus
}

// ProgressTag returns the progress tag name for a phase
func ProgressTag(id PhaseID) string {
	return progressTagPrefix + string(id)
}

// IsProgressTag reports whether a tag name tracks workflow progress
func IsProgressTag(name string) bool {
	return strings.HasPrefix(name, progressTagPrefix)
}

// TagsWithProgress returns the post's tag names with the progress tag moved
// to the given phase. Passing done removes progress tags entirely.
func TagsWithProgress(post *domain.Post, id PhaseID) []string {
	var names []string
	for _, name := range post.PrimaryTagNames() {
		if IsProgressTag(name) {
			continue
		}
		names = append(names, name)
	}
	if id != PhaseDone {
		names = append(names, ProgressTag(id))
	}
	return names
}

// OrderTags sorts tags for the menu. Popularity ordering is by descending
// popularity with name as the tie break; alphabetical is by name alone.
func OrderTags(tags []*domain.Tag, order Order, popularity map[string]int) []*domain.Tag {
	sorted := make([]*domain.Tag, len(tags))
	copy(sorted, tags)
	if order == OrderAlphabetical || popularity == nil {
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].PrimaryName() < sorted[j].PrimaryName()
		})
		return sorted
	}
	sort.Slice(sorted, func(i, j int) bool {
		pi, pj := popularity[sorted[i].PrimaryName()], popularity[sorted[j].PrimaryName()]
		if pi != pj {
			return pi > pj
		}
		return sorted[i].PrimaryName() < sorted[j].PrimaryName()
	})
	return sorted
}

// PaginateRows slices button rows into one page. Page numbers are clamped
// into range, so stale page references never land out of bounds.
func PaginateRows(rows [][]domain.Button, page int) ([][]domain.Button, int, int) {
	totalPages := (len(rows) + RowsPerPage - 1) / RowsPerPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	start := page * RowsPerPage
	end := start + RowsPerPage
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], page, totalPages
}

// NextCommissionTag derives the next sequential commission tag name from the
// existing ones. Commission tags are zero padded to six digits.
func NextCommissionTag(existing []*domain.Tag) string {
	highest := 0
	for _, tag := range existing {
		for _, name := range tag.Names {
			suffix, found := strings.CutPrefix(name, "commission_")
			if !found {
				continue
			}
			number, err := strconv.Atoi(suffix)
			if err != nil {
				continue
			}
			if number > highest {
				highest = number
			}
		}
	}
	return fmt.Sprintf("commission_%06d", highest+1)
}
