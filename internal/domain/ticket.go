package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicketState enumerates the review pipeline states.
type TicketState string

const (
	StateFirstReview  TicketState = "FIRST_REVIEW"
	StateSecondReview TicketState = "SECOND_REVIEW"
	StateApproved     TicketState = "APPROVED"
	StateArchived     TicketState = "ARCHIVED"
)

// Category enumerates the capacity-bounded partitions holding workspaces.
type Category string

const (
	CategoryFirstReviewPrimary  Category = "FIRST_REVIEW_PRIMARY"
	CategoryFirstReviewOverflow Category = "FIRST_REVIEW_OVERFLOW"
	CategorySecondReview        Category = "SECOND_REVIEW"
	CategoryArchive             Category = "ARCHIVE"
)

// DefaultCategoryCapacity is the hard slot ceiling per category.
const DefaultCategoryCapacity = 50

// Ticket is one applicant's review workspace. The workspace itself is the
// record: identity and creation time live in the topic descriptor and the
// state is rendered through the workspace name prefix.
type Ticket struct {
	ID          int64
	CreatorID   string
	State       TicketState
	Category    Category
	WorkspaceID string
	Link        string
	CreatedAt   time.Time
}

var statePrefixes = map[TicketState]string{
	StateFirstReview:  "review1-",
	StateSecondReview: "review2-",
	StateApproved:     "approved-",
	StateArchived:     "closed-",
}

// NamePrefix returns the workspace name prefix rendering this state.
func (s TicketState) NamePrefix() string {
	return statePrefixes[s]
}

// StateFromName recovers the ticket state from a workspace name.
func StateFromName(name string) (TicketState, bool) {
	for state, prefix := range statePrefixes {
		if strings.HasPrefix(name, prefix) {
			return state, true
		}
	}
	return "", false
}

// WorkspaceName renders the canonical workspace name for a state and ticket id.
func WorkspaceName(state TicketState, id int64) string {
	return state.NamePrefix() + strconv.FormatInt(id, 10)
}

// RenderDescriptor builds the topic descriptor embedding ticket metadata.
func RenderDescriptor(id int64, creatorID string, createdAt time.Time) string {
	return fmt.Sprintf("ticket=%d;applicant=%s;created=%d", id, creatorID, createdAt.Unix())
}

// ParseDescriptor recovers ticket metadata from a workspace topic. The final
// return is false for workspaces that do not follow the convention; callers
// skip those.
func ParseDescriptor(topic string) (id int64, creatorID string, createdAt time.Time, ok bool) {
	for _, field := range strings.Split(topic, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(field), "=")
		if !found {
			continue
		}
		switch key {
		case "ticket":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", time.Time{}, false
			}
			id = parsed
		case "applicant":
			creatorID = value
		case "created":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", time.Time{}, false
			}
			createdAt = time.Unix(unix, 0).UTC()
		}
	}
	if id == 0 || creatorID == "" || createdAt.IsZero() {
		return 0, "", time.Time{}, false
	}
	return id, creatorID, createdAt, true
}

var allowedTransitions = map[TicketState][]TicketState{
	StateFirstReview:  {StateSecondReview, StateArchived},
	StateSecondReview: {StateApproved, StateArchived},
	StateApproved:     {StateArchived},
	StateArchived:     {},
}

// CanTransition reports whether the pipeline permits moving from current to
// next. Admin override commands bypass this table deliberately.
func CanTransition(current, next TicketState) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// HomeCategory returns the partition a state's workspaces normally live in.
// FirstReview tickets stay wherever admission placed them (primary or
// overflow), so for them this is only the default for new tickets.
func HomeCategory(state TicketState) Category {
	switch state {
	case StateFirstReview:
		return CategoryFirstReviewPrimary
	case StateSecondReview, StateApproved:
		return CategorySecondReview
	default:
		return CategoryArchive
	}
}

// Automated-message tags. The scanner, panel and lifecycle service locate
// their own prior output by scanning message text for these, so they must
// stay stable across releases.
const (
	TagReminder     = "[intake:reminder]"
	TagAwaitConfirm = "[intake:await-confirm]"
	TagLocked       = "[intake:locked]"
	TagPanel        = "[intake:panel]"
)
