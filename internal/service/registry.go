package service

import (
	"context"

	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/config"
	"github.com/campfirehq/intake-service/internal/domain"
)

// TicketRegistry derives the ticket set from live workspaces. There is no
// ticket table: each workspace's name and topic descriptor are the record.
type TicketRegistry struct {
	chatc chat.Client
	cfg   config.ChatConfig
}

// NewTicketRegistry constructs the registry.
func NewTicketRegistry(chatc chat.Client, cfg config.ChatConfig) *TicketRegistry {
	return &TicketRegistry{chatc: chatc, cfg: cfg}
}

// AllCategories lists every partition the registry knows about.
func AllCategories() []domain.Category {
	return []domain.Category{
		domain.CategoryFirstReviewPrimary,
		domain.CategoryFirstReviewOverflow,
		domain.CategorySecondReview,
		domain.CategoryArchive,
	}
}

// ReviewCategories lists the partitions holding live (non-archived) tickets.
func ReviewCategories() []domain.Category {
	return []domain.Category{
		domain.CategoryFirstReviewPrimary,
		domain.CategoryFirstReviewOverflow,
		domain.CategorySecondReview,
	}
}

// Tickets returns the tickets in one category. Workspaces that do not follow
// the naming or descriptor convention are skipped.
func (r *TicketRegistry) Tickets(ctx context.Context, category domain.Category) ([]domain.Ticket, error) {
	workspaces, err := r.chatc.ListWorkspaces(ctx, r.cfg.CategoryID(category))
	if err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(workspaces))
	for _, ws := range workspaces {
		ticket, ok := r.ticketFromWorkspace(ws, category)
		if !ok {
			continue
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// Count returns the workspace count of a category, conforming or not; the
// capacity ceiling applies to physical slots.
func (r *TicketRegistry) Count(ctx context.Context, category domain.Category) (int, error) {
	workspaces, err := r.chatc.ListWorkspaces(ctx, r.cfg.CategoryID(category))
	if err != nil {
		return 0, err
	}
	return len(workspaces), nil
}

// FindByCreator scans every category, Archive included, for the applicant's
// existing workspace.
func (r *TicketRegistry) FindByCreator(ctx context.Context, creatorID string) (*domain.Ticket, error) {
	for _, category := range AllCategories() {
		tickets, err := r.Tickets(ctx, category)
		if err != nil {
			return nil, err
		}
		for i := range tickets {
			if tickets[i].CreatorID == creatorID {
				return &tickets[i], nil
			}
		}
	}
	return nil, nil
}

// FindByCreatorAll returns every workspace embedding the applicant's identity,
// across all categories. Used by bulk deduplication.
func (r *TicketRegistry) FindByCreatorAll(ctx context.Context, creatorID string) ([]domain.Ticket, error) {
	var found []domain.Ticket
	for _, category := range AllCategories() {
		tickets, err := r.Tickets(ctx, category)
		if err != nil {
			return nil, err
		}
		for _, t := range tickets {
			if t.CreatorID == creatorID {
				found = append(found, t)
			}
		}
	}
	return found, nil
}

// FindByID locates a ticket by its numeric id across all categories.
func (r *TicketRegistry) FindByID(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	for _, category := range AllCategories() {
		tickets, err := r.Tickets(ctx, category)
		if err != nil {
			return nil, err
		}
		for i := range tickets {
			if tickets[i].ID == ticketID {
				return &tickets[i], nil
			}
		}
	}
	return nil, nil
}

func (r *TicketRegistry) ticketFromWorkspace(ws chat.Workspace, category domain.Category) (domain.Ticket, bool) {
	state, ok := domain.StateFromName(ws.Name)
	if !ok {
		return domain.Ticket{}, false
	}
	id, creatorID, createdAt, ok := domain.ParseDescriptor(ws.Topic)
	if !ok {
		return domain.Ticket{}, false
	}
	return domain.Ticket{
		ID:          id,
		CreatorID:   creatorID,
		State:       state,
		Category:    category,
		WorkspaceID: ws.ID,
		Link:        ws.Link,
		CreatedAt:   createdAt,
	}, true
}
