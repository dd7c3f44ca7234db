package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry records one admission or lifecycle decision.
type AuditEntry struct {
	ID          string
	TicketID    *int64
	ApplicantID string
	Action      string
	Detail      map[string]any
	CreatedAt   time.Time
}

// AuditRepository persists the decision log.
type AuditRepository interface {
	Create(ctx context.Context, entry *AuditEntry) error
	ListByApplicant(ctx context.Context, applicantID string, limit int) ([]AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *AuditEntry) error {
	const query = `
        INSERT INTO admission_audit (ticket_id, applicant_id, action, detail)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ApplicantID,
		entry.Action,
		entry.Detail,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByApplicant(ctx context.Context, applicantID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, ticket_id, applicant_id, action, detail, created_at
        FROM admission_audit WHERE applicant_id = $1
        ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, applicantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var entry AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ApplicantID,
			&entry.Action,
			&entry.Detail,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
