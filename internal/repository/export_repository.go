package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TranscriptMessage is one archived workspace message, oldest first.
type TranscriptMessage struct {
	AuthorID  string    `json:"author_id"`
	Automated bool      `json:"automated"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkspaceExport is a purged workspace's transcript kept for the record.
type WorkspaceExport struct {
	ID            string
	TicketID      int64
	ApplicantID   string
	WorkspaceName string
	Transcript    []TranscriptMessage
	ExportedAt    time.Time
}

// ExportRepository persists transcripts from bulk-export-and-purge.
type ExportRepository interface {
	Create(ctx context.Context, export *WorkspaceExport) error
}

type exportRepository struct {
	pool *pgxpool.Pool
}

// NewExportRepository instantiates repository.
func NewExportRepository(pool *pgxpool.Pool) ExportRepository {
	return &exportRepository{pool: pool}
}

func (r *exportRepository) Create(ctx context.Context, export *WorkspaceExport) error {
	const query = `
        INSERT INTO workspace_exports (ticket_id, applicant_id, workspace_name, transcript)
        VALUES ($1, $2, $3, $4)
        RETURNING id, exported_at`
	return r.pool.QueryRow(ctx, query,
		export.TicketID,
		export.ApplicantID,
		export.WorkspaceName,
		export.Transcript,
	).Scan(&export.ID, &export.ExportedAt)
}
