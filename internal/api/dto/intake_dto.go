package dto

// AdmissionRequest payload from the gateway when an applicant asks for a
// review workspace.
type AdmissionRequest struct {
	ApplicantID string   `json:"applicant_id"`
	Username    string   `json:"username"`
	RoleIDs     []string `json:"role_ids"`
}

// AdmissionGranted response body.
type AdmissionGranted struct {
	TicketID    int64  `json:"ticket_id"`
	WorkspaceID string `json:"workspace_id"`
	Link        string `json:"link"`
	Category    string `json:"category"`
}

// AdmissionRejected response body for policy refusals.
type AdmissionRejected struct {
	Reason       string `json:"reason"`
	Message      string `json:"message,omitempty"`
	ResumeAt     *int64 `json:"resume_at,omitempty"`
	ExistingLink string `json:"existing_link,omitempty"`
	RetryAfter   int64  `json:"retry_after_seconds,omitempty"`
}

// ConfirmRequest payload when an applicant presses the confirm control.
type ConfirmRequest struct {
	TicketID    int64  `json:"ticket_id"`
	ApplicantID string `json:"applicant_id"`
}

// SuspensionWindowRequest payload for create-suspension-window.
type SuspensionWindowRequest struct {
	Reason  string `json:"reason"`
	StartAt *int64 `json:"start_at,omitempty"`
	EndAt   *int64 `json:"end_at,omitempty"`
}

// QuotaAmountRequest payload for set-quota and add-quota.
type QuotaAmountRequest struct {
	Amount int `json:"amount"`
}

// AdvanceStateRequest payload for the manual recovery command.
type AdvanceStateRequest struct {
	State  string `json:"state"`
	Reason string `json:"reason"`
	Force  bool   `json:"force"`
}

// ForceArchiveRequest payload.
type ForceArchiveRequest struct {
	Note string `json:"note"`
}

// DeduplicateRequest payload.
type DeduplicateRequest struct {
	ApplicantID string `json:"applicant_id"`
	DryRun      bool   `json:"dry_run"`
}

// PurgeRequest payload for bulk-export-and-purge.
type PurgeRequest struct {
	Category string `json:"category"`
}

// TicketSummary response shape for ticket listings.
type TicketSummary struct {
	TicketID    int64  `json:"ticket_id"`
	ApplicantID string `json:"applicant_id"`
	State       string `json:"state"`
	Category    string `json:"category"`
	Link        string `json:"link,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}
