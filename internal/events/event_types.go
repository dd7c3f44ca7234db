package events

import (
	"time"

	"github.com/campfirehq/intake-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAdmissionGranted   EventType = "admission_granted"
	EventAdmissionRejected  EventType = "admission_rejected"
	EventTicketStateChanged EventType = "ticket_state_changed"
	EventQuotaChanged       EventType = "quota_changed"
	EventSuspensionChanged  EventType = "suspension_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AdmissionGrantedPayload payload.
type AdmissionGrantedPayload struct {
	TicketID    int64           `json:"ticket_id"`
	ApplicantID string          `json:"applicant_id"`
	Category    domain.Category `json:"category"`
	Remaining   int             `json:"remaining"`
}

// AdmissionRejectedPayload payload.
type AdmissionRejectedPayload struct {
	ApplicantID string              `json:"applicant_id"`
	Reason      domain.RejectReason `json:"reason"`
}

// TicketStateChangedPayload payload.
type TicketStateChangedPayload struct {
	TicketID    int64              `json:"ticket_id"`
	ApplicantID string             `json:"applicant_id"`
	OldState    domain.TicketState `json:"old_state"`
	NewState    domain.TicketState `json:"new_state"`
	Reason      string             `json:"reason,omitempty"`
}

// QuotaChangedPayload payload.
type QuotaChangedPayload struct {
	Remaining int `json:"remaining"`
}

// SuspensionChangedPayload payload.
type SuspensionChangedPayload struct {
	Active bool   `json:"active"`
	Reason string `json:"reason,omitempty"`
}
