package domain

import "time"

// RejectReason enumerates the policy rejection outcomes of the admission
// pipeline. These are expected, user-facing results, not failures.
type RejectReason string

const (
	RejectAlreadyProcessing     RejectReason = "ALREADY_PROCESSING"
	RejectAdmissionSuspended    RejectReason = "ADMISSION_SUSPENDED"
	RejectOutsideOperatingHours RejectReason = "OUTSIDE_OPERATING_HOURS"
	RejectNotEligible           RejectReason = "NOT_ELIGIBLE"
	RejectDuplicateTicket       RejectReason = "DUPLICATE_TICKET"
	RejectQuotaExhausted        RejectReason = "QUOTA_EXHAUSTED"
	RejectCapacityFull          RejectReason = "CAPACITY_FULL"
	RejectRateLimited           RejectReason = "RATE_LIMITED"
)

// Rejection is an admission refused by policy. It carries enough context for
// the user-facing message: the suspension resume estimate, or a link to the
// existing workspace on duplicate detection.
type Rejection struct {
	Reason       RejectReason
	Message      string
	ResumeAt     *time.Time
	ExistingLink string
}

func (r *Rejection) Error() string {
	if r.Message != "" {
		return string(r.Reason) + ": " + r.Message
	}
	return string(r.Reason)
}
