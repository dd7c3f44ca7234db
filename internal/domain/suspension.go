package domain

import (
	"errors"
	"time"
)

// SuspensionSchedule is the persisted maintenance window during which
// admission is disabled. Timestamps are UTC instants; conversion to the
// configured zone happens only at formatting boundaries.
type SuspensionSchedule struct {
	Suspended bool
	Reason    string
	StartAt   *time.Time
	EndAt     *time.Time
}

// Validate enforces the window invariant at input time.
func (s SuspensionSchedule) Validate() error {
	if s.StartAt != nil && s.EndAt != nil && !s.EndAt.After(*s.StartAt) {
		return errors.New("suspension end must be after start")
	}
	return nil
}

// IsActive answers "is intake suspended at now". Pure; no clock access.
func (s SuspensionSchedule) IsActive(now time.Time) bool {
	if !s.Suspended {
		return false
	}
	if s.StartAt == nil {
		return true
	}
	if now.Before(*s.StartAt) {
		return false
	}
	if s.EndAt == nil {
		return true
	}
	return now.Before(*s.EndAt)
}

// ResumeAt returns the estimated end of the window when one is known.
func (s SuspensionSchedule) ResumeAt() *time.Time {
	return s.EndAt
}
