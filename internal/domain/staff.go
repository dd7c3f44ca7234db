package domain

import "time"

// StaffRole enumerates admin-surface permission levels.
type StaffRole string

const (
	StaffRoleAdmin    StaffRole = "ADMIN"
	StaffRoleReviewer StaffRole = "REVIEWER"
)

// StaffMember is an operator account for the administrative surface.
type StaffMember struct {
	ID           string
	Username     string
	PasswordHash string
	Role         StaffRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
