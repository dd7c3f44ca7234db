package dto

import "time"

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse carries an issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetIssueRequest asks for a reset token for a staff account.
type PasswordResetIssueRequest struct {
	Username string `json:"username"`
}

// PasswordResetRedeemRequest redeems a reset token.
type PasswordResetRedeemRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
