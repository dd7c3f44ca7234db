package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campfirehq/intake-service/internal/auth"
	"github.com/campfirehq/intake-service/internal/config"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/repository"
	apperrors "github.com/campfirehq/intake-service/pkg/util/errorutil"
)

const resetTokenTTL = 30 * time.Minute

// AuthService handles staff login for the administrative surface.
type AuthService struct {
	staff      repository.StaffRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, staffRepo repository.StaffRepository, resetRepo repository.PasswordResetRepository) *AuthService {
	return &AuthService{
		staff:      staffRepo,
		resets:     resetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// LoginStaff authenticates a staff member and issues a token.
func (s *AuthService) LoginStaff(ctx context.Context, username, password string) (*domain.StaffMember, string, time.Time, error) {
	staff, err := s.staff.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !staff.IsActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return staff, token, exp, nil
}

// ChangePassword rotates a staff member's password after verifying the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, staffID, currentPassword, newPassword string) error {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password incorrect")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.staff.UpdatePassword(ctx, staffID, hash)
}

// RequestPasswordReset issues a single-use reset token for a staff account.
// The token is returned to the caller for out-of-band delivery.
func (s *AuthService) RequestPasswordReset(ctx context.Context, username string) (string, error) {
	staff, err := s.staff.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("staff member", nil)
		}
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := &repository.StaffResetToken{
		StaffID:   staff.ID,
		Token:     hex.EncodeToString(raw),
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return "", err
	}
	return token.Token, nil
}

// ResetPassword redeems a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("invalid reset token")
		}
		return err
	}
	if token.UsedAt != nil {
		return apperrors.NewUnauthorized("reset token already used")
	}
	if s.now().After(token.ExpiresAt) {
		return apperrors.NewUnauthorized("reset token expired")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.staff.UpdatePassword(ctx, token.StaffID, hash); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}
