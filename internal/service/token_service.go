package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
)

// DefaultRefreshTTL is how long a stored refresh token stays usable.
const DefaultRefreshTTL = 30 * 24 * time.Hour

// TokenService issues API tokens to onboarded users and rotates refresh
// tokens. Only a hash of each refresh token is stored.
type TokenService struct {
	manager    model.TokenManager
	store      model.RefreshTokenStore
	refreshTTL time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

func NewTokenService(manager model.TokenManager, store model.RefreshTokenStore, refreshTTL time.Duration, logger *logger.Logger) *TokenService {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		manager:    manager,
		store:      store,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (string, string, error) {
	return s.issue(ctx, userID, nil)
}

// Refresh exchanges a refresh token for a new pair and revokes the old one.
func (s *TokenService) Refresh(ctx context.Context, presented string) (string, string, error) {
	userID, jti, err := s.manager.ParseRefreshToken(presented)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}

	rt, err := s.store.GetByJTI(ctx, jti)
	if errors.Is(err, model.ErrNotFound) {
		return "", "", model.ErrTokenMismatch
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to get refresh token: %w", err)
	}

	if err := checkStored(rt, userID, hashToken(presented), s.now()); err != nil {
		s.logger.Warn("Token service: refresh rejected",
			"user_id", userID,
			"jti", jti,
			"error", err.Error())
		return "", "", err
	}

	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		return "", "", fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	return s.issue(ctx, userID, &rt.JTI)
}

func (s *TokenService) RevokeByToken(ctx context.Context, presented string) error {
	_, jti, err := s.manager.ParseRefreshToken(presented)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}
	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RevokeAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// PurgeExpired deletes refresh tokens that can no longer be used.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	if n > 0 {
		s.logger.Info("Token service: expired refresh tokens purged",
			"count", n)
	}
	return n, nil
}

// RunPurger calls PurgeExpired every interval until ctx is done.
func (s *TokenService) RunPurger(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil {
				s.logger.Warn("Token service: purge failed",
					"error", err.Error())
			}
		}
	}
}

// GetUserID validates an access token.
func (s *TokenService) GetUserID(_ context.Context, token string) (uuid.UUID, error) {
	return s.manager.ParseAccessToken(token)
}

func (s *TokenService) issue(ctx context.Context, userID uuid.UUID, rotatedFrom *string) (string, string, error) {
	access, err := s.manager.GenerateAccessToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, jti, err := s.manager.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := s.now()
	err = s.store.Create(ctx, model.RefreshToken{
		ID:             uuid.New(),
		JTI:            jti,
		UserID:         userID,
		TokenHash:      hashToken(refresh),
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.refreshTTL),
		RotatedFromJTI: rotatedFrom,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to persist refresh token: %w", err)
	}

	s.logger.Debug("Token service: tokens issued",
		"user_id", userID,
		"jti", jti,
		"rotated", rotatedFrom != nil)

	return access, refresh, nil
}

func hashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func checkStored(rt model.RefreshToken, userID uuid.UUID, presentedHash []byte, now time.Time) error {
	switch {
	case rt.RevokedAt != nil:
		return model.ErrTokenRevoked
	case now.After(rt.ExpiresAt):
		return model.ErrTokenExpired
	case rt.UserID != userID, subtle.ConstantTimeCompare(rt.TokenHash, presentedHash) != 1:
		return model.ErrTokenMismatch
	}
	return nil
}
