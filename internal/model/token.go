package model

import "github.com/google/uuid"

// TokenManager signs and verifies the API tokens handed to onboarded users.
// Access tokens authenticate account calls; refresh tokens carry a jti that
// is tracked in a RefreshTokenStore.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (token string, jti string, err error)
	ParseAccessToken(token string) (uuid.UUID, error)
	ParseRefreshToken(token string) (userID uuid.UUID, jti string, err error)
}
