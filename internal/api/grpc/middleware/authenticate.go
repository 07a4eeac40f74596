package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
)

// Messages shown to callers; token details only go to the log.
const (
	msgMissingToken = "Authorization is required."
	msgInvalidToken = "Your session is no longer valid. Please sign in again."
)

// TokenService resolves user ID from bearer tokens.
type TokenService interface {
	GetUserID(ctx context.Context, token string) (uuid.UUID, error)
}

// Authenticate validates bearer tokens and injects user ID into context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// AuthFunc resolves the access token of an account call to the onboarded
// user and stores the user ID in the returned context.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	token, err := auth.AuthFromMD(ctx, "bearer")
	if err != nil {
		m.logger.Debug("Authenticate middleware: no bearer token",
			"peer", peerAddr(ctx),
			"error", model.ErrMissingToken.Error())
		return nil, status.Error(codes.Unauthenticated, msgMissingToken)
	}

	userID, err := m.tokenService.GetUserID(ctx, token)
	if err == nil && userID == uuid.Nil {
		err = model.ErrInvalidToken
	}
	if err != nil {
		m.logger.Debug("Authenticate middleware: token rejected",
			"peer", peerAddr(ctx),
			"error", err.Error())
		return nil, status.Error(codes.Unauthenticated, msgInvalidToken)
	}

	return m.contextManager.SetUserIDToContext(ctx, userID), nil
}
