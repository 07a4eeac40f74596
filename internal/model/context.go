package model

import (
	"context"

	"github.com/google/uuid"
)

// ContextManager carries the authenticated user between the auth
// interceptor and the account handlers.
type ContextManager interface {
	SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context
	// GetUserIDFromContext reports false when the call was not authenticated.
	GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool)
}
