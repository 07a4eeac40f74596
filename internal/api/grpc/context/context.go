// Package context carries the authenticated user through gRPC handlers.
package context

import (
	"context"

	"github.com/google/uuid"
)

type userIDKey struct{}

// Manager stores the user ID as a context value, never in metadata,
// so clients cannot supply it themselves.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func (m *Manager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}
