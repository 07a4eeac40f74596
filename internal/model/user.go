package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, update UserUpdate) (User, error)
}

// User is a local account keyed by the identity provider id.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	JobTitle  string
	CompanyID *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserUpdate is a partial update. Nil fields are left untouched and
// CompanyID is only applied when the user has no company yet.
type UserUpdate struct {
	ID        uuid.UUID
	Name      *string
	JobTitle  *string
	CompanyID *uuid.UUID
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.JobTitle == nil && u.CompanyID == nil
}
