package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CompanyStore defines persistence operations for companies.
// Create must return ErrDuplicateDomain when the domain is already taken.
type CompanyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Company, error)
	FindByDomain(ctx context.Context, domain string) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, update CompanyUpdate) (Company, error)
}

// Company groups users sharing a primary email domain.
type Company struct {
	ID        uuid.UUID
	Domain    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CompanyUpdate is a partial update of a company.
type CompanyUpdate struct {
	ID   uuid.UUID
	Name *string
}
