package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/onboarding-server/internal/model"
)

var _ model.CompanyStore = (*CompanyRepository)(nil)

type CompanyRepository struct {
	db *Connection
}

func NewCompanyRepository(db *Connection) *CompanyRepository {
	return &CompanyRepository{db: db}
}

const companyColumns = `id, domain, name, created_at, updated_at`

func scanCompany(row pgx.Row) (model.Company, error) {
	var c model.Company
	err := row.Scan(&c.ID, &c.Domain, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	c, err := scanCompany(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Company{}, model.ErrNotFound
		}
		return model.Company{}, fmt.Errorf("failed to get company by id: %w", err)
	}
	return c, nil
}

func (r *CompanyRepository) FindByDomain(ctx context.Context, domain string) (model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE domain = lower($1)`

	c, err := scanCompany(r.db.QueryRow(ctx, query, domain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Company{}, model.ErrNotFound
		}
		return model.Company{}, fmt.Errorf("failed to find company by domain: %w", err)
	}
	return c, nil
}

// Create inserts the company. The unique domain constraint decides races
// between concurrent first sign-ups; the loser gets ErrDuplicateDomain.
func (r *CompanyRepository) Create(ctx context.Context, company model.Company) (model.Company, error) {
	query := `INSERT INTO companies (id, domain, name, created_at, updated_at)
			  VALUES ($1, lower($2), $3, NOW(), NOW())
			  RETURNING ` + companyColumns

	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}

	c, err := scanCompany(r.db.QueryRow(ctx, query, company.ID, company.Domain, company.Name))
	if err != nil {
		if mapped, ok := uniqueViolation(err); ok {
			return model.Company{}, mapped
		}
		return model.Company{}, fmt.Errorf("failed to create company: %w", err)
	}
	return c, nil
}

func (r *CompanyRepository) Update(ctx context.Context, update model.CompanyUpdate) (model.Company, error) {
	query := `UPDATE companies SET name = COALESCE($2, name), updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + companyColumns

	c, err := scanCompany(r.db.QueryRow(ctx, query, update.ID, update.Name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Company{}, model.ErrNotFound
		}
		return model.Company{}, fmt.Errorf("failed to update company: %w", err)
	}
	return c, nil
}
