package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/onboarding-server/internal/model"
)

const codeUniqueViolation = "23505"

// Constraint names from database/migrations.
const (
	constraintUsersPkey     = "users_pkey"
	constraintUsersEmail    = "users_email_key"
	constraintCompanyDomain = "companies_domain_key"
)

var uniqueViolations = map[string]error{
	constraintUsersPkey:     model.ErrDuplicateUser,
	constraintUsersEmail:    model.ErrDuplicateEmail,
	constraintCompanyDomain: model.ErrDuplicateDomain,
}

// uniqueViolation maps a unique constraint failure to its domain error.
func uniqueViolation(err error) (error, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return nil, false
	}
	mapped, ok := uniqueViolations[pgErr.ConstraintName]
	return mapped, ok
}
