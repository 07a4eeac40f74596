package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/onboarding-server/internal/model"
)

func TestUniqueViolation(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   error
		wantOK bool
	}{
		{
			name:   "company domain",
			err:    &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintCompanyDomain},
			want:   model.ErrDuplicateDomain,
			wantOK: true,
		},
		{
			name:   "user id wrapped",
			err:    fmt.Errorf("insert: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintUsersPkey}),
			want:   model.ErrDuplicateUser,
			wantOK: true,
		},
		{
			name:   "user email",
			err:    &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintUsersEmail},
			want:   model.ErrDuplicateEmail,
			wantOK: true,
		},
		{
			name: "unknown constraint",
			err:  &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "other_key"},
		},
		{
			name: "foreign key",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: constraintUsersPkey},
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := uniqueViolation(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
