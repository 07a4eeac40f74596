package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Is(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("failed to confirm: %w", NewProviderError(ProviderInvalidCode, "confirm", errors.New("code mismatch")))

	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.NotErrorIs(t, err, ErrTooManyAttempts)

	kind, ok := ProviderErrorKindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ProviderInvalidCode, kind)
}

func TestProviderError_UnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: timeout")
	err := NewProviderError(ProviderUnavailable, "sign_in", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrProviderDown)
	assert.Equal(t, "identity provider sign_in: unavailable: dial tcp: timeout", err.Error())
}

func TestProviderErrorKindOf_NotProviderError(t *testing.T) {
	t.Parallel()

	_, ok := ProviderErrorKindOf(errors.New("boom"))
	assert.False(t, ok)
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("email", "missing @")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, "invalid email: missing @", err.Error())
}
