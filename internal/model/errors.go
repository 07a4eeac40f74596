package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateDomain is returned when a company for the domain already exists.
	ErrDuplicateDomain = errors.New("company domain already exists")
	// ErrDuplicateUser is returned when a user with the identity id already exists.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrDuplicateEmail is returned when another identity already owns the email.
	ErrDuplicateEmail = errors.New("email already registered")

	ErrDomainNotAllowed     = errors.New("email domain is not allowed")
	ErrProbeUnavailable     = errors.New("identity probe unavailable")
	ErrReconciliationFailed = errors.New("account reconciliation failed")
	// ErrEmailClaimed means the email is stored for another identity. Unlike
	// ErrReconciliationFailed it is not retryable.
	ErrEmailClaimed       = errors.New("email claimed by another identity")
	ErrAlreadyInProgress  = errors.New("onboarding already in progress")
	ErrNoPendingChallenge = errors.New("no pending challenge")
	ErrCancelled          = errors.New("onboarding cancelled")
	ErrSessionNotFound    = errors.New("onboarding session not found")
	ErrSessionClosed      = errors.New("onboarding session closed")
	ErrNotAuthenticated   = errors.New("identity not authenticated")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ProviderErrorKind classifies identity provider failures.
type ProviderErrorKind string

const (
	ProviderSignUpConflict    ProviderErrorKind = "sign_up_conflict"
	ProviderWrongCredential   ProviderErrorKind = "wrong_credential"
	ProviderInvalidCode       ProviderErrorKind = "invalid_code"
	ProviderTooManyAttempts   ProviderErrorKind = "too_many_attempts"
	ProviderNotFound          ProviderErrorKind = "not_found"
	ProviderChallengeRequired ProviderErrorKind = "challenge_required"
	ProviderUnavailable       ProviderErrorKind = "unavailable"
	ProviderOther             ProviderErrorKind = "other"
)

// ProviderError is an identity provider failure. Two provider errors match
// with errors.Is when their kinds are equal.
type ProviderError struct {
	Kind ProviderErrorKind
	Op   string
	Err  error
}

var (
	ErrSignUpConflict    = &ProviderError{Kind: ProviderSignUpConflict}
	ErrWrongCredential   = &ProviderError{Kind: ProviderWrongCredential}
	ErrInvalidCode       = &ProviderError{Kind: ProviderInvalidCode}
	ErrTooManyAttempts   = &ProviderError{Kind: ProviderTooManyAttempts}
	ErrIdentityNotFound  = &ProviderError{Kind: ProviderNotFound}
	ErrChallengeRequired = &ProviderError{Kind: ProviderChallengeRequired}
	ErrProviderDown      = &ProviderError{Kind: ProviderUnavailable}
)

// NewProviderError wraps err as a provider error of the given kind.
func NewProviderError(kind ProviderErrorKind, op string, err error) error {
	return &ProviderError{Kind: kind, Op: op, Err: err}
}

func (e *ProviderError) Error() string {
	msg := "identity provider: " + string(e.Kind)
	if e.Op != "" {
		msg = "identity provider " + e.Op + ": " + string(e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ProviderErrorKindOf returns the kind of the first provider error in err's chain.
func ProviderErrorKindOf(err error) (ProviderErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
