// Package identity describes the external identity provider and infers
// account existence from its sign-in outcomes.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Factor is a first-factor challenge the provider can send.
type Factor string

// FactorEmailOTP delivers a one-time code by email.
const FactorEmailOTP Factor = "EMAIL_OTP"

// AttributeEmail is the only attribute set on provisioned identities.
const AttributeEmail = "email"

// ChallengeKind tells which flow a pending challenge belongs to.
type ChallengeKind int

const (
	ChallengeSignUpCode ChallengeKind = iota + 1
	ChallengeSignInCode
)

// Challenge is a pending code confirmation held by the provider.
type Challenge struct {
	Kind  ChallengeKind
	Email string
	// Session is the provider's opaque continuation handle.
	Session string
	// IdentityID is set when the provider reveals it before confirmation.
	IdentityID uuid.UUID
}

// RetryError is a rejected code together with the challenge the provider
// expects the next attempt to answer.
type RetryError struct {
	Challenge Challenge
	Err       error
}

func (e *RetryError) Error() string {
	return e.Err.Error()
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// NextStep is what the provider requires after a sign-in request.
type NextStep int

const (
	StepConfirmSignInCode NextStep = iota + 1
	StepContinueFirstFactorSelection
)

// SignInResult is the provider response to a sign-in request.
type SignInResult struct {
	Next      NextStep
	Challenge Challenge
}

// Trial is a live authentication obtained while probing. It must be signed out.
type Trial struct {
	AccessToken string
}

// Identity is an authenticated provider identity.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// Provider is the identity provider boundary. Implementations report
// failures as *model.ProviderError.
type Provider interface {
	ProbeSignIn(ctx context.Context, email, credential string) (Trial, error)
	SignUp(ctx context.Context, email, credential string, attributes map[string]string) (Challenge, error)
	SignIn(ctx context.Context, email string, factor Factor) (SignInResult, error)
	ConfirmChallenge(ctx context.Context, challenge Challenge, code string) (Identity, error)
	SignOut(ctx context.Context, trial Trial) error
}
