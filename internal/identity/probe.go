package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
)

// Existence is the tagged result of a probe.
type Existence int

const (
	Unavailable Existence = iota
	Exists
	NotFound
)

func (e Existence) String() string {
	switch e {
	case Exists:
		return "exists"
	case NotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// Probe infers whether an identity exists by attempting a trial sign-in with
// a fixed sentinel credential. Only "identity not found" means absence; any
// other provider answer means the identity exists.
type Probe struct {
	provider   Provider
	credential string
	logger     *logger.Logger
}

// NewProbe creates a Probe using the sentinel credential.
func NewProbe(provider Provider, credential string, logger *logger.Logger) *Probe {
	return &Probe{provider: provider, credential: credential, logger: logger}
}

// Exists probes email. When the result is Unavailable the returned error
// wraps model.ErrProbeUnavailable.
func (p *Probe) Exists(ctx context.Context, email string) (Existence, error) {
	trial, err := p.provider.ProbeSignIn(ctx, email, p.credential)
	if err == nil {
		// Not a real login.
		if signOutErr := p.provider.SignOut(ctx, trial); signOutErr != nil {
			p.logger.Warn("Identity probe: failed to sign out trial authentication",
				"email", email,
				"error", signOutErr.Error())
		}
		return Exists, nil
	}

	if errors.Is(err, model.ErrIdentityNotFound) {
		return NotFound, nil
	}

	if isTransport(ctx, err) {
		p.logger.Error("Identity probe: provider unavailable",
			"email", email,
			"error", err.Error())
		return Unavailable, fmt.Errorf("%w: %w", model.ErrProbeUnavailable, err)
	}

	p.logger.Debug("Identity probe: trial sign-in rejected, identity exists",
		"email", email,
		"error", err.Error())

	return Exists, nil
}

func isTransport(ctx context.Context, err error) bool {
	if errors.Is(err, model.ErrProviderDown) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ctx.Err() != nil
}
