package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dtroode/onboarding-server/internal/identity"
	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/metrics"
	"github.com/dtroode/onboarding-server/internal/model"
)

// Prober reports whether an identity exists for an email.
type Prober interface {
	Exists(ctx context.Context, email string) (identity.Existence, error)
}

// Continuation runs synchronously on the AUTHENTICATED transition.
type Continuation func(ctx context.Context, id identity.Identity) error

// ChallengeStatus is a snapshot of an Orchestrator.
type ChallengeStatus struct {
	State    model.ChallengeState
	Email    string
	Path     string
	Attempts int
	Err      error
	Identity identity.Identity
}

// Orchestrator drives one onboarding attempt through the identity provider.
// Only one provider call is in flight at a time. Cancel bumps a generation
// counter so results of calls started before it are dropped.
type Orchestrator struct {
	provider    identity.Provider
	probe       Prober
	placeholder string
	metrics     metrics.Recorder
	logger      *logger.Logger

	mu         sync.Mutex
	state      model.ChallengeState
	email      string
	path       string
	challenge  identity.Challenge
	attempts   int
	lastErr    error
	identity   identity.Identity
	inFlight   bool
	generation uint64
	onAuth     Continuation
}

// NewOrchestrator creates an Orchestrator in INIT. placeholder is the
// credential set on provisioned identities; it is never used to sign in.
func NewOrchestrator(provider identity.Provider, probe Prober, placeholder string, rec metrics.Recorder, logger *logger.Logger) *Orchestrator {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Orchestrator{
		provider:    provider,
		probe:       probe,
		placeholder: placeholder,
		metrics:     rec,
		logger:      logger,
	}
}

// Begin probes email and requests the matching challenge. onAuth replaces
// any previous continuation and is consumed by the first successful
// confirmation.
func (o *Orchestrator) Begin(ctx context.Context, email string, onAuth Continuation) error {
	o.mu.Lock()
	if o.inFlight || (o.state != model.StateInit && o.state != model.StateFailed) {
		o.mu.Unlock()
		return model.ErrAlreadyInProgress
	}
	o.resetLocked()
	o.generation++
	gen := o.generation
	o.inFlight = true
	o.email = email
	o.onAuth = onAuth
	o.state = model.StateProbing
	o.mu.Unlock()

	o.logger.Debug("Challenge orchestrator: probing identity",
		"email", email)

	existence, err := o.probe.Exists(ctx, email)
	o.metrics.ProbeResult(existence.String())

	switch existence {
	case identity.NotFound:
		return o.signUp(ctx, gen, email, metrics.PathSignUp)
	case identity.Exists:
		return o.signIn(ctx, gen, email)
	default:
		if err == nil {
			err = model.ErrProbeUnavailable
		}
		return o.fail(gen, err)
	}
}

func (o *Orchestrator) signUp(ctx context.Context, gen uint64, email, path string) error {
	if !o.advance(gen, model.StateSigningUp) {
		return model.ErrCancelled
	}

	ch, err := o.provider.SignUp(ctx, email, o.placeholder, map[string]string{
		identity.AttributeEmail: email,
	})

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen {
		return model.ErrCancelled
	}
	o.inFlight = false

	if err != nil {
		o.logger.Error("Challenge orchestrator: sign-up failed",
			"email", email,
			"error", err.Error())
		o.failLocked(err)
		return err
	}

	o.challenge = ch
	o.path = path
	o.state = model.StateAwaitingOTPSignUp
	o.metrics.OnboardingPath(path)

	o.logger.Info("Challenge orchestrator: sign-up code requested",
		"email", email,
		"path", path)

	return nil
}

func (o *Orchestrator) signIn(ctx context.Context, gen uint64, email string) error {
	if !o.advance(gen, model.StateSigningIn) {
		return model.ErrCancelled
	}

	res, err := o.provider.SignIn(ctx, email, identity.FactorEmailOTP)

	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return model.ErrCancelled
	}

	if err != nil {
		o.inFlight = false
		o.failLocked(err)
		o.mu.Unlock()
		o.logger.Error("Challenge orchestrator: sign-in failed",
			"email", email,
			"error", err.Error())
		return err
	}

	switch res.Next {
	case identity.StepConfirmSignInCode:
		o.inFlight = false
		o.challenge = res.Challenge
		o.path = metrics.PathSignIn
		o.state = model.StateAwaitingOTPSignIn
		o.metrics.OnboardingPath(metrics.PathSignIn)
		o.mu.Unlock()

		o.logger.Info("Challenge orchestrator: sign-in code requested",
			"email", email)
		return nil

	case identity.StepContinueFirstFactorSelection:
		o.state = model.StateRequireFactorReselection
		o.mu.Unlock()

		// Partially provisioned identity: provision it again.
		o.logger.Info("Challenge orchestrator: no email factor, re-provisioning identity",
			"email", email)
		return o.signUp(ctx, gen, email, metrics.PathReselection)

	default:
		err = model.NewProviderError(model.ProviderOther, "sign_in", fmt.Errorf("unexpected next step %d", res.Next))
		o.inFlight = false
		o.failLocked(err)
		o.mu.Unlock()
		return err
	}
}

// ConfirmChallenge submits the one-time code. A wrong code or an unavailable
// provider keeps the pending challenge; a lockout fails the attempt.
func (o *Orchestrator) ConfirmChallenge(ctx context.Context, code string) error {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return model.ErrAlreadyInProgress
	}
	if !o.state.AwaitingOTP() {
		o.mu.Unlock()
		return model.ErrNoPendingChallenge
	}
	awaiting := o.state
	challenge := o.challenge
	gen := o.generation
	o.state = model.StateConfirming
	o.inFlight = true
	o.mu.Unlock()

	id, err := o.provider.ConfirmChallenge(ctx, challenge, code)

	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return model.ErrCancelled
	}
	o.inFlight = false

	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidCode):
			var retry *identity.RetryError
			if errors.As(err, &retry) {
				o.challenge = retry.Challenge
			}
			o.state = awaiting
			o.attempts++
			o.lastErr = err
			o.metrics.Confirmation(string(model.ProviderInvalidCode))
		case errors.Is(err, model.ErrProviderDown):
			o.state = awaiting
			o.lastErr = err
			o.metrics.Confirmation(string(model.ProviderUnavailable))
		case errors.Is(err, model.ErrTooManyAttempts):
			o.failLocked(err)
			o.metrics.Confirmation(string(model.ProviderTooManyAttempts))
		default:
			o.failLocked(err)
			o.metrics.Confirmation("failed")
		}
		attempts := o.attempts
		state := o.state
		o.mu.Unlock()

		o.logger.Warn("Challenge orchestrator: confirmation rejected",
			"email", challenge.Email,
			"state", state.String(),
			"attempts", attempts,
			"error", err.Error())
		return err
	}

	o.state = model.StateAuthenticated
	o.identity = id
	o.lastErr = nil
	cont := o.onAuth
	o.onAuth = nil
	o.metrics.Confirmation("ok")
	o.mu.Unlock()

	o.logger.Info("Challenge orchestrator: identity authenticated",
		"email", challenge.Email,
		"identity_id", id.ID)

	if cont != nil {
		return cont(ctx, id)
	}
	return nil
}

// Cancel abandons the attempt and returns to INIT. Provider-side identities
// are left as they are. It has no effect once authenticated.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == model.StateAuthenticated {
		return
	}
	o.generation++
	o.resetLocked()
}

// Status returns a snapshot of the orchestrator.
func (o *Orchestrator) Status() ChallengeStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	return ChallengeStatus{
		State:    o.state,
		Email:    o.email,
		Path:     o.path,
		Attempts: o.attempts,
		Err:      o.lastErr,
		Identity: o.identity,
	}
}

func (o *Orchestrator) advance(gen uint64, to model.ChallengeState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen {
		return false
	}
	o.state = to
	return true
}

func (o *Orchestrator) fail(gen uint64, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen {
		return model.ErrCancelled
	}
	o.inFlight = false
	o.failLocked(err)
	return err
}

func (o *Orchestrator) failLocked(err error) {
	o.state = model.StateFailed
	o.lastErr = err
	o.onAuth = nil
}

func (o *Orchestrator) resetLocked() {
	o.state = model.StateInit
	o.email = ""
	o.path = ""
	o.challenge = identity.Challenge{}
	o.attempts = 0
	o.lastErr = nil
	o.identity = identity.Identity{}
	o.inFlight = false
	o.onAuth = nil
}
