package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/onboarding-server/internal/identity"
	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
)

// AccountReconciler upserts local records for an authenticated identity.
type AccountReconciler interface {
	Reconcile(ctx context.Context, identityID uuid.UUID, email string, form model.FormData) (model.Account, error)
}

// DomainChecker validates an email before any provider call and returns it
// normalized.
type DomainChecker interface {
	Check(email string) (string, error)
}

// ActionInput is what a deferred action sees.
type ActionInput struct {
	SessionID uuid.UUID
	Account   model.Account
	Form      model.FormData
}

// Action is deferred work that runs once identity is confirmed and the
// account reconciled. Run may be retried after a failure.
type Action interface {
	Name() string
	Run(ctx context.Context, in ActionInput) error
}

type pending struct {
	email  string
	form   model.FormData
	action Action
}

// SessionStatus is a snapshot of a Session.
type SessionStatus struct {
	ID        uuid.UUID
	Challenge ChallengeStatus
	Completed bool
	Account   *model.Account
	Err       error
}

// Session holds one client's onboarding attempt: the pending email, the
// submitted form and a single deferred action.
type Session struct {
	id           uuid.UUID
	orchestrator *Orchestrator
	reconciler   AccountReconciler
	policy       DomainChecker
	logger       *logger.Logger

	// mu guards the fields below and is never held across provider,
	// store or action calls.
	mu         sync.Mutex
	pending    *pending
	identity   identity.Identity
	account    *model.Account
	completing bool
	fired      bool
	closed     bool
	lastErr    error
}

func NewSession(id uuid.UUID, orchestrator *Orchestrator, reconciler AccountReconciler, policy DomainChecker, logger *logger.Logger) *Session {
	return &Session{
		id:           id,
		orchestrator: orchestrator,
		reconciler:   reconciler,
		policy:       policy,
		logger:       logger.With("session_id", id),
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Begin checks the email domain and starts the challenge. action runs once
// after authentication; nil means nothing beyond reconciliation.
func (s *Session) Begin(ctx context.Context, email string, form model.FormData, action Action) error {
	normalized, err := s.policy.Check(email)
	if err != nil {
		s.logger.Info("Onboarding session: email rejected before provider call",
			"error", err.Error())
		return err
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return model.ErrSessionClosed
	case s.fired:
		s.mu.Unlock()
		return model.ErrAlreadyInProgress
	}
	s.mu.Unlock()

	p := pending{email: normalized, form: form.Clone(), action: action}

	return s.orchestrator.Begin(ctx, normalized, func(ctx context.Context, id identity.Identity) error {
		return s.finish(ctx, id, p)
	})
}

// Confirm submits the one-time code. On success the account is reconciled
// and the deferred action runs before Confirm returns.
func (s *Session) Confirm(ctx context.Context, code string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return model.ErrSessionClosed
	}

	return s.orchestrator.ConfirmChallenge(ctx, code)
}

// Complete retries reconciliation and the deferred action after a failure.
// It is a no-op once both have succeeded.
func (s *Session) Complete(ctx context.Context) (model.Account, error) {
	return s.complete(ctx)
}

// Cancel closes the session and discards the deferred action.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if !s.fired {
		s.pending = nil
		s.logger.Debug("Onboarding session: cancelled")
	}
	s.orchestrator.Cancel()
}

// Completed reports whether the deferred action has run.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionStatus{
		ID:        s.id,
		Challenge: s.orchestrator.Status(),
		Completed: s.fired,
		Err:       s.lastErr,
	}
	if s.account != nil {
		acct := *s.account
		st.Account = &acct
	}
	return st
}

func (s *Session) finish(ctx context.Context, id identity.Identity, p pending) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.ErrSessionClosed
	}
	s.identity = id
	s.pending = &p
	s.mu.Unlock()

	_, err := s.complete(ctx)
	return err
}

// complete reconciles the account and runs the deferred action. Only one
// call proceeds at a time; a concurrent one gets ErrAlreadyInProgress.
func (s *Session) complete(ctx context.Context) (model.Account, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return model.Account{}, model.ErrSessionClosed
	case s.pending == nil:
		s.mu.Unlock()
		return model.Account{}, model.ErrNotAuthenticated
	case s.fired:
		acct := *s.account
		s.mu.Unlock()
		return acct, nil
	case s.completing:
		s.mu.Unlock()
		return model.Account{}, model.ErrAlreadyInProgress
	}
	s.completing = true
	p := *s.pending
	id := s.identity
	account := s.account
	s.mu.Unlock()

	account, err := s.run(ctx, id, p, account)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.completing = false
	s.account = account
	if err != nil {
		s.lastErr = err
		return model.Account{}, err
	}

	// A Cancel that arrived mid-run cannot undo the action.
	s.fired = true
	s.lastErr = nil
	s.logger.Info("Onboarding session: completed",
		"user_id", account.User.ID,
		"company_id", account.Company.ID)
	return *account, nil
}

// run returns the reconciled account even when the action fails, so a retry
// only repeats the action.
func (s *Session) run(ctx context.Context, id identity.Identity, p pending, account *model.Account) (*model.Account, error) {
	if account == nil {
		acct, err := s.reconciler.Reconcile(ctx, id.ID, p.email, p.form)
		if err != nil {
			return nil, err
		}
		account = &acct
	}

	if p.action != nil {
		err := p.action.Run(ctx, ActionInput{SessionID: s.id, Account: *account, Form: p.form})
		if err != nil {
			s.logger.Error("Onboarding session: deferred action failed",
				"action", p.action.Name(),
				"error", err.Error())
			return account, fmt.Errorf("failed to run %s: %w", p.action.Name(), err)
		}
	}

	return account, nil
}
