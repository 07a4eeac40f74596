package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dtroode/onboarding-server/internal/identity"
	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/metrics"
	"github.com/dtroode/onboarding-server/internal/model"
)

const (
	DefaultSessionTTL  = 15 * time.Minute
	DefaultMaxSessions = 10000
)

// TokenIssuer issues API tokens for an onboarded user.
type TokenIssuer interface {
	Issue(ctx context.Context, userID uuid.UUID) (accessToken string, refreshToken string, err error)
}

// OnboardingDeps are the collaborators of the onboarding service.
// Archive and Schedules may be nil.
type OnboardingDeps struct {
	Provider    identity.Provider
	Probe       Prober
	Placeholder string
	Reconciler  AccountReconciler
	Policy      DomainChecker
	Archive     *PersistForm
	Schedules   model.ScheduleRequestStore
	Tokens      TokenIssuer
	Metrics     metrics.Recorder
	SessionTTL  time.Duration
	MaxSessions int
}

// BeginRequest starts or restarts an onboarding session. A zero SessionID
// creates a new session.
type BeginRequest struct {
	SessionID uuid.UUID
	Email     string
	Form      model.FormData
	FollowUp  *model.ScheduleDraft
}

// SessionView is what callers learn about a session.
type SessionView struct {
	ID           uuid.UUID
	State        model.ChallengeState
	Email        string
	Attempts     int
	Completed    bool
	Account      *model.Account
	AccessToken  string
	RefreshToken string
}

// Onboarding keeps live sessions in memory. Idle sessions expire and are
// cancelled; completed sessions are dropped once tokens are issued.
type Onboarding struct {
	deps     OnboardingDeps
	sessions *expirable.LRU[uuid.UUID, *Session]
	logger   *logger.Logger
}

func NewOnboarding(deps OnboardingDeps, logger *logger.Logger) *Onboarding {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = DefaultSessionTTL
	}
	if deps.MaxSessions <= 0 {
		deps.MaxSessions = DefaultMaxSessions
	}

	o := &Onboarding{deps: deps, logger: logger}
	o.sessions = expirable.NewLRU[uuid.UUID, *Session](deps.MaxSessions, func(_ uuid.UUID, s *Session) {
		// Cancel only flips flags, so it never waits on a running completion.
		s.Cancel()
	}, deps.SessionTTL)

	return o
}

func (o *Onboarding) Begin(ctx context.Context, req BeginRequest) (SessionView, error) {
	if req.FollowUp != nil {
		if err := req.FollowUp.Validate(); err != nil {
			return SessionView{}, err
		}
		if o.deps.Schedules == nil {
			return SessionView{}, model.NewValidationError("follow_up", "scheduling is not available")
		}
	}

	sess, err := o.session(req.SessionID)
	if err != nil {
		return SessionView{}, err
	}

	var action Action
	if o.deps.Archive != nil {
		action = o.deps.Archive
	}
	if req.FollowUp != nil {
		action = NewRequestSchedule(o.deps.Schedules, o.deps.Archive, *req.FollowUp, o.logger)
	}

	err = sess.Begin(ctx, req.Email, req.Form, action)
	return o.view(sess), err
}

func (o *Onboarding) Confirm(ctx context.Context, id uuid.UUID, code string) (SessionView, error) {
	sess, err := o.lookup(id)
	if err != nil {
		return SessionView{}, err
	}

	if err := sess.Confirm(ctx, code); err != nil {
		return o.view(sess), err
	}
	return o.settle(ctx, sess)
}

// Complete retries the post-authentication steps of a session.
func (o *Onboarding) Complete(ctx context.Context, id uuid.UUID) (SessionView, error) {
	sess, err := o.lookup(id)
	if err != nil {
		return SessionView{}, err
	}

	if _, err := sess.Complete(ctx); err != nil {
		return o.view(sess), err
	}
	return o.settle(ctx, sess)
}

func (o *Onboarding) Cancel(id uuid.UUID) error {
	if !o.sessions.Remove(id) {
		return model.ErrSessionNotFound
	}
	return nil
}

func (o *Onboarding) Status(id uuid.UUID) (SessionView, error) {
	sess, err := o.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	return o.view(sess), nil
}

// Len returns the number of live sessions.
func (o *Onboarding) Len() int {
	return o.sessions.Len()
}

func (o *Onboarding) settle(ctx context.Context, sess *Session) (SessionView, error) {
	view := o.view(sess)
	if !view.Completed || view.Account == nil {
		return view, nil
	}

	if o.deps.Tokens != nil {
		access, refresh, err := o.deps.Tokens.Issue(ctx, view.Account.User.ID)
		if err != nil {
			o.logger.Error("Onboarding service: failed to issue tokens",
				"session_id", sess.ID(),
				"user_id", view.Account.User.ID,
				"error", err.Error())
			return view, fmt.Errorf("failed to issue tokens: %w", err)
		}
		view.AccessToken = access
		view.RefreshToken = refresh
	}

	o.sessions.Remove(sess.ID())
	return view, nil
}

func (o *Onboarding) session(id uuid.UUID) (*Session, error) {
	if id != uuid.Nil {
		return o.lookup(id)
	}

	id = uuid.New()
	orchestrator := NewOrchestrator(o.deps.Provider, o.deps.Probe, o.deps.Placeholder, o.deps.Metrics, o.logger)
	sess := NewSession(id, orchestrator, o.deps.Reconciler, o.deps.Policy, o.logger)
	o.sessions.Add(id, sess)

	return sess, nil
}

func (o *Onboarding) lookup(id uuid.UUID) (*Session, error) {
	sess, ok := o.sessions.Get(id)
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	// Re-adding refreshes the idle deadline.
	o.sessions.Add(id, sess)
	return sess, nil
}

func (o *Onboarding) view(sess *Session) SessionView {
	st := sess.Status()
	return SessionView{
		ID:        st.ID,
		State:     st.Challenge.State,
		Email:     st.Challenge.Email,
		Attempts:  st.Challenge.Attempts,
		Completed: st.Completed,
		Account:   st.Account,
	}
}
