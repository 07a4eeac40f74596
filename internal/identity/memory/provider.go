// Package memory is an in-process identity provider for local development
// and tests. It delivers one-time codes through a Mailer instead of email.
package memory

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/onboarding-server/internal/identity"
	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
)

// DefaultMaxAttempts is the number of wrong codes accepted before lockout.
const DefaultMaxAttempts = 3

// Mailer receives the codes the provider would email.
type Mailer func(email, code string)

type account struct {
	id        uuid.UUID
	email     string
	password  string
	confirmed bool
	otp       bool
}

type pending struct {
	kind     identity.ChallengeKind
	email    string
	code     string
	attempts int
}

// Provider implements identity.Provider in memory.
type Provider struct {
	mu          sync.Mutex
	accounts    map[string]*account
	sessions    map[string]*pending
	codes       map[string]string
	maxAttempts int
	mailer      Mailer
	generate    func() string
}

var _ identity.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithMaxAttempts sets the lockout threshold.
func WithMaxAttempts(n int) Option {
	return func(p *Provider) { p.maxAttempts = n }
}

// WithCodeGenerator replaces the random code generator.
func WithCodeGenerator(fn func() string) Option {
	return func(p *Provider) { p.generate = fn }
}

// WithMailer sets the code delivery hook.
func WithMailer(m Mailer) Option {
	return func(p *Provider) { p.mailer = m }
}

// LogMailer writes delivered codes to the log.
func LogMailer(l *logger.Logger) Mailer {
	return func(email, code string) {
		l.Info("Memory identity provider: one-time code issued",
			"email", email,
			"code", code)
	}
}

// New creates an empty Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		accounts:    make(map[string]*account),
		sessions:    make(map[string]*pending),
		codes:       make(map[string]string),
		maxAttempts: DefaultMaxAttempts,
		generate:    randomCode,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddAccount registers an identity. Accounts without otp have no verified
// email factor and answer sign-in with first-factor selection.
func (p *Provider) AddAccount(email, password string, otp bool) uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.New()
	p.accounts[email] = &account{id: id, email: email, password: password, confirmed: otp, otp: otp}
	return id
}

// LastCode returns the latest code delivered to email.
func (p *Provider) LastCode(email string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.codes[email]
}

func (p *Provider) ProbeSignIn(ctx context.Context, email, credential string) (identity.Trial, error) {
	if err := ctx.Err(); err != nil {
		return identity.Trial{}, model.NewProviderError(model.ProviderUnavailable, "probe", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[email]
	switch {
	case !ok:
		return identity.Trial{}, model.NewProviderError(model.ProviderNotFound, "probe", errors.New("user does not exist"))
	case !acct.confirmed:
		return identity.Trial{}, model.NewProviderError(model.ProviderChallengeRequired, "probe", errors.New("user is not confirmed"))
	case acct.password != credential:
		return identity.Trial{}, model.NewProviderError(model.ProviderWrongCredential, "probe", errors.New("incorrect username or password"))
	}

	return identity.Trial{AccessToken: "trial-" + acct.id.String()}, nil
}

func (p *Provider) SignUp(ctx context.Context, email, credential string, attributes map[string]string) (identity.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return identity.Challenge{}, model.NewProviderError(model.ProviderUnavailable, "sign_up", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[email]
	if ok && acct.confirmed && acct.otp {
		return identity.Challenge{}, model.NewProviderError(model.ProviderSignUpConflict, "sign_up", errors.New("user already exists"))
	}
	if !ok {
		acct = &account{id: uuid.New(), email: email}
		p.accounts[email] = acct
	}
	acct.password = credential
	if v := attributes[identity.AttributeEmail]; v != "" {
		acct.email = v
	}

	session := p.issueLocked(identity.ChallengeSignUpCode, email)

	return identity.Challenge{
		Kind:       identity.ChallengeSignUpCode,
		Email:      email,
		Session:    session,
		IdentityID: acct.id,
	}, nil
}

func (p *Provider) SignIn(ctx context.Context, email string, factor identity.Factor) (identity.SignInResult, error) {
	if err := ctx.Err(); err != nil {
		return identity.SignInResult{}, model.NewProviderError(model.ProviderUnavailable, "sign_in", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[email]
	if !ok {
		return identity.SignInResult{}, model.NewProviderError(model.ProviderNotFound, "sign_in", errors.New("user does not exist"))
	}
	if factor != identity.FactorEmailOTP || !acct.otp {
		return identity.SignInResult{Next: identity.StepContinueFirstFactorSelection}, nil
	}

	session := p.issueLocked(identity.ChallengeSignInCode, email)

	return identity.SignInResult{
		Next: identity.StepConfirmSignInCode,
		Challenge: identity.Challenge{
			Kind:    identity.ChallengeSignInCode,
			Email:   email,
			Session: session,
		},
	}, nil
}

func (p *Provider) ConfirmChallenge(ctx context.Context, challenge identity.Challenge, code string) (identity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return identity.Identity{}, model.NewProviderError(model.ProviderUnavailable, "confirm", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pend, ok := p.sessions[challenge.Session]
	if !ok || pend.kind != challenge.Kind || pend.email != challenge.Email {
		return identity.Identity{}, model.NewProviderError(model.ProviderOther, "confirm", errors.New("invalid session"))
	}
	if pend.attempts >= p.maxAttempts {
		delete(p.sessions, challenge.Session)
		return identity.Identity{}, model.NewProviderError(model.ProviderTooManyAttempts, "confirm", errors.New("attempt limit exceeded"))
	}
	if pend.code != code {
		pend.attempts++
		return identity.Identity{}, model.NewProviderError(model.ProviderInvalidCode, "confirm", errors.New("code mismatch"))
	}

	delete(p.sessions, challenge.Session)
	acct := p.accounts[pend.email]
	if pend.kind == identity.ChallengeSignUpCode {
		acct.confirmed = true
		acct.otp = true
	}

	return identity.Identity{ID: acct.id, Email: acct.email}, nil
}

func (p *Provider) SignOut(_ context.Context, trial identity.Trial) error {
	if trial.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}
	return nil
}

func (p *Provider) issueLocked(kind identity.ChallengeKind, email string) string {
	code := p.generate()
	session := uuid.NewString()
	p.sessions[session] = &pending{kind: kind, email: email, code: code}
	p.codes[email] = code
	if p.mailer != nil {
		p.mailer(email, code)
	}
	return session
}

func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}
