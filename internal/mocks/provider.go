package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/onboarding-server/internal/identity"
)

// Provider is a mock of identity.Provider.
type Provider struct {
	mock.Mock
}

var _ identity.Provider = (*Provider)(nil)

func (m *Provider) ProbeSignIn(ctx context.Context, email, credential string) (identity.Trial, error) {
	ret := m.Called(ctx, email, credential)
	return ret.Get(0).(identity.Trial), ret.Error(1)
}

func (m *Provider) SignUp(ctx context.Context, email, credential string, attributes map[string]string) (identity.Challenge, error) {
	ret := m.Called(ctx, email, credential, attributes)
	return ret.Get(0).(identity.Challenge), ret.Error(1)
}

func (m *Provider) SignIn(ctx context.Context, email string, factor identity.Factor) (identity.SignInResult, error) {
	ret := m.Called(ctx, email, factor)
	return ret.Get(0).(identity.SignInResult), ret.Error(1)
}

func (m *Provider) ConfirmChallenge(ctx context.Context, challenge identity.Challenge, code string) (identity.Identity, error) {
	ret := m.Called(ctx, challenge, code)
	return ret.Get(0).(identity.Identity), ret.Error(1)
}

func (m *Provider) SignOut(ctx context.Context, trial identity.Trial) error {
	ret := m.Called(ctx, trial)
	return ret.Error(0)
}

// NewProvider creates a Provider mock that asserts expectations on cleanup.
func NewProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *Provider {
	m := &Provider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
