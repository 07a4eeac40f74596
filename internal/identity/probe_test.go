package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/onboarding-server/internal/identity"
	"github.com/dtroode/onboarding-server/internal/mocks"
	"github.com/dtroode/onboarding-server/internal/model"
	"github.com/dtroode/onboarding-server/internal/testutil"
)

const sentinel = "Sentinel#Probe-1"

func TestProbe_Exists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		probeErr   error
		expectOut  bool
		signOutErr error
		want       identity.Existence
		wantErrIs  error
	}{
		{
			name:      "trial succeeds",
			expectOut: true,
			want:      identity.Exists,
		},
		{
			name:       "trial succeeds and sign out fails",
			expectOut:  true,
			signOutErr: errors.New("sign out failed"),
			want:       identity.Exists,
		},
		{
			name:     "wrong credential means exists",
			probeErr: model.NewProviderError(model.ProviderWrongCredential, "probe", errors.New("incorrect")),
			want:     identity.Exists,
		},
		{
			name:     "challenge required means exists",
			probeErr: model.NewProviderError(model.ProviderChallengeRequired, "probe", nil),
			want:     identity.Exists,
		},
		{
			name:     "other provider error means exists",
			probeErr: model.NewProviderError(model.ProviderOther, "probe", errors.New("weird")),
			want:     identity.Exists,
		},
		{
			name:     "not found",
			probeErr: model.NewProviderError(model.ProviderNotFound, "probe", nil),
			want:     identity.NotFound,
		},
		{
			name:      "transport failure",
			probeErr:  model.NewProviderError(model.ProviderUnavailable, "probe", errors.New("dial tcp")),
			want:      identity.Unavailable,
			wantErrIs: model.ErrProbeUnavailable,
		},
		{
			name:      "deadline exceeded",
			probeErr:  context.DeadlineExceeded,
			want:      identity.Unavailable,
			wantErrIs: model.ErrProbeUnavailable,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := mocks.NewProvider(t)
			trial := identity.Trial{AccessToken: "trial-token"}
			if tt.probeErr != nil {
				trial = identity.Trial{}
			}
			provider.On("ProbeSignIn", mock.Anything, "alice@newco.com", sentinel).Return(trial, tt.probeErr).Once()
			if tt.expectOut {
				provider.On("SignOut", mock.Anything, trial).Return(tt.signOutErr).Once()
			}

			p := identity.NewProbe(provider, sentinel, testutil.MakeNoopLogger())
			got, err := p.Exists(context.Background(), "alice@newco.com")

			assert.Equal(t, tt.want, got)
			if tt.wantErrIs != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestExistence_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exists", identity.Exists.String())
	assert.Equal(t, "not_found", identity.NotFound.String())
	assert.Equal(t, "unavailable", identity.Unavailable.String())
}
