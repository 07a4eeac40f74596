package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "lower-cases", in: "Alice@NewCo.com", want: "alice@newco.com"},
		{name: "trims spaces", in: "  bob@newco.com ", want: "bob@newco.com"},
		{name: "empty", in: "", wantErr: true},
		{name: "no at", in: "alice", wantErr: true},
		{name: "display name", in: "Alice <alice@newco.com>", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeEmail(tt.in)
			if tt.wantErr {
				var vErr *ValidationError
				require.Error(t, err)
				assert.True(t, errors.As(err, &vErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmailDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "newco.com", EmailDomain("alice@NewCo.com"))
	assert.Equal(t, "", EmailDomain("alice@"))
	assert.Equal(t, "", EmailDomain("alice"))
}

func TestScheduleDraft_Validate(t *testing.T) {
	t.Parallel()

	assert.Error(t, ScheduleDraft{}.Validate())
	assert.Error(t, ScheduleDraft{Type: "demo"}.Validate())
}

func TestChallengeState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AWAITING_OTP_SIGNUP", StateAwaitingOTPSignUp.String())
	assert.Equal(t, "ChallengeState(42)", ChallengeState(42).String())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateAwaitingOTPSignIn.AwaitingOTP())
	assert.False(t, StateConfirming.AwaitingOTP())
}

func TestFormData_String(t *testing.T) {
	t.Parallel()

	f := FormData{FormKeyName: "  Alice ", "age": 3.0, FormKeyJobTitle: nil}
	assert.Equal(t, "Alice", f.String(FormKeyName))
	assert.Equal(t, "", f.String("age"))
	assert.Equal(t, "", f.String(FormKeyJobTitle))
	assert.Equal(t, "", f.String("missing"))
}
