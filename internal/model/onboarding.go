package model

import (
	"fmt"
	"strings"
)

// ChallengeState is a state of the onboarding state machine.
type ChallengeState int

const (
	StateInit ChallengeState = iota
	StateProbing
	StateSigningUp
	StateSigningIn
	StateAwaitingOTPSignUp
	StateAwaitingOTPSignIn
	StateRequireFactorReselection
	StateConfirming
	StateAuthenticated
	StateFailed
)

var stateNames = [...]string{
	StateInit:                     "INIT",
	StateProbing:                  "PROBING",
	StateSigningUp:                "SIGNING_UP",
	StateSigningIn:                "SIGNING_IN",
	StateAwaitingOTPSignUp:        "AWAITING_OTP_SIGNUP",
	StateAwaitingOTPSignIn:        "AWAITING_OTP_SIGNIN",
	StateRequireFactorReselection: "REQUIRE_FACTOR_RESELECTION",
	StateConfirming:               "CONFIRMING",
	StateAuthenticated:            "AUTHENTICATED",
	StateFailed:                   "FAILED",
}

func (s ChallengeState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("ChallengeState(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible without a restart.
func (s ChallengeState) Terminal() bool {
	return s == StateAuthenticated || s == StateFailed
}

// AwaitingOTP reports whether the state waits for a one-time code.
func (s ChallengeState) AwaitingOTP() bool {
	return s == StateAwaitingOTPSignUp || s == StateAwaitingOTPSignIn
}

// Form keys understood by reconciliation.
const (
	FormKeyName        = "name"
	FormKeyJobTitle    = "jobTitle"
	FormKeyCompanyName = "companyName"
)

// FormData is the untyped payload a caller submits alongside an email.
type FormData map[string]any

// String returns the trimmed string value stored under key.
func (f FormData) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Clone returns a shallow copy of the form.
func (f FormData) Clone() FormData {
	if f == nil {
		return nil
	}
	out := make(FormData, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Account is a reconciled user together with its company.
type Account struct {
	User    User
	Company Company
}
