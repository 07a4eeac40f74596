package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/onboarding-server/internal/model"
)

type errorMapping struct {
	target  error
	code    codes.Code
	message string
}

// Messages are shown to end users. Provider details only go to logs.
var errorMappings = []errorMapping{
	{model.ErrDomainNotAllowed, codes.PermissionDenied, "Please use your work email address."},
	{model.ErrProbeUnavailable, codes.Unavailable, "We could not reach the sign-in service. Please try again in a moment."},
	{model.ErrProviderDown, codes.Unavailable, "We could not reach the sign-in service. Please try again in a moment."},
	{model.ErrInvalidCode, codes.InvalidArgument, "That code is not correct. Please check it and try again."},
	{model.ErrTooManyAttempts, codes.ResourceExhausted, "Too many attempts. Please start over."},
	{model.ErrSignUpConflict, codes.AlreadyExists, "An account with this email already exists."},
	{model.ErrWrongCredential, codes.Unauthenticated, "We could not sign you in. Please start over."},
	{model.ErrIdentityNotFound, codes.NotFound, "We could not find an account for this email."},
	{model.ErrChallengeRequired, codes.FailedPrecondition, "Please verify your email to continue."},
	{model.ErrEmailClaimed, codes.AlreadyExists, "This email is already linked to another account."},
	{model.ErrReconciliationFailed, codes.Aborted, "We could not finish setting up your account. Please try again."},
	{model.ErrAlreadyInProgress, codes.Internal, "internal server error"},
	{model.ErrNoPendingChallenge, codes.FailedPrecondition, "There is no code to confirm. Please start over."},
	{model.ErrNotAuthenticated, codes.FailedPrecondition, "Please confirm your email first."},
	{model.ErrCancelled, codes.Canceled, "Onboarding was cancelled."},
	{model.ErrSessionNotFound, codes.NotFound, "This onboarding session has expired. Please start over."},
	{model.ErrSessionClosed, codes.FailedPrecondition, "This onboarding session is closed. Please start over."},
	{model.ErrMissingToken, codes.Unauthenticated, "Authorization is required."},
	{model.ErrInvalidToken, codes.Unauthenticated, "Your session is no longer valid. Please sign in again."},
	{model.ErrTokenRevoked, codes.Unauthenticated, "Your session is no longer valid. Please sign in again."},
	{model.ErrTokenExpired, codes.Unauthenticated, "Your session is no longer valid. Please sign in again."},
	{model.ErrTokenMismatch, codes.Unauthenticated, "Your session is no longer valid. Please sign in again."},
	{model.ErrNotFound, codes.NotFound, "Not found."},
	{context.DeadlineExceeded, codes.DeadlineExceeded, "The request took too long. Please try again."},
	{context.Canceled, codes.Canceled, "The request was cancelled."},
}

func handleError(err error) error {
	return toStatus(err).Err()
}

func toStatus(err error) *status.Status {
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return st
	}

	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		return status.New(codes.InvalidArgument, vErr.Error())
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return status.New(m.code, m.message)
		}
	}

	if _, ok := model.ProviderErrorKindOf(err); ok {
		return status.New(codes.Internal, "Something went wrong while verifying your email. Please start over.")
	}

	return status.New(codes.Internal, "internal server error")
}

// handleErrorWithDetails attaches detail to the status so clients still see
// the session state when a call fails.
func handleErrorWithDetails(err error, detail *structpb.Struct) error {
	st := toStatus(err)
	if detail == nil {
		return st.Err()
	}
	withDetails, dErr := st.WithDetails(detail)
	if dErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}
