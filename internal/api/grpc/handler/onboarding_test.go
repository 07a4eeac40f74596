package handler

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
	"github.com/dtroode/onboarding-server/internal/service"
	"github.com/dtroode/onboarding-server/internal/testutil"
)

type stubOnboarding struct {
	begin     service.BeginRequest
	view      service.SessionView
	err       error
	confirmed string
	cancelled uuid.UUID
}

func (s *stubOnboarding) Begin(_ context.Context, req service.BeginRequest) (service.SessionView, error) {
	s.begin = req
	return s.view, s.err
}

func (s *stubOnboarding) Confirm(_ context.Context, _ uuid.UUID, code string) (service.SessionView, error) {
	s.confirmed = code
	return s.view, s.err
}

func (s *stubOnboarding) Complete(context.Context, uuid.UUID) (service.SessionView, error) {
	return s.view, s.err
}

func (s *stubOnboarding) Cancel(id uuid.UUID) error {
	s.cancelled = id
	return s.err
}

func (s *stubOnboarding) Status(uuid.UUID) (service.SessionView, error) {
	return s.view, s.err
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestOnboarding_Begin(t *testing.T) {
	id := uuid.New()
	stub := &stubOnboarding{view: service.SessionView{
		ID:    id,
		State: model.StateAwaitingOTPSignUp,
		Email: "alice@newco.com",
	}}
	h := NewOnboarding(stub, testutil.MakeNoopLogger())

	resp, err := h.Begin(context.Background(), mustStruct(t, map[string]any{
		"email": "alice@newco.com",
		"form":  map[string]any{"name": "Alice", "jobTitle": "CTO"},
		"follow_up": map[string]any{
			"type":     "demo",
			"windows":  []any{map[string]any{"start": "2026-11-02T10:00:00Z", "end": "2026-11-02T11:00:00Z"}},
			"metadata": `{"source":"landing"}`,
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, "alice@newco.com", stub.begin.Email)
	assert.Equal(t, uuid.Nil, stub.begin.SessionID)
	assert.Equal(t, "Alice", stub.begin.Form.String(model.FormKeyName))
	require.NotNil(t, stub.begin.FollowUp)
	assert.Equal(t, "demo", stub.begin.FollowUp.Type)
	assert.Len(t, stub.begin.FollowUp.Windows, 1)
	assert.Equal(t, `{"source":"landing"}`, string(stub.begin.FollowUp.Metadata))

	fields := resp.GetFields()
	assert.Equal(t, id.String(), fields["session_id"].GetStringValue())
	assert.Equal(t, "AWAITING_OTP_SIGNUP", fields["state"].GetStringValue())
	assert.Equal(t, "We sent a verification code to your email.", fields["message"].GetStringValue())
}

func TestOnboarding_Begin_BadInput(t *testing.T) {
	h := NewOnboarding(&stubOnboarding{}, testutil.MakeNoopLogger())

	tests := []struct {
		name string
		req  map[string]any
	}{
		{name: "session id", req: map[string]any{"session_id": "nope", "email": "a@b.com"}},
		{name: "window start", req: map[string]any{
			"email":     "a@b.com",
			"follow_up": map[string]any{"type": "demo", "windows": []any{map[string]any{"start": "tomorrow", "end": "2026-11-02T11:00:00Z"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Begin(context.Background(), mustStruct(t, tt.req))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestOnboarding_ConfirmChallenge_InvalidCodeCarriesView(t *testing.T) {
	id := uuid.New()
	stub := &stubOnboarding{
		view: service.SessionView{ID: id, State: model.StateAwaitingOTPSignIn, Attempts: 1},
		err:  model.NewProviderError(model.ProviderInvalidCode, "confirm", nil),
	}
	h := NewOnboarding(stub, testutil.MakeNoopLogger())

	_, err := h.ConfirmChallenge(context.Background(), mustStruct(t, map[string]any{
		"session_id": id.String(),
		"code":       "000000",
	}))
	require.Error(t, err)
	assert.Equal(t, "000000", stub.confirmed)

	st := status.Convert(err)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	require.Len(t, st.Details(), 1)
	detail := st.Details()[0].(*structpb.Struct)
	assert.Equal(t, float64(1), detail.GetFields()["attempts"].GetNumberValue())
	assert.Equal(t, "AWAITING_OTP_SIGNIN", detail.GetFields()["state"].GetStringValue())
}

func TestOnboarding_Complete_AlreadyInProgressLoggedAsError(t *testing.T) {
	id := uuid.New()
	stub := &stubOnboarding{
		view: service.SessionView{ID: id, State: model.StateAuthenticated},
		err:  model.ErrAlreadyInProgress,
	}
	var buf bytes.Buffer
	h := NewOnboarding(stub, logger.NewWithWriter(&buf, int(slog.LevelDebug)))

	_, err := h.Complete(context.Background(), mustStruct(t, map[string]any{"session_id": id.String()}))
	require.Error(t, err)

	st := status.Convert(err)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "internal server error", st.Message())
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "op=complete")
}

func TestOnboarding_ConfirmChallenge_Validation(t *testing.T) {
	h := NewOnboarding(&stubOnboarding{}, testutil.MakeNoopLogger())

	_, err := h.ConfirmChallenge(context.Background(), mustStruct(t, map[string]any{"code": "1"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.ConfirmChallenge(context.Background(), mustStruct(t, map[string]any{"session_id": uuid.NewString()}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestOnboarding_Complete_ReturnsTokens(t *testing.T) {
	userID, companyID := uuid.New(), uuid.New()
	stub := &stubOnboarding{view: service.SessionView{
		ID:        uuid.New(),
		State:     model.StateAuthenticated,
		Completed: true,
		Account: &model.Account{
			User:    model.User{ID: userID, Email: "bob@newco.com", CompanyID: &companyID},
			Company: model.Company{ID: companyID, Domain: "newco.com", Name: "Newco"},
		},
		AccessToken:  "access",
		RefreshToken: "refresh",
	}}
	h := NewOnboarding(stub, testutil.MakeNoopLogger())

	resp, err := h.Complete(context.Background(), mustStruct(t, map[string]any{"session_id": stub.view.ID.String()}))
	require.NoError(t, err)

	fields := resp.GetFields()
	assert.True(t, fields["completed"].GetBoolValue())
	assert.Equal(t, "access", fields["access_token"].GetStringValue())
	assert.Equal(t, "refresh", fields["refresh_token"].GetStringValue())
	assert.Equal(t, "Newco", fields["company"].GetStructValue().GetFields()["name"].GetStringValue())
	assert.Equal(t, companyID.String(), fields["user"].GetStructValue().GetFields()["company_id"].GetStringValue())
}

func TestOnboarding_Cancel(t *testing.T) {
	id := uuid.New()
	stub := &stubOnboarding{}
	h := NewOnboarding(stub, testutil.MakeNoopLogger())

	_, err := h.Cancel(context.Background(), mustStruct(t, map[string]any{"session_id": id.String()}))
	require.NoError(t, err)
	assert.Equal(t, id, stub.cancelled)

	stub.err = model.ErrSessionNotFound
	_, err = h.Cancel(context.Background(), mustStruct(t, map[string]any{"session_id": id.String()}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestOnboarding_GetSession_NotFound(t *testing.T) {
	h := NewOnboarding(&stubOnboarding{err: model.ErrSessionNotFound}, testutil.MakeNoopLogger())

	_, err := h.GetSession(context.Background(), mustStruct(t, map[string]any{"session_id": uuid.NewString()}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}
