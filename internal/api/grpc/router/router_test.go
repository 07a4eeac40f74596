package router

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	grpccontext "github.com/dtroode/onboarding-server/internal/api/grpc/context"
	"github.com/dtroode/onboarding-server/internal/api/grpc/middleware"
	"github.com/dtroode/onboarding-server/internal/api/grpc/proto"
	"github.com/dtroode/onboarding-server/internal/identity"
	memidentity "github.com/dtroode/onboarding-server/internal/identity/memory"
	"github.com/dtroode/onboarding-server/internal/policy"
	"github.com/dtroode/onboarding-server/internal/repository/memory"
	"github.com/dtroode/onboarding-server/internal/service"
	"github.com/dtroode/onboarding-server/internal/testutil"
	"github.com/dtroode/onboarding-server/internal/token"
)

const testCode = "123456"

type testClients struct {
	onboarding *proto.Client
	account    *proto.Client
}

func startServer(t *testing.T, opts Options) testClients {
	t.Helper()
	log := testutil.MakeNoopLogger()

	provider := memidentity.New(memidentity.WithCodeGenerator(func() string { return testCode }))
	users, companies := memory.NewUsers(), memory.NewCompanies()
	requests := memory.NewScheduleRequests()
	tokens := service.NewTokenService(token.NewJWT("test-secret"), memory.NewRefreshTokens(), time.Hour, log)

	onboarding := service.NewOnboarding(service.OnboardingDeps{
		Provider:    provider,
		Probe:       identity.NewProbe(provider, "probe-sentinel", log),
		Placeholder: "Placeholder-Secret-1!",
		Reconciler:  service.NewReconciler(users, companies, nil, log),
		Policy:      policy.New(policy.File{}),
		Archive:     service.NewPersistForm(memory.NewObjects(), log),
		Schedules:   requests,
		Tokens:      tokens,
	}, log)
	account := service.NewAccount(users, companies, requests, log)

	s := New(onboarding, account, tokens, grpccontext.NewManager(), opts, log).Register()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return testClients{
		onboarding: proto.NewOnboardingClient(conn),
		account:    proto.NewAccountClient(conn),
	}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestRouter_OnboardingToAccount(t *testing.T) {
	c := startServer(t, Options{CallTimeout: 5 * time.Second})
	ctx := context.Background()

	begun, err := c.onboarding.Call(ctx, proto.MethodBegin, mustStruct(t, map[string]any{
		"email": "alice@newco.com",
		"form":  map[string]any{"name": "Alice", "jobTitle": "CTO"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "AWAITING_OTP_SIGNUP", begun.GetFields()["state"].GetStringValue())
	sessionID := begun.GetFields()["session_id"].GetStringValue()

	_, err = c.onboarding.Call(ctx, proto.MethodConfirmChallenge, mustStruct(t, map[string]any{
		"session_id": sessionID,
		"code":       "000000",
	}))
	st := status.Convert(err)
	require.Equal(t, codes.InvalidArgument, st.Code())
	require.Len(t, st.Details(), 1)

	done, err := c.onboarding.Call(ctx, proto.MethodConfirmChallenge, mustStruct(t, map[string]any{
		"session_id": sessionID,
		"code":       testCode,
	}))
	require.NoError(t, err)
	assert.True(t, done.GetFields()["completed"].GetBoolValue())
	assert.Equal(t, "Newco", done.GetFields()["company"].GetStructValue().GetFields()["name"].GetStringValue())
	access := done.GetFields()["access_token"].GetStringValue()
	refresh := done.GetFields()["refresh_token"].GetStringValue()
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	_, err = c.account.Call(ctx, proto.MethodGetProfile, mustStruct(t, nil))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+access)
	profile, err := c.account.Call(authed, proto.MethodGetProfile, mustStruct(t, nil))
	require.NoError(t, err)
	user := profile.GetFields()["user"].GetStructValue().GetFields()
	assert.Equal(t, "alice@newco.com", user["email"].GetStringValue())
	assert.Equal(t, "CTO", user["job_title"].GetStringValue())

	rotated, err := c.account.Call(ctx, proto.MethodRefreshToken, mustStruct(t, map[string]any{"refresh_token": refresh}))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.GetFields()["access_token"].GetStringValue())

	_, err = c.account.Call(ctx, proto.MethodRefreshToken, mustStruct(t, map[string]any{"refresh_token": refresh}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = c.account.Call(authed, proto.MethodSignOut, mustStruct(t, nil))
	require.NoError(t, err)
	_, err = c.account.Call(ctx, proto.MethodRefreshToken, mustStruct(t, map[string]any{
		"refresh_token": rotated.GetFields()["refresh_token"].GetStringValue(),
	}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = c.onboarding.Call(ctx, proto.MethodGetSession, mustStruct(t, map[string]any{"session_id": sessionID}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRouter_FreeMailRejected(t *testing.T) {
	c := startServer(t, Options{})

	_, err := c.onboarding.Call(context.Background(), proto.MethodBegin, mustStruct(t, map[string]any{
		"email": "someone@gmail.com",
	}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestRouter_RateLimitsOnboardingOnly(t *testing.T) {
	c := startServer(t, Options{Limiter: middleware.NewPeerRateLimiter(0.001, 1, testutil.MakeNoopLogger())})
	ctx := context.Background()

	_, err := c.onboarding.Call(ctx, proto.MethodBegin, mustStruct(t, map[string]any{"email": "a@newco.com"}))
	require.NoError(t, err)

	_, err = c.onboarding.Call(ctx, proto.MethodBegin, mustStruct(t, map[string]any{"email": "b@newco.com"}))
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = c.account.Call(ctx, proto.MethodRefreshToken, mustStruct(t, map[string]any{"refresh_token": "x"}))
	assert.NotEqual(t, codes.ResourceExhausted, status.Code(err))
}
