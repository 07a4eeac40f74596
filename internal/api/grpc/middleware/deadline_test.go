package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/onboarding-server/internal/testutil"
)

func TestDeadline(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}

	var got time.Time
	handler := func(ctx context.Context, _ any) (any, error) {
		got, _ = ctx.Deadline()
		return nil, nil
	}

	_, err := Deadline(time.Second)(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Second), got, 500*time.Millisecond)

	got = time.Time{}
	_, err = Deadline(0)(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestRecoveryHandler(t *testing.T) {
	err := RecoveryHandler(testutil.MakeNoopLogger())(context.Background(), errors.New("nil map"))
	assert.Equal(t, codes.Internal, status.Code(err))
}
