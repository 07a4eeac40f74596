package middleware

import (
	"context"
	"net"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/dtroode/onboarding-server/internal/testutil"
)

func peerContext(addr string) context.Context {
	tcp, _ := net.ResolveTCPAddr("tcp", addr)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcp})
}

func TestPeerRateLimiter_Limit(t *testing.T) {
	l := NewPeerRateLimiter(0.001, 2, testutil.MakeNoopLogger())

	alice := peerContext("10.0.0.1:5000")
	require.NoError(t, l.Limit(alice))
	require.NoError(t, l.Limit(peerContext("10.0.0.1:5001")))
	assert.Error(t, l.Limit(alice))

	// Other hosts keep their own bucket.
	assert.NoError(t, l.Limit(peerContext("10.0.0.2:5000")))
	assert.Equal(t, 2, l.Peers())
}

func TestPeerRateLimiter_Interceptor(t *testing.T) {
	l := NewPeerRateLimiter(0.001, 1, testutil.MakeNoopLogger())
	interceptor := ratelimit.UnaryServerInterceptor(l)

	info := &grpc.UnaryServerInfo{FullMethod: "/onboarding.v1.Onboarding/Begin"}
	handler := func(context.Context, any) (any, error) { return "ok", nil }
	ctx := peerContext("10.0.0.3:1234")

	resp, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = interceptor(ctx, nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestPeerRateLimiter_Defaults(t *testing.T) {
	l := NewPeerRateLimiter(0, 0, testutil.MakeNoopLogger())
	assert.Equal(t, DefaultRateLimitBurst, l.burst)
}
