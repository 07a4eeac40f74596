package middleware

import (
	"context"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/onboarding-server/internal/logger"
)

// RecoveryHandler logs a handler panic and turns it into an Internal error.
func RecoveryHandler(logger *logger.Logger) func(ctx context.Context, p any) error {
	return func(ctx context.Context, p any) error {
		logger.Error("gRPC handler panicked",
			"peer", peerAddr(ctx),
			"panic", p,
			"stack", string(debug.Stack()))
		return status.Error(codes.Internal, "internal server error")
	}
}
