package router

import (
	"context"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/ratelimit"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"

	"github.com/dtroode/onboarding-server/internal/api/grpc/handler"
	"github.com/dtroode/onboarding-server/internal/api/grpc/middleware"
	"github.com/dtroode/onboarding-server/internal/api/grpc/proto"
	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
)

// TokenService refreshes, revokes and resolves bearer tokens.
type TokenService interface {
	handler.TokenService
	middleware.TokenService
}

// Options tune the interceptor chain.
type Options struct {
	CallTimeout time.Duration
	// Limiter throttles onboarding calls. Nil disables rate limiting.
	Limiter ratelimit.Limiter
}

// Router wires handlers and interceptors into a gRPC server.
type Router struct {
	onboarding     handler.OnboardingService
	account        handler.AccountService
	tokenService   TokenService
	contextManager model.ContextManager
	options        Options
	logger         *logger.Logger
}

func New(
	onboarding handler.OnboardingService,
	account handler.AccountService,
	tokenService TokenService,
	contextManager model.ContextManager,
	options Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		onboarding:     onboarding,
		account:        account,
		tokenService:   tokenService,
		contextManager: contextManager,
		options:        options,
		logger:         logger,
	}
}

// Token exchange calls present a refresh token instead of an access token.
var publicAccountMethods = map[string]bool{
	proto.FullMethod(proto.AccountServiceName, proto.MethodRefreshToken): true,
	proto.FullMethod(proto.AccountServiceName, proto.MethodRevokeToken):  true,
}

func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	return c.Service == proto.AccountServiceName && !publicAccountMethods[c.FullMethod()]
}

func isOnboarding(_ context.Context, c interceptors.CallMeta) bool {
	return c.Service == proto.OnboardingServiceName
}

// Register builds the gRPC server with all services and interceptors.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)

	chain := []grpc.UnaryServerInterceptor{
		recovery.UnaryServerInterceptor(
			recovery.WithRecoveryHandlerContext(middleware.RecoveryHandler(r.logger)),
		),
		logging.HandleGRPC,
		middleware.Deadline(r.options.CallTimeout),
	}
	if r.options.Limiter != nil {
		chain = append(chain, selector.UnaryServerInterceptor(
			ratelimit.UnaryServerInterceptor(r.options.Limiter),
			selector.MatchFunc(isOnboarding),
		))
	}
	chain = append(chain, selector.UnaryServerInterceptor(
		auth.UnaryServerInterceptor(authenticate.AuthFunc),
		selector.MatchFunc(requiresAuth),
	))

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(chain...))
	r.registerOnboardingRoutes(s)
	r.registerAccountRoutes(s)

	return s
}

func (r *Router) registerOnboardingRoutes(server *grpc.Server) {
	proto.RegisterOnboardingServer(server, handler.NewOnboarding(r.onboarding, r.logger))
}

func (r *Router) registerAccountRoutes(server *grpc.Server) {
	proto.RegisterAccountServer(server, handler.NewAccount(r.account, r.tokenService, r.contextManager, r.logger))
}
