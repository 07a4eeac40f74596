package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/onboarding-server/internal/api/grpc/context"
	"github.com/dtroode/onboarding-server/internal/api/grpc/middleware"
	"github.com/dtroode/onboarding-server/internal/api/grpc/router"
	grpcServer "github.com/dtroode/onboarding-server/internal/api/grpc/server"
	"github.com/dtroode/onboarding-server/internal/config"
	"github.com/dtroode/onboarding-server/internal/identity"
	"github.com/dtroode/onboarding-server/internal/identity/cognito"
	memidentity "github.com/dtroode/onboarding-server/internal/identity/memory"
	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/metrics"
	"github.com/dtroode/onboarding-server/internal/model"
	"github.com/dtroode/onboarding-server/internal/policy"
	"github.com/dtroode/onboarding-server/internal/repository/memory"
	"github.com/dtroode/onboarding-server/internal/repository/postgres"
	"github.com/dtroode/onboarding-server/internal/server"
	"github.com/dtroode/onboarding-server/internal/service"
	storage "github.com/dtroode/onboarding-server/internal/storage/minio"
	"github.com/dtroode/onboarding-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	users         model.UserStore
	companies     model.CompanyStore
	requests      model.ScheduleRequestStore
	refreshTokens model.RefreshTokenStore
	close         func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	logAppVersion()

	st, err := newStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer st.close()

	objects, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize object storage", "error", err)
	}

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize identity provider", "error", err)
	}

	domainPolicy, err := policy.Load(cfg.Onboarding.DomainPolicyFile)
	if err != nil {
		logger.Fatal("failed to load domain policy", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	tokenManager := token.NewJWT(cfg.JWT.Secret,
		token.WithIssuer(cfg.JWT.Issuer),
		token.WithAccessTTL(cfg.JWT.AccessTTL),
		token.WithRefreshTTL(cfg.JWT.RefreshTTL),
	)
	tokenService := service.NewTokenService(tokenManager, st.refreshTokens, cfg.JWT.RefreshTTL, logger)

	onboardingService := service.NewOnboarding(service.OnboardingDeps{
		Provider:    provider,
		Probe:       identity.NewProbe(provider, cfg.Identity.ProbeCredential, logger),
		Placeholder: cfg.Identity.PlaceholderCredential,
		Reconciler:  service.NewReconciler(st.users, st.companies, recorder, logger),
		Policy:      domainPolicy,
		Archive:     service.NewPersistForm(objects, logger),
		Schedules:   st.requests,
		Tokens:      tokenService,
		Metrics:     recorder,
		SessionTTL:  cfg.Onboarding.SessionTTL,
		MaxSessions: cfg.Onboarding.MaxSessions,
	}, logger)
	accountService := service.NewAccount(st.users, st.companies, st.requests, logger)

	options := router.Options{CallTimeout: cfg.GRPC.CallTimeout}
	if cfg.RateLimit.Enabled {
		options.Limiter = middleware.NewPeerRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
	}

	s := router.New(onboardingService, accountService, tokenService, grpcctx.NewManager(), options, logger).Register()
	if cfg.GRPC.EnableReflection {
		reflection.Register(s)
	}
	grpcSrv := grpcServer.NewGRPCServer(s, fmt.Sprintf(":%s", cfg.GRPC.Port))

	var sl model.SecurityLayer = server.NewPlainListener()
	if cfg.GRPC.EnableHTTPS {
		sl = server.NewSecurityLayer(cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metrics.Handler(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server on", "address", grpcSrv.Address(), "identity_provider", cfg.Identity.Provider)
		if err := grpcSrv.Start(sl); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info("Starting metrics server on", "address", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if cfg.JWT.PurgeInterval > 0 {
		g.Go(func() error {
			return tokenService.RunPurger(gctx, cfg.JWT.PurgeInterval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := grpcSrv.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
	}
	logger.Info("shutdown complete", "live_sessions", onboardingService.Len())
}

func newStores(ctx context.Context, cfg *config.Config, logger *logger.Logger) (stores, error) {
	if cfg.Database.DSN == "" {
		logger.Warn("DATABASE_DSN is empty, keeping records in memory")
		return stores{
			users:         memory.NewUsers(),
			companies:     memory.NewCompanies(),
			requests:      memory.NewScheduleRequests(),
			refreshTokens: memory.NewRefreshTokens(),
			close:         func() error { return nil },
		}, nil
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN,
		postgres.WithMaxConns(cfg.Database.MaxConns),
		postgres.WithMaxConnIdleTime(cfg.Database.ConnMaxIdleTime),
	)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:         postgres.NewUserRepository(db),
		companies:     postgres.NewCompanyRepository(db),
		requests:      postgres.NewScheduleRequestRepository(db),
		refreshTokens: postgres.NewRefreshTokenRepository(db),
		close:         db.Close,
	}, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config, logger *logger.Logger) (model.ObjectStore, error) {
	if cfg.Storage.Endpoint == "" {
		logger.Warn("MINIO_ENDPOINT is empty, keeping archived forms in memory")
		return memory.NewObjects(), nil
	}

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	client, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newProvider(ctx context.Context, cfg *config.Config, logger *logger.Logger) (identity.Provider, error) {
	if cfg.Identity.Provider == config.ProviderCognito {
		client, err := cognito.NewClient(ctx, cognito.Config{
			Region:          cfg.Cognito.Region,
			UserPoolID:      cfg.Cognito.UserPoolID,
			ClientID:        cfg.Cognito.ClientID,
			ClientSecret:    cfg.Cognito.ClientSecret,
			Endpoint:        cfg.Cognito.Endpoint,
			AccessKeyID:     cfg.Cognito.AccessKeyID,
			SecretAccessKey: cfg.Cognito.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	logger.Warn("using the in-memory identity provider, codes are written to the log")
	return memidentity.New(
		memidentity.WithMaxAttempts(cfg.Identity.MaxAttempts),
		memidentity.WithMailer(memidentity.LogMailer(logger)),
	), nil
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
