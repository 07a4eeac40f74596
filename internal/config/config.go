package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderMemory  = "memory"
	ProviderCognito = "cognito"
)

// Config contains server configuration parameters.
type Config struct {
	LogLevel   int        `env:"LOG_LEVEL" envDefault:"0"`
	GRPC       GRPC       `envPrefix:"GRPC_"`
	Database   Database   `envPrefix:"DATABASE_"`
	JWT        JWT        `envPrefix:"JWT_"`
	Storage    Storage    `envPrefix:"MINIO_"`
	Identity   Identity   `envPrefix:"IDENTITY_"`
	Cognito    Cognito    `envPrefix:"COGNITO_"`
	Onboarding Onboarding `envPrefix:"ONBOARDING_"`
	Metrics    Metrics    `envPrefix:"METRICS_"`
	RateLimit  RateLimit  `envPrefix:"RATE_LIMIT_"`
}

// GRPC contains gRPC server parameters.
type GRPC struct {
	Port               string        `env:"PORT" envDefault:"50051"`
	EnableHTTPS        bool          `env:"ENABLE_HTTPS" envDefault:"false"`
	CertFileName       string        `env:"CERT_FILE_NAME" envDefault:"cert.pem"`
	PrivateKeyFileName string        `env:"PRIVATE_KEY_FILE_NAME" envDefault:"key.pem"`
	CallTimeout        time.Duration `env:"CALL_TIMEOUT" envDefault:"30s"`
	EnableReflection   bool          `env:"ENABLE_REFLECTION" envDefault:"false"`
}

// Database contains database connection parameters. An empty DSN keeps
// all records in memory.
type Database struct {
	DSN string `env:"DSN"`
	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`
}

// JWT contains JWT-related parameters.
type JWT struct {
	Secret     string        `env:"SECRET" envDefault:"devsecret"`
	Issuer     string        `env:"ISSUER" envDefault:"onboarding-server"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
	// PurgeInterval is how often expired refresh tokens are deleted.
	// Zero disables purging.
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" envDefault:"1h"`
}

// Storage contains object storage parameters. An empty endpoint keeps
// archived forms in memory.
type Storage struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"onboarding-forms"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Identity selects the identity provider and the fixed credentials used
// against it.
type Identity struct {
	Provider string `env:"PROVIDER" envDefault:"memory"`
	// ProbeCredential is the sentinel password of existence probes.
	ProbeCredential string `env:"PROBE_CREDENTIAL" envDefault:"Probe-Only-Credential-0!"`
	// PlaceholderCredential satisfies password policies at sign-up. Users
	// never sign in with it.
	PlaceholderCredential string `env:"PLACEHOLDER_CREDENTIAL" envDefault:"Placeholder-Credential-1!"`
	MaxAttempts           int    `env:"MEMORY_MAX_ATTEMPTS" envDefault:"3"`
}

// Cognito addresses the user pool app client.
type Cognito struct {
	Region          string `env:"REGION"`
	UserPoolID      string `env:"USER_POOL_ID"`
	ClientID        string `env:"CLIENT_ID"`
	ClientSecret    string `env:"CLIENT_SECRET"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// Onboarding tunes the session registry.
type Onboarding struct {
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	MaxSessions      int           `env:"MAX_SESSIONS" envDefault:"10000"`
	DomainPolicyFile string        `env:"DOMAIN_POLICY_FILE"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Addr    string `env:"ADDR" envDefault:":9090"`
}

// RateLimit throttles onboarding calls per client host.
type RateLimit struct {
	Enabled bool    `env:"ENABLED" envDefault:"true"`
	RPS     float64 `env:"RPS" envDefault:"5"`
	Burst   int     `env:"BURST" envDefault:"10"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	switch c.Identity.Provider {
	case ProviderMemory:
	case ProviderCognito:
		if c.Cognito.Region == "" {
			errs = append(errs, errors.New("COGNITO_REGION is required"))
		}
		if c.Cognito.ClientID == "" {
			errs = append(errs, errors.New("COGNITO_CLIENT_ID is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown identity provider %q", c.Identity.Provider))
	}

	if c.Identity.ProbeCredential == "" {
		errs = append(errs, errors.New("IDENTITY_PROBE_CREDENTIAL must not be empty"))
	}
	if c.Identity.PlaceholderCredential == "" {
		errs = append(errs, errors.New("IDENTITY_PLACEHOLDER_CREDENTIAL must not be empty"))
	}
	if c.Identity.ProbeCredential != "" && c.Identity.ProbeCredential == c.Identity.PlaceholderCredential {
		errs = append(errs, errors.New("IDENTITY_PROBE_CREDENTIAL must differ from IDENTITY_PLACEHOLDER_CREDENTIAL"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		errs = append(errs, errors.New("MINIO_BUCKET_NAME is required with MINIO_ENDPOINT"))
	}

	return errors.Join(errs...)
}
