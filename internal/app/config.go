package app

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (BOOKING_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BOOKING_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `usage:"Redis connection URL for the task queue (BOOKING_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	TaskQueue   string `default:"booking:tasks" usage:"Redis list key holding queued tasks" flag:"task-queue"`

	// MediaBaseURL is prepended to relative image paths in API responses,
	// typically the proxy's /media/ prefix.
	MediaBaseURL string `default:"" usage:"Base URL for uploaded media" flag:"media-base-url"`

	AllowedHosts       []string `default:"*" usage:"Host header values the API accepts" flag:"allowed-hosts"`
	CSRFTrustedOrigins []string `usage:"Origins trusted for state-changing browser requests" flag:"csrf-trusted-origins"`

	Postgres  PostgresConfig
	Auth      AuthConfig
	Payments  PaymentsConfig
	SMTP      SMTPConfig
	SMS       SMSConfig
	Worker    WorkerConfig
	Bootstrap BootstrapConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// PostgresConfig holds discrete connection parts used when no full URL is
// given, mirroring the compose file's POSTGRES_* variables.
type PostgresConfig struct {
	Host     string `default:"localhost" usage:"PostgreSQL host"`
	Port     int    `default:"5432" usage:"PostgreSQL port"`
	User     string `default:"booking" usage:"PostgreSQL user"`
	Password string `usage:"PostgreSQL password"`
	DB       string `default:"booking" usage:"PostgreSQL database name"`
}

// AuthConfig controls token signing and password hashing.
type AuthConfig struct {
	SigningKey     string        `usage:"HMAC key for JWT signing (BOOKING_AUTH_SIGNING_KEY)" flag:"signing-key"`
	Issuer         string        `default:"booking-api" usage:"JWT issuer claim"`
	AccessTTL      time.Duration `default:"15m" usage:"Access token lifetime" flag:"access-ttl"`
	RefreshTTL     time.Duration `default:"720h" usage:"Refresh token lifetime" flag:"refresh-ttl"`
	PasswordPepper string        `usage:"Server-side pepper mixed into password hashes" flag:"password-pepper"`
}

// PaymentsConfig holds payment provider credentials.
type PaymentsConfig struct {
	WebhookSecret string `usage:"Shared secret verifying payment webhook signatures" flag:"webhook-secret"`
}

// SMTPConfig holds the mail relay. When Host is empty outgoing mail is
// logged instead of sent.
type SMTPConfig struct {
	Host   string `usage:"SMTP relay host"`
	Port   int    `default:"587" usage:"SMTP relay port"`
	User   string `usage:"SMTP auth user"`
	Pass   string `usage:"SMTP auth password"`
	Sender string `default:"noreply@gmapartments.it" usage:"From header on outgoing mail"`
}

// SMSConfig holds the SMS provider. When AccountSID is empty outgoing SMS is
// logged instead of sent.
type SMSConfig struct {
	AccountSID string `usage:"Twilio account SID" flag:"sms-account-sid"`
	AuthToken  string `usage:"Twilio auth token" flag:"sms-auth-token"`
	From       string `usage:"Sender phone number" flag:"sms-from"`
}

// WorkerConfig controls the background task worker and scheduler.
type WorkerConfig struct {
	Concurrency    int           `default:"4" usage:"Concurrent task consumers"`
	UnpaidTTL      time.Duration `default:"30m" usage:"Age after which unpaid reservations expire" flag:"unpaid-ttl"`
	SweepInterval  time.Duration `default:"5m" usage:"Interval between expired-reservation sweeps" flag:"sweep-interval"`
	ReminderPeriod time.Duration `default:"24h" usage:"Interval between self-check-in reminder runs" flag:"reminder-period"`
}

// BootstrapConfig controls the startup sequence run before serving.
type BootstrapConfig struct {
	WaitTimeout  time.Duration `default:"60s" usage:"How long to wait for the database port" flag:"db-wait-timeout"`
	StaticSrc    string        `default:"assets/static" usage:"Directory holding static assets to publish" flag:"static-src"`
	StaticDir    string        `default:"" usage:"Volume directory static assets are collected into" flag:"static-dir"`
	ReferenceDir string        `default:"db/reference" usage:"Directory holding check-in reference CSV files" flag:"reference-dir"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BOOKING",
		Files:     []string{"config.yaml", "/etc/booking/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set BOOKING_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Auth.SigningKey == "" {
		return nil, errors.New("signing key is required: set BOOKING_AUTH_SIGNING_KEY")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps the standard variable names used by hosting
// platforms and the compose files (DATABASE_URL, REDIS_URL, PORT,
// POSTGRES_*) onto the BOOKING_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.DatabaseURL == "" && c.Postgres.Password != "" {
		c.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			url.QueryEscape(c.Postgres.User),
			url.QueryEscape(c.Postgres.Password),
			c.Postgres.Host,
			c.Postgres.Port,
			c.Postgres.DB,
		)
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
