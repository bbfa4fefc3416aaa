package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration for the connectors demo host.
type Config struct {
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	Igniter  IgniterConfig
	Database DatabaseConfig
	Storage  StorageBackendConfig
	Email    EmailConfig
	Otel     OtelConfig

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// IgniterConfig holds the connectors core's own settings: the externally
// reachable base URL (resolved through an 8-variable priority chain if
// left unset, see connectors.ResolveBaseURL) and the at-rest encryption
// secret.
type IgniterConfig struct {
	BaseURL           string `env:"IGNITER_BASE_URL" envDefault:""`
	EncryptionSecret  string `env:"IGNITER_ENCRYPTION_SECRET" envDefault:""`
	CookieSigningKey  string `env:"IGNITER_COOKIE_SIGNING_KEY" envDefault:""`
	StateSweepCron    string `env:"IGNITER_STATE_SWEEP_CRON" envDefault:"@every 5m"`
	ScopesCatalogFile string `env:"IGNITER_SCOPES_CATALOG_FILE" envDefault:""`

	SlackClientID         string `env:"SLACK_CLIENT_ID" envDefault:""`
	SlackClientSecret     string `env:"SLACK_CLIENT_SECRET" envDefault:""`
	MailchimpClientID     string `env:"MAILCHIMP_CLIENT_ID" envDefault:""`
	MailchimpClientSecret string `env:"MAILCHIMP_CLIENT_SECRET" envDefault:""`
	GitHubClientID        string `env:"GITHUB_CLIENT_ID" envDefault:""`
	GitHubClientSecret    string `env:"GITHUB_CLIENT_SECRET" envDefault:""`
}

// GetCookieSigningKey returns CookieSigningKey, falling back to
// EncryptionSecret so a minimal deployment only needs to set one secret.
func (i *IgniterConfig) GetCookieSigningKey() []byte {
	if i.CookieSigningKey != "" {
		return []byte(i.CookieSigningKey)
	}
	return []byte(i.EncryptionSecret)
}

// DatabaseConfig holds PostgreSQL connection settings for the optional
// sqladapter storage backend.
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"connectors"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"connectors"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// StorageBackendConfig selects and configures which connectors.Adapter the
// demo host wires in.
type StorageBackendConfig struct {
	// Backend is one of "memory" (default), "sql", "s3".
	Backend  string `env:"STORAGE_BACKEND" envDefault:"memory"`
	S3Bucket string `env:"STORAGE_S3_BUCKET" envDefault:""`
}

// EmailConfig holds the Mailgun settings behind pkg/notify.
type EmailConfig struct {
	Enabled       bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	MailgunDomain string `env:"MAILGUN_DOMAIN" envDefault:""`
	MailgunAPIKey string `env:"MAILGUN_API_KEY" envDefault:""`
	FromEmail     string `env:"EMAIL_FROM_ADDRESS" envDefault:"noreply@example.com"`
	NotifyTo      string `env:"EMAIL_NOTIFY_TO" envDefault:""`
}

// IsConfigured returns true if Mailgun is configured.
func (e *EmailConfig) IsConfigured() bool {
	return e.Enabled && e.MailgunDomain != "" && e.MailgunAPIKey != ""
}

// NewConfig loads configuration from environment variables.
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("storage_backend", cfg.Storage.Backend),
	)

	return cfg, nil
}
