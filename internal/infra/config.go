package infra

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"peerpush"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"peerpush"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"peerpush"`

	// JWT
	JWTSecret     string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTUserExpiry string `env:"JWT_USER_EXPIRY" envDefault:"24h"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"8080"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`

	// Token economy
	TokenPriceCents      int64  `env:"TOKEN_PRICE_CENTS" envDefault:"1"`
	DailyDepositCap      int64  `env:"DAILY_DEPOSIT_CAP_TOKENS" envDefault:"100000"`
	RefundWindowDays     int    `env:"REFUND_WINDOW_DAYS" envDefault:"90"`
	WithdrawMode         string `env:"WITHDRAW_MODE" envDefault:"refund"`
	PlatformUserID       string `env:"PLATFORM_USER_ID" envDefault:"00000000-0000-0000-0000-000000000000"`
	AllowLateJoin        bool   `env:"ALLOW_LATE_JOIN" envDefault:"false"`

	// Stripe
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// Settlement job runner
	SettlerInterval string `env:"SETTLER_INTERVAL" envDefault:"30s"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.TokenPriceCents < 1 {
		return fmt.Errorf("TOKEN_PRICE_CENTS must be at least 1, got %d", c.TokenPriceCents)
	}
	if c.DailyDepositCap < 1 {
		return fmt.Errorf("DAILY_DEPOSIT_CAP_TOKENS must be at least 1, got %d", c.DailyDepositCap)
	}
	if c.WithdrawMode != "refund" && c.WithdrawMode != "disabled" {
		return fmt.Errorf("WITHDRAW_MODE must be refund or disabled, got %q", c.WithdrawMode)
	}
	if _, err := uuid.Parse(c.PlatformUserID); err != nil {
		return fmt.Errorf("PLATFORM_USER_ID is not a valid UUID: %w", err)
	}
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// PlatformID returns the parsed treasury user ID. Validate must have
// succeeded first.
func (c *Config) PlatformID() uuid.UUID {
	id, _ := uuid.Parse(c.PlatformUserID)
	return id
}
