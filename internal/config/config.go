package config

import (
	"fmt"  // Error wrapping
	"time" // Durations for session TTL

	"github.com/caarlos0/env/v11" // Struct based environment parsing
	"github.com/joho/godotenv"    // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort           string        `env:"PORT" envDefault:"5000"`                       // Application port
	DatabaseURL       string        `env:"DATABASE_URL" envDefault:"sqlite:///users.db"` // Database connection target
	JWTSecret         string        `env:"JWT_SECRET,required,notEmpty"`                 // Session token signing key
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`                 // Session lifetime
	RedisAddr         string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`       // Redis server address
	RedisPass         string        `env:"REDIS_PASS"`                                   // Redis password
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`                      // Redis database number
	SMTPHost          string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`        // Outbound mail host
	SMTPPort          int           `env:"SMTP_PORT" envDefault:"465"`                   // Outbound mail port (implicit TLS)
	SMTPUser          string        `env:"SMTP_USER"`                                    // SMTP login, mail is only logged when empty
	SMTPPass          string        `env:"SMTP_PASS"`                                    // SMTP password
	MailFrom          string        `env:"MAIL_FROM"`                                    // Sender address, defaults to SMTPUser
	MailWorkers       int           `env:"MAIL_WORKERS" envDefault:"2"`                  // Mail queue workers
	MailQueueSize     int           `env:"MAIL_QUEUE_SIZE" envDefault:"100"`             // Mail queue capacity
	AdminEmails       []string      `env:"ADMIN_EMAILS" envSeparator:","`                // Emails granted the admin role at registration
	ReconcileSchedule string        `env:"RECONCILE_SCHEDULE" envDefault:"@hourly"`      // Cron schedule for ledger reconciliation
	IsProd            bool          `env:"IS_PROD" envDefault:"false"`                   // Is production environment
}

// LoadConfig loads configuration from the environment, reading a .env file first if present
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser // Send from the authenticated account by default
	}
	return cfg, nil
}

// DatabaseConfig is the part of the configuration the migration tool needs
type DatabaseConfig struct {
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite:///users.db"` // Database connection target
}

// LoadDatabaseConfig loads only the database settings, so migrations run
// without session or mail secrets
func LoadDatabaseConfig() (*DatabaseConfig, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := &DatabaseConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
