// Package config loads worker configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

// Config holds worker configuration.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`

	PostgresUser     string `env:"POSTGRES_USER" envDefault:"lessonhub"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"lessonhub_pass"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"lessonhub"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresSSLMode  string `env:"DATABASE_SSLMODE" envDefault:"disable"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	BookingEventsTopic string   `env:"BOOKING_EVENTS_TOPIC" envDefault:"booking.events"`

	OpsAddr       string `env:"OPS_ADDR" envDefault:"0.0.0.0:8081"`
	InstanceID    string `env:"INSTANCE_ID"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"internal/migrations"`

	RequestTTL      time.Duration `env:"REQUEST_TTL" envDefault:"24h"`
	CompletionGrace time.Duration `env:"COMPLETION_GRACE" envDefault:"24h"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepBatchSize  int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`

	LockTTL      time.Duration `env:"LOCK_TTL" envDefault:"60s"`
	LockFailOpen bool          `env:"LOCK_FAIL_OPEN" envDefault:"true"`
}

// Load reads configuration from environment. DATABASE_URL wins when set;
// otherwise the URL is assembled from the individual POSTGRES_* variables.
// INSTANCE_ID falls back to the hostname so lock tokens name the worker
// that holds them.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	if cfg.LockTTL <= 0 {
		return nil, fmt.Errorf("LOCK_TTL must be positive, got %s", cfg.LockTTL)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB, cfg.PostgresSSLMode)
	}
	if cfg.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = uuid.NewString()
		}
		cfg.InstanceID = host
	}
	return cfg, nil
}
