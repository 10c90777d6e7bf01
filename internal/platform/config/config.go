package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"crosspost"`
	HTTPPort     string   `env:"HTTP_PORT" envDefault:"8080"`
	DBDriver     string   `env:"DB_DRIVER" envDefault:"postgres"`
	PostgresDSN  string   `env:"POSTGRES_DSN"`
	SQLitePath   string   `env:"SQLITE_PATH" envDefault:"crosspost.db"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`

	QueueTickInterval time.Duration `env:"POST_QUEUE_TICK_INTERVAL" envDefault:"1s"`
	QueueStartPaused  bool          `env:"POST_QUEUE_START_PAUSED" envDefault:"false"`

	EnableCrashRecovery     bool `env:"ENABLE_CRASH_RECOVERY" envDefault:"true"`
	EnableSimulatedWebsites bool `env:"ENABLE_SIMULATED_WEBSITES" envDefault:"false"`
	AutoMigrate             bool `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg.normalize()
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	return c.PostgresDSN
}

func (c Config) normalize() (Config, error) {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	brokers := make([]string, 0, len(c.KafkaBrokers))
	for _, value := range c.KafkaBrokers {
		if value = strings.TrimSpace(value); value != "" {
			brokers = append(brokers, value)
		}
	}
	c.KafkaBrokers = brokers
	if c.QueueTickInterval <= 0 {
		return Config{}, fmt.Errorf("POST_QUEUE_TICK_INTERVAL must be positive, got %s", c.QueueTickInterval)
	}
	return c, nil
}
