// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/pable/go-match-telemetry/internal/engine"
)

// Config holds every setting the CLI needs. Command-line flags override it.
type Config struct {
	DBPath   string `env:"MATCHTEL_DB"`
	LogLevel string `env:"MATCHTEL_LOG_LEVEL" envDefault:"info"`

	RetentionDelay  time.Duration `env:"MATCHTEL_RETENTION_DELAY" envDefault:"30s"`
	KillDedupWindow time.Duration `env:"MATCHTEL_KILL_DEDUP_WINDOW" envDefault:"100ms"`
	SessionFloor    time.Duration `env:"MATCHTEL_SESSION_FLOOR" envDefault:"1s"`
	MaxRecentElo    int           `env:"MATCHTEL_MAX_RECENT_ELO" envDefault:"100"`

	NATSURL     string `env:"MATCHTEL_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSSubject string `env:"MATCHTEL_NATS_SUBJECT" envDefault:"telemetry.>"`
}

// Load reads the optional .env files, then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if cfg.MaxRecentElo <= 0 {
		return Config{}, fmt.Errorf("MATCHTEL_MAX_RECENT_ELO must be positive, got %d", cfg.MaxRecentElo)
	}
	return cfg, nil
}

// Engine returns the engine tunables.
func (c Config) Engine() engine.Config {
	return engine.Config{
		KillDedupWindow: c.KillDedupWindow,
		SessionFloor:    c.SessionFloor,
		RetentionDelay:  c.RetentionDelay,
	}
}

// DefaultDBPath is ~/.matchtel/matchtel.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".matchtel", "matchtel.db")
}
