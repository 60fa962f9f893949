package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StageProd = "prod"
	StageDev  = "dev"
)

type Config struct {
	Stage          string   `env:"STAGE" envDefault:"dev"`
	Port           int      `env:"PORT" envDefault:"8000"`
	DatabaseDriver string   `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseUrl    string   `env:"DATABASE_URL" envDefault:"file:armada.db"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	NatsUrl        string   `env:"NATS_URL"`

	CpuTurnDelay        time.Duration `env:"CPU_TURN_DELAY" envDefault:"700ms"`
	StartDelay          time.Duration `env:"START_DELAY" envDefault:"1s"`
	PlacementWindow     time.Duration `env:"PLACEMENT_WINDOW" envDefault:"45s"`
	MatchRetention      time.Duration `env:"MATCH_RETENTION" envDefault:"30s"`
	MatchmakingInterval time.Duration `env:"MATCHMAKING_INTERVAL" envDefault:"2s"`
}

// Load reads .env outside of prod and parses the environment.
func Load(envFiles ...string) (Config, error) {
	if os.Getenv("STAGE") != StageProd {
		if len(envFiles) == 0 {
			envFiles = []string{".env"}
		}
		// a missing .env is fine in dev; the defaults apply
		if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Stage != StageDev && c.Stage != StageProd {
		return fmt.Errorf("stage must be either dev or prod, got: %s", c.Stage)
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.DatabaseDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for name, d := range map[string]time.Duration{
		"CPU_TURN_DELAY":       c.CpuTurnDelay,
		"START_DELAY":          c.StartDelay,
		"PLACEMENT_WINDOW":     c.PlacementWindow,
		"MATCH_RETENTION":      c.MatchRetention,
		"MATCHMAKING_INTERVAL": c.MatchmakingInterval,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.MatchmakingInterval == 0 {
		return fmt.Errorf("MATCHMAKING_INTERVAL must be positive")
	}
	return nil
}
