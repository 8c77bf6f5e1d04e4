// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
)

// Config holds every tunable of the server.
type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`

	DatabasePath string        `env:"DATABASE_PATH" envDefault:"./data/app.db"`
	RedisURL     string        `env:"REDIS_URL"`
	RoundTTL     time.Duration `env:"ROUND_TTL" envDefault:"24h"`

	PaletteFile string `env:"PALETTE_FILE"`
	Colors      int    `env:"COLORS" envDefault:"6"`
	Length      int    `env:"LENGTH" envDefault:"4"`
	MaxGuesses  int    `env:"MAX_GUESSES" envDefault:"10"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"mastermind_token"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	DailySalt     string        `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	WatchInterval time.Duration `env:"WATCH_INTERVAL" envDefault:"300ms"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Rules().Validate(); err != nil {
		return Config{}, err
	}
	if c.MaxGuesses < 1 {
		return Config{}, fmt.Errorf("MAX_GUESSES must be positive, got %d", c.MaxGuesses)
	}
	return c, nil
}

// Rules returns the board configured by COLORS and LENGTH.
func (c Config) Rules() game.Rules {
	return game.Rules{Colors: c.Colors, Length: c.Length}
}

// Secure reports whether cookies must be Secure / SameSite=None.
func (c Config) Secure() bool { return c.AppEnv == "production" }
