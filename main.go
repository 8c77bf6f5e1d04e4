package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/apps/go-server/assets"
	"github.com/robalobadob/mastermind/apps/go-server/internal/config"
	"github.com/robalobadob/mastermind/apps/go-server/internal/db"
	"github.com/robalobadob/mastermind/apps/go-server/internal/httpserver"
	"github.com/robalobadob/mastermind/apps/go-server/internal/palette"
	"github.com/robalobadob/mastermind/apps/go-server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	pal, err := loadPalette(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load palette")
	}

	sqlDB, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("open database")
	}
	defer sqlDB.Close()
	if err := db.Migrate(sqlDB, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	st := openStore(cfg)
	srv := httpserver.New(cfg, st, sqlDB, pal)
	log.Info().
		Str("port", cfg.Port).
		Int("colors", cfg.Colors).
		Int("length", cfg.Length).
		Int("maxGuesses", cfg.MaxGuesses).
		Msg("starting go-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// loadPalette returns PALETTE_FILE if set, else the embedded palette,
// and checks it names every color the configured rules allow.
func loadPalette(cfg config.Config) (*palette.Palette, error) {
	var (
		pal *palette.Palette
		err error
	)
	if cfg.PaletteFile != "" {
		pal, err = palette.Load(cfg.PaletteFile)
	} else {
		pal, err = palette.Default()
	}
	if err != nil {
		return nil, err
	}
	if err := pal.Supports(cfg.Rules()); err != nil {
		return nil, err
	}
	return pal, nil
}

// openStore uses Redis when REDIS_URL is set; rounds then survive restarts.
func openStore(cfg config.Config) store.Store {
	if cfg.RedisURL == "" {
		return store.NewMemoryStore()
	}
	st, err := store.NewRedisStore(context.Background(), cfg.RedisURL, cfg.RoundTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	log.Info().Dur("ttl", cfg.RoundTTL).Msg("rounds stored in redis")
	return st
}
