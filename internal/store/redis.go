package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
)

const redisKeyPrefix = "mastermind:round:"

// redisStore keeps rounds as JSON so several server instances can share them.
// Rounds expire ttl after their last save.
type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to url (redis://...) and verifies the connection.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Dur("ttl", ttl).Msg("redis round store ready")
	return &redisStore{rdb: rdb, ttl: ttl}, nil
}

func (s *redisStore) Save(ctx context.Context, r *game.Round) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode round %s: %w", r.ID, err)
	}
	return s.rdb.Set(ctx, redisKeyPrefix+r.ID, b, s.ttl).Err()
}

// Get decodes the stored round and rebuilds the engine state from its history.
func (s *redisStore) Get(ctx context.Context, id string) (*game.Round, error) {
	b, err := s.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r game.Round
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode round %s: %w", id, err)
	}
	if err := r.Resume(nil); err != nil {
		return nil, err
	}
	return &r, nil
}
