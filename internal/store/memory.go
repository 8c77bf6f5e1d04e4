// apps/go-server/internal/store/memory.go
//
// In-memory implementation of the Store interface.
// This is the default persistence layer for live rounds.
//
// Characteristics:
//   - Stores *game.Round objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Returns ErrNotFound for missing round IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
)

// ErrNotFound is returned by Get for unknown or expired rounds.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for live rounds.
// Implementations may be backed by memory (this file) or Redis (redis.go).
type Store interface {
	// Save persists or updates a round.
	Save(ctx context.Context, r *game.Round) error

	// Get retrieves a round by ID, ready to play.
	Get(ctx context.Context, id string) (*game.Round, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu     sync.RWMutex           // guards rounds map
	rounds map[string]*game.Round // keyed by Round.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{rounds: make(map[string]*game.Round)}
}

// Save adds or updates the round in the map.
func (m *memory) Save(ctx context.Context, r *game.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[r.ID] = r
	return nil
}

// Get looks up a round by ID. The returned pointer is shared with other callers;
// Round serializes its own mutations.
func (m *memory) Get(ctx context.Context, id string) (*game.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rounds[id]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}
