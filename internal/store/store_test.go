package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
)

// exercise runs the same contract checks against any Store.
func exercise(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	_, err := st.Get(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)

	secret, err := game.NewSequence(game.Blue, game.Red, game.Red, game.Violet)
	require.NoError(t, err)
	seed := uint64(9)
	r, err := game.NewRound(game.ModeMake, game.Options{Secret: secret, Seed: &seed})
	require.NoError(t, err)
	twin, err := game.NewRound(game.ModeMake, game.Options{Secret: secret, Seed: &seed})
	require.NoError(t, err)
	_, _, err = twin.Step()
	require.NoError(t, err)
	_, _, err = r.Step()
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, r))

	got, err := st.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, game.ModeMake, got.Mode)
	assert.True(t, secret.Equal(got.Secret))
	assert.Len(t, got.Turns(), 1)

	// The loaded round keeps playing from where it was saved, with the same
	// guesses a round that never left memory would make.
	state, _ := got.Status()
	if !state.Finished() {
		turn, _, err := got.Step()
		require.NoError(t, err)
		want, _, err := twin.Step()
		require.NoError(t, err)
		assert.True(t, want.Guess.Equal(turn.Guess))
		require.NoError(t, st.Save(ctx, got))
		again, err := st.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Len(t, again.Turns(), 2)
	}
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	st, err := NewRedisStore(context.Background(), url, time.Minute)
	require.NoError(t, err)
	exercise(t, st)
}

func TestRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url", time.Minute)
	assert.Error(t, err)
}
