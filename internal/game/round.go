// apps/go-server/internal/game/round.go
//
// A Round is one attempt to break a single fixed secret within a guess limit.
// Responsibilities:
//   - Create rounds in either mode (player breaks / engine breaks).
//   - Validate and score guesses, append them to the history.
//   - Track state transitions: playing → solved/exhausted.
//   - Rebuild the engine's candidate set after a round is decoded from storage.

package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRoundOver = errors.New("round over")
	ErrWrongMode = errors.New("wrong mode for this action")

	// ErrCorruptRound is returned by Resume when a stored round does not replay.
	ErrCorruptRound = errors.New("corrupt round")
)

// Mode says who breaks the code.
type Mode uint8

const (
	ModeBreak Mode = iota // the player guesses the engine's secret
	ModeMake              // the player sets the secret, the engine guesses
)

func (m Mode) String() string {
	switch m {
	case ModeBreak:
		return "break"
	case ModeMake:
		return "make"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode accepts "break" or "make".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "break":
		return ModeBreak, nil
	case "make":
		return ModeMake, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// State is the round's progress from the code breaker's point of view.
type State uint8

const (
	StatePlaying   State = iota
	StateSolved          // an exact match was scored
	StateExhausted       // guess limit reached without an exact match
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateSolved:
		return "solved"
	case StateExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Finished reports whether s is terminal.
func (s State) Finished() bool { return s != StatePlaying }

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "playing":
		*s = StatePlaying
	case "solved":
		*s = StateSolved
	case "exhausted":
		*s = StateExhausted
	default:
		return fmt.Errorf("unknown state %q", b)
	}
	return nil
}

// transition is the only place round state changes. Terminal states absorb;
// an exact match wins even when it is the last allowed guess.
func transition(s State, fb Feedback, used int, rules Rules, maxGuesses int) State {
	if s.Finished() {
		return s
	}
	switch {
	case fb.Solved(rules.Length):
		return StateSolved
	case used >= maxGuesses:
		return StateExhausted
	}
	return StatePlaying
}

// Options configures NewRound. Zero values fall back to defaults.
type Options struct {
	Rules      Rules
	MaxGuesses int
	Secret     Sequence   // required for ModeMake; generated for ModeBreak when empty
	Rand       *rand.Rand // source for secret generation and engine guesses
	// Seed, when set, takes precedence over Rand. It is stored with the round,
	// so engine guesses stay reproducible across a store round trip.
	Seed *uint64
}

// seededRand derives the source for one draw of a seeded round. Keying it by
// stream (the guess number) makes each guess independent of earlier draws.
func seededRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// secretStream is the stream used to generate a seeded round's secret.
const secretStream = ^uint64(0)

// Round holds the state of a single game.
type Round struct {
	ID         string    `json:"id"`
	Mode       Mode      `json:"mode"`
	Rules      Rules     `json:"rules"`
	MaxGuesses int       `json:"maxGuesses"`
	Secret     Sequence  `json:"secret"`
	History    []Turn    `json:"history"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"startedAt"`
	Seed       *uint64   `json:"seed,omitempty"`

	mu      sync.Mutex
	guesser *Guesser // ModeMake only
}

// NewRound validates opts and starts a round in the playing state.
func NewRound(mode Mode, opts Options) (*Round, error) {
	rules := opts.Rules
	if rules == (Rules{}) {
		rules = DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	maxGuesses := opts.MaxGuesses
	if maxGuesses <= 0 {
		maxGuesses = DefaultMaxGuesses
	}

	rng := opts.Rand
	if opts.Seed != nil {
		rng = seededRand(*opts.Seed, secretStream)
	}

	secret := opts.Secret
	switch mode {
	case ModeBreak:
		if secret.Len() == 0 {
			secret = NewSecretGenerator(rules, rng).Generate()
		}
	case ModeMake:
		if secret.Len() == 0 {
			return nil, fmt.Errorf("secret: %w: a secret is required in %s mode", ErrInvalidLength, mode)
		}
	default:
		return nil, fmt.Errorf("unknown mode %d", mode)
	}
	if err := rules.check(secret); err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}

	r := &Round{
		ID:         uuid.NewString(),
		Mode:       mode,
		Rules:      rules,
		MaxGuesses: maxGuesses,
		Secret:     secret,
		History:    []Turn{},
		State:      StatePlaying,
		StartedAt:  time.Now().UTC(),
	}
	if opts.Seed != nil {
		seed := *opts.Seed
		r.Seed = &seed
	}
	if mode == ModeMake {
		g, err := NewGuesser(rules, rng)
		if err != nil {
			return nil, err
		}
		r.guesser = g
	}
	return r, nil
}

// Guess scores a player's guess. ModeBreak only.
func (r *Round) Guess(guess Sequence) (Feedback, State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Mode != ModeBreak {
		return Feedback{}, r.State, ErrWrongMode
	}
	return r.apply(guess)
}

// Step lets the engine make its next guess. ModeMake only.
func (r *Round) Step() (Turn, State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Mode != ModeMake {
		return Turn{}, r.State, ErrWrongMode
	}
	if r.State.Finished() {
		return Turn{}, r.State, ErrRoundOver
	}
	if r.Seed != nil {
		r.guesser.setRand(seededRand(*r.Seed, uint64(len(r.History))))
	}
	guess, err := r.guesser.NextGuess(r.History)
	if err != nil {
		return Turn{}, r.State, err
	}
	fb, state, err := r.apply(guess)
	if err != nil {
		return Turn{}, state, err
	}
	return Turn{Guess: guess, Feedback: fb}, state, nil
}

// apply scores guess, records it and advances the state. Caller holds r.mu.
func (r *Round) apply(guess Sequence) (Feedback, State, error) {
	if r.State.Finished() {
		return Feedback{}, r.State, ErrRoundOver
	}
	fb, err := r.Rules.Score(guess, r.Secret)
	if err != nil {
		return Feedback{}, r.State, err
	}
	r.History = append(r.History, Turn{Guess: guess, Feedback: fb})
	r.State = transition(r.State, fb, len(r.History), r.Rules, r.MaxGuesses)
	return fb, r.State, nil
}

// Status returns the current state and the number of guesses made.
func (r *Round) Status() (State, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.State, len(r.History)
}

// Turns returns a copy of the history.
func (r *Round) Turns() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Turn(nil), r.History...)
}

// Remaining returns the engine's candidate count, or 0 outside ModeMake.
func (r *Round) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.guesser == nil {
		return 0
	}
	return r.guesser.Remaining()
}

// PlayerWon reports whether the human side won a finished round: they broke the
// engine's code, or the engine ran out of guesses on theirs.
func (r *Round) PlayerWon() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.Mode {
	case ModeBreak:
		return r.State == StateSolved
	case ModeMake:
		return r.State == StateExhausted
	}
	return false
}

// Resume validates a round decoded from storage by replaying its history:
// every stored feedback must match the secret and the stored state must be the
// one the turns lead to. It then rebuilds the engine's candidate set. For a
// seeded round rng is ignored.
func (r *Round) Resume(rng *rand.Rand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Rules.Validate(); err != nil {
		return err
	}
	if r.MaxGuesses <= 0 {
		return fmt.Errorf("%w: round %s: max guesses %d", ErrCorruptRound, r.ID, r.MaxGuesses)
	}
	if len(r.History) > r.MaxGuesses {
		return fmt.Errorf("%w: round %s: %d turns, limit %d", ErrCorruptRound, r.ID, len(r.History), r.MaxGuesses)
	}
	if err := r.Rules.check(r.Secret); err != nil {
		return fmt.Errorf("round %s secret: %w", r.ID, err)
	}

	state := StatePlaying
	for i, t := range r.History {
		if state.Finished() {
			return fmt.Errorf("%w: round %s: turn %d after the round ended", ErrCorruptRound, r.ID, i+1)
		}
		fb, err := r.Rules.Score(t.Guess, r.Secret)
		if err != nil {
			return fmt.Errorf("round %s turn %d: %w", r.ID, i+1, err)
		}
		if fb != t.Feedback {
			return fmt.Errorf("%w: round %s turn %d: stored %v, scores %v", ErrCorruptRound, r.ID, i+1, t.Feedback, fb)
		}
		state = transition(state, fb, i+1, r.Rules, r.MaxGuesses)
	}
	if state != r.State {
		return fmt.Errorf("%w: round %s: stored state %s, history gives %s", ErrCorruptRound, r.ID, r.State, state)
	}
	if r.History == nil {
		r.History = []Turn{}
	}
	if r.Mode != ModeMake {
		return nil
	}
	g, err := NewGuesser(r.Rules, rng)
	if err != nil {
		return err
	}
	for _, t := range r.History {
		if err := g.Observe(t); err != nil {
			return fmt.Errorf("round %s: %w", r.ID, err)
		}
	}
	r.guesser = g
	return nil
}
