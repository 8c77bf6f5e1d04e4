package game

import (
	"fmt"
	"math/rand/v2"
)

// Guesser is the engine's code breaker. It keeps the set of codes still
// consistent with the feedback seen this round and guesses uniformly among them.
//
// A Guesser is not safe for concurrent use; each round owns its own.
type Guesser struct {
	rules      Rules
	full       []Sequence // shared across guessers, never written
	candidates []Sequence
	intn       func(int) int
}

// NewGuesser returns a Guesser in the fresh state. A nil rng uses the
// package-level math/rand/v2 source.
func NewGuesser(rules Rules, rng *rand.Rand) (*Guesser, error) {
	full, err := rules.fullSpace()
	if err != nil {
		return nil, err
	}
	g := &Guesser{rules: rules, full: full, intn: rand.IntN}
	if rng != nil {
		g.intn = rng.IntN
	}
	g.Reset()
	return g, nil
}

func (g *Guesser) setRand(rng *rand.Rand) { g.intn = rng.IntN }

// Reset discards all filtering and starts over from a private copy of the full space.
func (g *Guesser) Reset() {
	g.candidates = append([]Sequence(nil), g.full...)
}

// NextGuess filters the candidates by the most recent turn in history, if any,
// and returns a uniformly random survivor.
func (g *Guesser) NextGuess(history []Turn) (Sequence, error) {
	if n := len(history); n > 0 {
		if err := g.Observe(history[n-1]); err != nil {
			return Sequence{}, err
		}
	}
	if len(g.candidates) == 0 {
		return Sequence{}, ErrEmptyCandidateSet
	}
	return g.candidates[g.intn(len(g.candidates))], nil
}

// Observe keeps only the candidates that would have produced t.Feedback for t.Guess.
// When nothing survives the candidate set is left as it was and
// ErrEmptyCandidateSet is returned: the feedback cannot have come from a real secret.
func (g *Guesser) Observe(t Turn) error {
	if err := g.rules.check(t.Guess); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	kept := make([]Sequence, 0, len(g.candidates))
	for _, c := range g.candidates {
		if score(t.Guess.pegs, c.pegs) == t.Feedback {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w: no code gives %v for guess %v", ErrEmptyCandidateSet, t.Feedback, t.Guess)
	}
	g.candidates = kept
	return nil
}

// Remaining returns the candidate count.
func (g *Guesser) Remaining() int { return len(g.candidates) }

// Candidates returns a copy of the current candidate set.
func (g *Guesser) Candidates() []Sequence {
	return append([]Sequence(nil), g.candidates...)
}

// Contains reports whether s is still a candidate.
func (g *Guesser) Contains(s Sequence) bool {
	for _, c := range g.candidates {
		if c.Equal(s) {
			return true
		}
	}
	return false
}
