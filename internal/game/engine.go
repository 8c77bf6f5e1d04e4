// apps/go-server/internal/game/engine.go
//
// Scoring and candidate enumeration for the Mastermind engine.
// Responsibilities:
//   - Score a guess against a secret (black/white/empty pegs).
//   - Enumerate the full K^L code space for a set of Rules.
//
// Notes:
//   - Scoring is pure and symmetric; it is safe to call from any goroutine.
//   - The full space for each Rules value is built once and shared read-only.

package game

import (
	"fmt"
	"sync"
)

// Score scores guess against secret under the default rules.
func Score(guess, secret Sequence) (Feedback, error) {
	return DefaultRules().Score(guess, secret)
}

// Score validates both sequences and returns the peg feedback.
//
//   - Black: positions where guess and secret agree.
//   - White: Σ over colors of min(count in guess, count in secret), minus Black.
//   - Empty: the remaining pegs.
func (r Rules) Score(guess, secret Sequence) (Feedback, error) {
	if err := r.check(guess); err != nil {
		return Feedback{}, fmt.Errorf("guess: %w", err)
	}
	if err := r.check(secret); err != nil {
		return Feedback{}, fmt.Errorf("secret: %w", err)
	}
	return score(guess.pegs, secret.pegs), nil
}

// score assumes equal lengths and colors below MaxColors.
func score(guess, secret []Color) Feedback {
	var gc, sc [MaxColors]int
	black := 0
	for i := range guess {
		if guess[i] == secret[i] {
			black++
		}
		gc[guess[i]]++
		sc[secret[i]]++
	}
	total := 0
	for c := range gc {
		total += min(gc[c], sc[c])
	}
	white := total - black
	return Feedback{Black: black, White: white, Empty: len(guess) - black - white}
}

var spaces sync.Map // Rules -> []Sequence

// FullSpace returns every code under r, in mixed-radix order with the last
// position varying fastest. The returned slice is the caller's to modify.
func (r Rules) FullSpace() ([]Sequence, error) {
	full, err := r.fullSpace()
	if err != nil {
		return nil, err
	}
	return append([]Sequence(nil), full...), nil
}

// fullSpace returns the shared, read-only enumeration for r.
func (r Rules) fullSpace() ([]Sequence, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if v, ok := spaces.Load(r); ok {
		return v.([]Sequence), nil
	}
	v, _ := spaces.LoadOrStore(r, enumerate(r))
	return v.([]Sequence), nil
}

func enumerate(r Rules) []Sequence {
	n := r.SpaceSize()
	out := make([]Sequence, 0, n)
	digits := make([]Color, r.Length)
	for i := 0; i < n; i++ {
		out = append(out, Sequence{pegs: append([]Color(nil), digits...)})
		for p := r.Length - 1; p >= 0; p-- {
			digits[p]++
			if int(digits[p]) < r.Colors {
				break
			}
			digits[p] = 0
		}
	}
	return out
}
