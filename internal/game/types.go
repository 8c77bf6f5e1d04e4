// apps/go-server/internal/game/types.go
//
// Core type definitions for the Mastermind engine.
// Defines:
//   - Color:    one peg color from the closed palette.
//   - Rules:    palette size (K) and code length (L) for a round.
//   - Sequence: an immutable code of exactly L colors (a secret or a guess).
//   - Feedback: black/white/empty peg counts for a scored guess.
//   - Turn:     one (guess, feedback) entry of a round's history.

package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Color is a palette index. Display names live in the palette package.
type Color uint8

// Default palette, in index order.
const (
	Red Color = iota
	Green
	Yellow
	Blue
	Orange
	Violet
)

const (
	DefaultColors     = 6
	DefaultLength     = 4
	DefaultMaxGuesses = 10

	// MaxColors bounds the palette so scoring can count colors in a fixed array.
	MaxColors = 16
	// MaxLength bounds the code length.
	MaxLength = 12
	// maxSpace bounds K^L; the candidate space is materialized eagerly.
	maxSpace = 1 << 20
)

var (
	ErrInvalidLength     = errors.New("invalid length")
	ErrInvalidColor      = errors.New("invalid color")
	ErrEmptyCandidateSet = errors.New("empty candidate set")
	ErrInvalidRules      = errors.New("invalid rules")
)

// Rules fixes the palette size and code length shared by every sequence in a round.
type Rules struct {
	Colors int `json:"colors"` // K
	Length int `json:"length"` // L
}

// DefaultRules returns the classic 6 colors / 4 pegs board.
func DefaultRules() Rules {
	return Rules{Colors: DefaultColors, Length: DefaultLength}
}

// Validate reports whether r describes a playable board whose full space fits in memory.
func (r Rules) Validate() error {
	if r.Colors < 1 || r.Colors > MaxColors {
		return fmt.Errorf("%w: colors must be 1–%d, got %d", ErrInvalidRules, MaxColors, r.Colors)
	}
	if r.Length < 1 || r.Length > MaxLength {
		return fmt.Errorf("%w: length must be 1–%d, got %d", ErrInvalidRules, MaxLength, r.Length)
	}
	if r.SpaceSize() > maxSpace {
		return fmt.Errorf("%w: %d^%d codes exceeds %d", ErrInvalidRules, r.Colors, r.Length, maxSpace)
	}
	return nil
}

// SpaceSize returns K^L, saturating just above the supported maximum.
func (r Rules) SpaceSize() int {
	n := 1
	for i := 0; i < r.Length; i++ {
		n *= r.Colors
		if n > maxSpace {
			return maxSpace + 1
		}
	}
	return n
}

// Sequence is an ordered, immutable code of colors.
// The zero value is an empty sequence and is never valid under any Rules.
type Sequence struct {
	pegs []Color
}

// NewSequence builds a sequence under the default rules.
func NewSequence(colors ...Color) (Sequence, error) {
	return DefaultRules().NewSequence(colors...)
}

// NewSequence validates colors against r and returns them as a Sequence.
func (r Rules) NewSequence(colors ...Color) (Sequence, error) {
	s := Sequence{pegs: append([]Color(nil), colors...)}
	if err := r.check(s); err != nil {
		return Sequence{}, err
	}
	return s, nil
}

// SequenceOf converts raw palette indices, rejecting anything outside [0, K).
func (r Rules) SequenceOf(indices []int) (Sequence, error) {
	if len(indices) != r.Length {
		return Sequence{}, fmt.Errorf("%w: got %d pegs, want %d", ErrInvalidLength, len(indices), r.Length)
	}
	pegs := make([]Color, len(indices))
	for i, v := range indices {
		if v < 0 || v >= r.Colors {
			return Sequence{}, fmt.Errorf("%w: %d at position %d (palette has %d)", ErrInvalidColor, v, i, r.Colors)
		}
		pegs[i] = Color(v)
	}
	return Sequence{pegs: pegs}, nil
}

// check enforces length and color range for s under r.
func (r Rules) check(s Sequence) error {
	if len(s.pegs) != r.Length {
		return fmt.Errorf("%w: got %d pegs, want %d", ErrInvalidLength, len(s.pegs), r.Length)
	}
	for i, c := range s.pegs {
		if int(c) >= r.Colors {
			return fmt.Errorf("%w: %d at position %d (palette has %d)", ErrInvalidColor, c, i, r.Colors)
		}
	}
	return nil
}

// Len returns the number of pegs.
func (s Sequence) Len() int { return len(s.pegs) }

// At returns the color at position i.
func (s Sequence) At(i int) Color { return s.pegs[i] }

// Colors returns a copy of the pegs.
func (s Sequence) Colors() []Color { return append([]Color(nil), s.pegs...) }

// Equal reports whether both sequences match on every position.
func (s Sequence) Equal(o Sequence) bool {
	if len(s.pegs) != len(o.pegs) {
		return false
	}
	for i := range s.pegs {
		if s.pegs[i] != o.pegs[i] {
			return false
		}
	}
	return true
}

func (s Sequence) String() string {
	parts := make([]string, len(s.pegs))
	for i, c := range s.pegs {
		parts[i] = fmt.Sprint(int(c))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// MarshalJSON encodes the sequence as an array of palette indices.
func (s Sequence) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(s.pegs))
	for i, c := range s.pegs {
		ints[i] = int(c)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON decodes an array of palette indices. Only the global color bound
// is checked here; Round.Resume re-validates against the round's Rules.
func (s *Sequence) UnmarshalJSON(b []byte) error {
	var ints []int
	if err := json.Unmarshal(b, &ints); err != nil {
		return err
	}
	pegs := make([]Color, len(ints))
	for i, v := range ints {
		if v < 0 || v >= MaxColors {
			return fmt.Errorf("%w: %d at position %d", ErrInvalidColor, v, i)
		}
		pegs[i] = Color(v)
	}
	s.pegs = pegs
	return nil
}

// Feedback is the peg count for one scored guess.
type Feedback struct {
	Black int `json:"black"` // right color, right position
	White int `json:"white"` // right color, wrong position
	Empty int `json:"empty"` // Length - Black - White
}

// Solved reports whether the feedback is an exact match for a code of the given length.
func (f Feedback) Solved(length int) bool { return f.Black == length }

func (f Feedback) String() string {
	return fmt.Sprintf("black=%d white=%d empty=%d", f.Black, f.White, f.Empty)
}

// Turn is one entry in a round's history.
type Turn struct {
	Guess    Sequence `json:"guess"`
	Feedback Feedback `json:"feedback"`
}
