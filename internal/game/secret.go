package game

import "math/rand/v2"

// SecretGenerator draws uniformly random codes.
type SecretGenerator struct {
	rules Rules
	intn  func(int) int
}

// NewSecretGenerator returns a generator for rules. A nil rng uses the
// package-level math/rand/v2 source, which is safe for concurrent use.
func NewSecretGenerator(rules Rules, rng *rand.Rand) *SecretGenerator {
	g := &SecretGenerator{rules: rules, intn: rand.IntN}
	if rng != nil {
		g.intn = rng.IntN
	}
	return g
}

// Generate picks every position independently and uniformly from the palette.
func (g *SecretGenerator) Generate() Sequence {
	pegs := make([]Color, g.rules.Length)
	for i := range pegs {
		pegs[i] = Color(g.intn(g.rules.Colors))
	}
	return Sequence{pegs: pegs}
}
