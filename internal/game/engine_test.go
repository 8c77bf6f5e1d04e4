package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seq builds a default-rules sequence or fails the test.
func seq(t *testing.T, colors ...Color) Sequence {
	t.Helper()
	s, err := NewSequence(colors...)
	require.NoError(t, err)
	return s
}

func TestScoreMixedMatches(t *testing.T) {
	secret := seq(t, Red, Green, Yellow, Blue)
	guess := seq(t, Red, Yellow, Green, Orange)

	fb, err := Score(guess, secret)
	require.NoError(t, err)
	assert.Equal(t, Feedback{Black: 1, White: 2, Empty: 1}, fb)
}

func TestScoreExactMatch(t *testing.T) {
	s := seq(t, Violet, Violet, Red, Orange)
	fb, err := Score(s, s)
	require.NoError(t, err)
	assert.Equal(t, Feedback{Black: 4}, fb)
	assert.True(t, fb.Solved(DefaultLength))
}

func TestScoreDisjointColors(t *testing.T) {
	fb, err := Score(seq(t, Red, Red, Green, Green), seq(t, Blue, Orange, Violet, Yellow))
	require.NoError(t, err)
	assert.Equal(t, Feedback{Empty: 4}, fb)
}

func TestScoreRepeatsCountedAsMultiset(t *testing.T) {
	cases := []struct {
		name          string
		guess, secret []Color
		want          Feedback
	}{
		{"swapped pairs", []Color{Green, Green, Yellow, Yellow}, []Color{Yellow, Yellow, Green, Green}, Feedback{White: 4}},
		{"extra copies in guess", []Color{Red, Red, Red, Red}, []Color{Red, Green, Blue, Blue}, Feedback{Black: 1, Empty: 3}},
		{"extra copies in secret", []Color{Red, Green, Blue, Orange}, []Color{Blue, Blue, Red, Blue}, Feedback{White: 2, Empty: 2}},
		{"two black two white", []Color{Red, Red, Green, Green}, []Color{Red, Green, Red, Green}, Feedback{Black: 2, White: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb, err := Score(seq(t, tc.guess...), seq(t, tc.secret...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, fb)
		})
	}
}

func TestScoreRejectsInvalidInput(t *testing.T) {
	good := seq(t, Red, Green, Yellow, Blue)

	short, err := Rules{Colors: 6, Length: 3}.NewSequence(Red, Green, Yellow)
	require.NoError(t, err)
	_, err = Score(short, good)
	assert.ErrorIs(t, err, ErrInvalidLength)
	_, err = Score(good, short)
	assert.ErrorIs(t, err, ErrInvalidLength)

	wide, err := Rules{Colors: 8, Length: 4}.NewSequence(Red, Green, Yellow, 7)
	require.NoError(t, err)
	_, err = Score(wide, good)
	assert.ErrorIs(t, err, ErrInvalidColor)

	_, err = Score(Sequence{}, good)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestNewSequenceValidation(t *testing.T) {
	_, err := NewSequence(Red, Green, Yellow)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = NewSequence(Red, Green, Yellow, Color(6))
	assert.ErrorIs(t, err, ErrInvalidColor)

	rules := DefaultRules()
	_, err = rules.SequenceOf([]int{0, 1, -1, 2})
	assert.ErrorIs(t, err, ErrInvalidColor)
	_, err = rules.SequenceOf([]int{0, 1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrInvalidLength)

	s, err := rules.SequenceOf([]int{5, 4, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, []Color{Violet, Orange, Blue, Yellow}, s.Colors())
}

func TestSequenceImmutable(t *testing.T) {
	colors := []Color{Red, Green, Yellow, Blue}
	s := seq(t, colors...)
	colors[0] = Violet
	assert.Equal(t, Red, s.At(0))

	out := s.Colors()
	out[1] = Violet
	assert.Equal(t, Green, s.At(1))
}

// Exhaustive on a small board, where every pair can be checked.
func TestScorePropertiesExhaustive(t *testing.T) {
	rules := Rules{Colors: 4, Length: 3}
	space, err := rules.FullSpace()
	require.NoError(t, err)

	for _, a := range space {
		self, err := rules.Score(a, a)
		require.NoError(t, err)
		require.Equal(t, Feedback{Black: rules.Length}, self)

		for _, b := range space {
			ab, err := rules.Score(a, b)
			require.NoError(t, err)
			ba, err := rules.Score(b, a)
			require.NoError(t, err)

			require.Equal(t, ab, ba, "symmetry for %v %v", a, b)
			require.GreaterOrEqual(t, ab.Black, 0)
			require.GreaterOrEqual(t, ab.White, 0)
			require.LessOrEqual(t, ab.Black+ab.White, rules.Length)
			require.Equal(t, rules.Length, ab.Black+ab.White+ab.Empty)
			require.Equal(t, a.Equal(b), ab.Solved(rules.Length))
		}
	}
}

func TestScorePropertiesSampled(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	gen := NewSecretGenerator(DefaultRules(), rng)
	for i := 0; i < 5000; i++ {
		a, b := gen.Generate(), gen.Generate()
		ab, err := Score(a, b)
		require.NoError(t, err)
		ba, err := Score(b, a)
		require.NoError(t, err)
		require.Equal(t, ab, ba)
		require.LessOrEqual(t, ab.Black+ab.White, DefaultLength)
	}
}

func TestFullSpaceDefault(t *testing.T) {
	space, err := DefaultRules().FullSpace()
	require.NoError(t, err)
	require.Len(t, space, 1296)

	seen := make(map[string]struct{}, len(space))
	for _, s := range space {
		require.Equal(t, DefaultLength, s.Len())
		for i := 0; i < s.Len(); i++ {
			require.Less(t, int(s.At(i)), DefaultColors)
		}
		seen[s.String()] = struct{}{}
	}
	assert.Len(t, seen, 1296)

	assert.Equal(t, "[0 0 0 0]", space[0].String())
	assert.Equal(t, "[0 0 0 1]", space[1].String())
	assert.Equal(t, "[5 5 5 5]", space[len(space)-1].String())
}

func TestFullSpaceReturnsPrivateCopy(t *testing.T) {
	a, err := DefaultRules().FullSpace()
	require.NoError(t, err)
	a[0] = seq(t, Violet, Violet, Violet, Violet)

	b, err := DefaultRules().FullSpace()
	require.NoError(t, err)
	assert.Equal(t, "[0 0 0 0]", b[0].String())
}

func TestRulesValidate(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())
	assert.NoError(t, Rules{Colors: 1, Length: 1}.Validate())
	assert.ErrorIs(t, Rules{Colors: 0, Length: 4}.Validate(), ErrInvalidRules)
	assert.ErrorIs(t, Rules{Colors: MaxColors + 1, Length: 4}.Validate(), ErrInvalidRules)
	assert.ErrorIs(t, Rules{Colors: 6, Length: 0}.Validate(), ErrInvalidRules)
	assert.ErrorIs(t, Rules{Colors: 16, Length: 8}.Validate(), ErrInvalidRules)

	_, err := Rules{Colors: 16, Length: 8}.FullSpace()
	assert.ErrorIs(t, err, ErrInvalidRules)
}

func TestSecretGenerator(t *testing.T) {
	rules := Rules{Colors: 3, Length: 5}
	a := NewSecretGenerator(rules, rand.New(rand.NewPCG(1, 2)))
	b := NewSecretGenerator(rules, rand.New(rand.NewPCG(1, 2)))

	seen := map[Color]bool{}
	for i := 0; i < 200; i++ {
		s := a.Generate()
		require.Equal(t, s, b.Generate(), "same seed, same secrets")
		require.Equal(t, rules.Length, s.Len())
		for j := 0; j < s.Len(); j++ {
			require.Less(t, int(s.At(j)), rules.Colors)
			seen[s.At(j)] = true
		}
	}
	assert.Len(t, seen, rules.Colors)

	s := NewSecretGenerator(DefaultRules(), nil).Generate()
	_, err := Score(s, s)
	assert.NoError(t, err)
}
