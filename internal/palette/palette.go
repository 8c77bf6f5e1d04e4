// apps/go-server/internal/palette/palette.go
//
// Display names for palette colors and parsing of player input.
//
// Responsibilities:
//   - Load color names from a YAML file or fall back to the embedded default.
//   - Map colors to names for responses, and names or numbers back to colors.
//   - Turn free-text guesses ("red yellow green orange" or "1 3 2 5") into
//     validated game.Sequence values before they reach the engine.
//
// File format:
//   colors:
//     - Red
//     - Green
//
// Constraints:
//   • Names are unique (case-insensitive) and must not be plain numbers.
//   • At most game.MaxColors names.
//   • Numeric input is 1-based, the way players count.

package palette

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/mastermind/apps/go-server/assets"
	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
)

// Palette is an ordered list of color names. Index i names game.Color(i).
type Palette struct {
	names []string
	index map[string]game.Color // lowercase name -> color
}

type paletteFile struct {
	Colors []string `yaml:"colors"`
}

var (
	defaultOnce sync.Once
	defaultPal  *Palette
	defaultErr  error
)

// Default returns the embedded palette, parsed once.
func Default() (*Palette, error) {
	defaultOnce.Do(func() {
		b, err := assets.PaletteYAML()
		if err != nil {
			defaultErr = err
			return
		}
		defaultPal, defaultErr = Parse(b)
	})
	return defaultPal, defaultErr
}

// Load reads a palette file; an empty path means the embedded default.
func Load(path string) (*Palette, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML palette definition.
func Parse(data []byte) (*Palette, error) {
	var f paletteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	if len(f.Colors) == 0 {
		return nil, errors.New("palette: no colors defined")
	}
	if len(f.Colors) > game.MaxColors {
		return nil, fmt.Errorf("palette: %d colors, at most %d supported", len(f.Colors), game.MaxColors)
	}
	p := &Palette{index: make(map[string]game.Color, len(f.Colors))}
	for i, name := range f.Colors {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		switch {
		case name == "":
			return nil, fmt.Errorf("palette: color %d has no name", i+1)
		case isNumber(name):
			return nil, fmt.Errorf("palette: color name %q clashes with numeric input", name)
		}
		if _, dup := p.index[key]; dup {
			return nil, fmt.Errorf("palette: duplicate color %q", name)
		}
		p.index[key] = game.Color(i)
		p.names = append(p.names, name)
	}
	return p, nil
}

// Len returns the number of named colors.
func (p *Palette) Len() int { return len(p.names) }

// Supports reports whether every color under rules has a name.
func (p *Palette) Supports(rules game.Rules) error {
	if rules.Colors > len(p.names) {
		return fmt.Errorf("palette: %d colors configured but only %d named", rules.Colors, len(p.names))
	}
	return nil
}

// Names returns the first k names (all when k <= 0 or larger than the palette).
func (p *Palette) Names(k int) []string {
	if k <= 0 || k > len(p.names) {
		k = len(p.names)
	}
	return append([]string(nil), p.names[:k]...)
}

// Name returns the display name for c.
func (p *Palette) Name(c game.Color) string {
	if int(c) < len(p.names) {
		return p.names[c]
	}
	return "Color" + strconv.Itoa(int(c)+1)
}

// Describe names every peg of s.
func (p *Palette) Describe(s game.Sequence) []string {
	out := make([]string, s.Len())
	for i := range out {
		out[i] = p.Name(s.At(i))
	}
	return out
}

// ParseSequence parses pegs separated by spaces or commas. Each peg is a color
// name (any case) or its 1-based number. Errors wrap game.ErrInvalidLength or
// game.ErrInvalidColor.
func (p *Palette) ParseSequence(input string, rules game.Rules) (game.Sequence, error) {
	tokens := strings.FieldsFunc(input, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	if len(tokens) != rules.Length {
		return game.Sequence{}, fmt.Errorf("%w: got %d pegs, want %d", game.ErrInvalidLength, len(tokens), rules.Length)
	}
	colors := make([]game.Color, len(tokens))
	for i, tok := range tokens {
		c, err := p.parsePeg(tok, rules)
		if err != nil {
			return game.Sequence{}, err
		}
		colors[i] = c
	}
	return rules.NewSequence(colors...)
}

func (p *Palette) parsePeg(tok string, rules game.Rules) (game.Color, error) {
	if n, err := strconv.Atoi(tok); err == nil {
		if n < 1 || n > rules.Colors {
			return 0, fmt.Errorf("%w: %d is not between 1 and %d", game.ErrInvalidColor, n, rules.Colors)
		}
		return game.Color(n - 1), nil
	}
	c, ok := p.index[strings.ToLower(tok)]
	if !ok || int(c) >= rules.Colors {
		return 0, fmt.Errorf("%w: %q", game.ErrInvalidColor, tok)
	}
	return c, nil
}

// isNumber reports whether s parses as an integer.
func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
