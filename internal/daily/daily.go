package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// dayRand is a PCG source keyed by HMAC-SHA256(salt, YYYY-MM-DD).
func dayRand(date time.Time, salt string) *rand.Rand {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))
}

// Secret returns the code of the day. It is drawn by the same generator as any
// other secret, so every color is equally likely at every position.
func Secret(date time.Time, salt string, rules game.Rules) (game.Sequence, error) {
	if err := rules.Validate(); err != nil {
		return game.Sequence{}, err
	}
	return game.NewSecretGenerator(rules, dayRand(date, salt)).Generate(), nil
}
