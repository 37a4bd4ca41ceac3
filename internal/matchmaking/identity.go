package matchmaking

import (
	"math/rand/v2"
	"strings"
)

const (
	// IDLength is the number of characters in a player identity.
	IDLength = 7

	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// IdentityGenerator issues short random identities.
type IdentityGenerator struct {
	intn func(n int) int
}

// NewIdentityGenerator returns a generator backed by math/rand/v2.
func NewIdentityGenerator() *IdentityGenerator {
	return &IdentityGenerator{intn: rand.IntN}
}

// Generate draws candidates until one is not reported as taken.
// It must run in the coordinator's serialized context so that a free id
// stays free until the caller inserts it.
func (g *IdentityGenerator) Generate(taken func(id string) bool) string {
	for {
		candidate := g.draw()
		if !taken(candidate) {
			return candidate
		}
	}
}

func (g *IdentityGenerator) draw() string {
	var b strings.Builder
	b.Grow(IDLength)
	for i := 0; i < IDLength; i++ {
		b.WriteByte(idAlphabet[g.intn(len(idAlphabet))])
	}
	return b.String()
}

// ValidID reports whether s has the shape of an issued identity.
func ValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(idAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
