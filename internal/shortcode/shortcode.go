// Package shortcode generates the public 6-character Magic Codes.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Alphabet is the character set codes are drawn from: 62 characters.
// 62^6 gives roughly 5.68e10 possible codes.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Length is the fixed length of every code.
const Length = 6

// rejectAbove is the largest multiple of len(Alphabet) that fits in a byte.
// Bytes at or above it are discarded so that every index stays equally likely.
const rejectAbove = 256 - (256 % len(Alphabet))

// Generator produces new candidate codes.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes from a random byte source.
type RandomGenerator struct {
	source io.Reader
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *RandomGenerator {
	return &RandomGenerator{source: rand.Reader}
}

// NewGeneratorFromReader returns a generator reading entropy from r.
func NewGeneratorFromReader(r io.Reader) *RandomGenerator {
	return &RandomGenerator{source: r}
}

// Generate returns a code of Length characters from Alphabet.
func (g *RandomGenerator) Generate() (string, error) {
	code := make([]byte, 0, Length)
	buf := make([]byte, Length*2)

	for len(code) < Length {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			code = append(code, Alphabet[int(b)%len(Alphabet)])
			if len(code) == Length {
				break
			}
		}
	}
	return string(code), nil
}

// Valid reports whether s has the shape of a code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
