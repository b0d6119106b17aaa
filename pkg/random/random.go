// Package random provides short code candidates drawn from a base62 alphabet.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is the full set of characters used in generated codes and
// custom aliases. Case-sensitive, 62 characters.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Source yields one alphabet index per call. The default source is
// crypto/rand; tests inject deterministic sequences to drive the
// collision-retry path.
type Source interface {
	Index() (int, error)
}

type cryptoSource struct{}

func (cryptoSource) Index() (int, error) {
	n, err := rand.Int(rand.Reader, alphabetSize)
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// DefaultSource is the cryptographically strong source used in production.
var DefaultSource Source = cryptoSource{}

// NewRandomString returns a random string of the given length using
// DefaultSource.
func NewRandomString(length int) (string, error) {
	return NewRandomStringFrom(DefaultSource, length)
}

// NewRandomStringFrom returns a random string of the given length drawn
// from the provided source.
func NewRandomStringFrom(src Source, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid length: %d", length)
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := src.Index()
		if err != nil {
			return "", fmt.Errorf("failed to draw random index: %w", err)
		}
		b.WriteByte(Alphabet[idx%len(Alphabet)])
	}
	return b.String(), nil
}

// InAlphabet reports whether every character of s belongs to Alphabet.
func InAlphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(Alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
