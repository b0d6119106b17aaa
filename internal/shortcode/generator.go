// Package shortcode implements short code candidate generation and
// custom alias validation.
package shortcode

import (
	"errors"
	"sync"

	"LinkCut-Backend/pkg/random"
)

var (
	// ErrInvalidAlias означает, что алиас пустой, слишком короткий/длинный
	// или содержит символы вне допустимого алфавита.
	ErrInvalidAlias = errors.New("invalid alias")
	// ErrReservedAlias означает, что алиас совпадает с системным маршрутом.
	ErrReservedAlias = errors.New("alias is reserved")
)

const (
	// DefaultLength is the starting length of generated codes.
	DefaultLength = 6
	// DefaultMaxCollisions is how many consecutive insert conflicts are
	// tolerated at a given length before it grows by one.
	DefaultMaxCollisions = 3

	minAliasLength = 3
	maxAliasLength = 20
)

// DefaultReserved lists routing segments a custom alias must not collide with.
var DefaultReserved = []string{
	"links", "auth", "projects", "health", "ready", "metrics", "swagger", "api",
}

// Generator produces candidate codes. Uniqueness is enforced by the store's
// constrained insert, not here: the caller reports conflicts back via
// NoteCollision and the generator grows the code length once conflicts at
// the current length exceed the configured threshold.
type Generator struct {
	mu            sync.Mutex
	length        int
	collisions    int
	maxCollisions int
	src           random.Source
	reserved      map[string]struct{}
}

// New creates a generator with the given starting length and collision
// threshold. Zero values fall back to the defaults.
func New(length, maxCollisions int, reserved []string) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	if maxCollisions <= 0 {
		maxCollisions = DefaultMaxCollisions
	}
	if reserved == nil {
		reserved = DefaultReserved
	}

	rs := make(map[string]struct{}, len(reserved))
	for _, r := range reserved {
		rs[r] = struct{}{}
	}

	return &Generator{
		length:        length,
		maxCollisions: maxCollisions,
		src:           random.DefaultSource,
		reserved:      rs,
	}
}

// WithSource replaces the random source. Used by tests to inject
// deterministic sequences.
func (g *Generator) WithSource(src random.Source) *Generator {
	g.src = src
	return g
}

// Next returns a fresh candidate code at the current length.
func (g *Generator) Next() (string, error) {
	g.mu.Lock()
	length := g.length
	src := g.src
	g.mu.Unlock()

	return random.NewRandomStringFrom(src, length)
}

// NoteCollision records an insert conflict for a generated candidate.
// Once the consecutive conflict count reaches the threshold the code
// length grows by one and the counter resets.
func (g *Generator) NoteCollision() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.collisions++
	if g.collisions >= g.maxCollisions {
		g.length++
		g.collisions = 0
	}
}

// NoteSuccess resets the consecutive collision counter. The grown length
// is kept: a namespace that filled up once will not shrink back.
func (g *Generator) NoteSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.collisions = 0
}

// Length returns the current generated code length.
func (g *Generator) Length() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.length
}

// ValidateAlias checks a caller-chosen alias against the charset, length
// bounds and the reserved routing segments.
func (g *Generator) ValidateAlias(alias string) error {
	if len(alias) < minAliasLength || len(alias) > maxAliasLength {
		return ErrInvalidAlias
	}
	if !random.InAlphabet(alias) {
		return ErrInvalidAlias
	}
	if _, ok := g.reserved[alias]; ok {
		return ErrReservedAlias
	}
	return nil
}
