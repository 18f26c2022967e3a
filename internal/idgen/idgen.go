package idgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/cockroachdb/errors"

	"live-auction/internal/auctionerrors"
)

const (
	// Alphabet is the 62-symbol set short ids are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Length of a short id.
	Length = 6
	// MaxAttempts bounds the rejection sampling loop.
	MaxAttempts = 10
)

// ExistsFunc reports whether an id is already taken
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Generator draws short ids and rejects ones already in use
type Generator struct {
	draw        func() (string, error)
	maxAttempts int
}

// New returns a Generator using crypto/rand.
func New() *Generator {
	return &Generator{draw: RandomID, maxAttempts: MaxAttempts}
}

// NewWithSource returns a Generator drawing candidates from draw. Used in tests.
func NewWithSource(draw func() (string, error), maxAttempts int) *Generator {
	return &Generator{draw: draw, maxAttempts: maxAttempts}
}

// InsertFunc stores the record under id. It must fail with
// auctionerrors.ErrDuplicateID when another writer took the id first.
type InsertFunc func(ctx context.Context, id string) error

// Insert draws candidates, skips those exists reports taken and stores the
// first free one. An insert that loses a race for its id counts as a
// collision. After maxAttempts collisions it fails with ErrIDSpaceExhausted.
func (g *Generator) Insert(ctx context.Context, exists ExistsFunc, insert InsertFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id, err := g.draw()
		if err != nil {
			return "", fmt.Errorf("idgen: draw candidate: %w", err)
		}
		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("idgen: check candidate %s: %w", id, err)
		}
		if taken {
			continue
		}
		err = insert(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, auctionerrors.ErrDuplicateID) {
			return "", err
		}
	}
	return "", fmt.Errorf("idgen: %w after %d attempts", auctionerrors.ErrIDSpaceExhausted, g.maxAttempts)
}

// RandomID returns a Length-character string over Alphabet.
func RandomID() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}
