package publicid

import (
	"context"
	"crypto/rand"
	"errors"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultLength keeps tokens short enough for share URLs while
	// leaving 36^8 candidates per resource kind.
	DefaultLength = 8

	maxAttempts = 5
)

var ErrAllocationExhausted = errors.New("allocation_exhausted")

// ExistsFunc reports whether a candidate token is already taken. It is
// advisory only: the backing store's unique constraint remains the
// authority, and callers must retry write conflicts themselves.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Allocate draws candidate tokens from the alphabet with a secure
// random source until one passes the exists check, giving up after a
// fixed number of collisions.
func Allocate(ctx context.Context, length int, exists ExistsFunc) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := generate(length)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrAllocationExhausted
}

func generate(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
