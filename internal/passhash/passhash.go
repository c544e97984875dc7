// Package passhash wraps bcrypt hashing behind the worker pool. Hashing and
// verification are deliberately expensive; running them inline would stall
// the loop for every login, so both suspend the calling fiber while the
// work runs off-thread.
package passhash

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/stronglink/stronglink/internal/async"
)

// DefaultCost is the bcrypt cost used when the caller does not pick one.
const DefaultCost = bcrypt.DefaultCost

// Hasher issues hash and verify operations on a loop's worker pool.
type Hasher struct {
	loop *async.Loop
	cost int
}

// New creates a hasher. A cost outside bcrypt's valid range falls back to
// DefaultCost.
func New(loop *async.Loop, cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{loop: loop, cost: cost}
}

// Hash produces a self-describing salted hash of plaintext. The calling
// fiber suspends until the worker completes.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	var out []byte
	err := h.loop.Do(ctx, func() (e error) {
		out, e = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		return e
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether plaintext matches the stored hash. Malformed
// hashes verify as false rather than erroring, so a corrupted row reads as
// an authentication failure, not an outage.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) bool {
	var ok bool
	_ = h.loop.Do(ctx, func() error {
		ok = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
		return nil
	})
	return ok
}
