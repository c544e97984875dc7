package passhash

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stronglink/stronglink/internal/async"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	loop := async.New(2)
	h := New(loop, bcrypt.MinCost)

	loop.Spawn("roundtrip", func() {
		ctx := context.Background()

		hash, err := h.Hash(ctx, "correct horse battery staple")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2"))

		assert.True(t, h.Verify(ctx, "correct horse battery staple", hash))
		assert.False(t, h.Verify(ctx, "correct horse battery stapl", hash))
	})
	loop.Run()
}

func TestVerifyMalformedHashIsFalse(t *testing.T) {
	loop := async.New(2)
	h := New(loop, bcrypt.MinCost)

	loop.Spawn("malformed", func() {
		ctx := context.Background()

		for _, hash := range []string{"", "not-a-hash", "$2a$garbage", "plaintext"} {
			assert.False(t, h.Verify(ctx, "anything", hash), "hash %q", hash)
		}
	})
	loop.Run()
}

func TestHashesAreSalted(t *testing.T) {
	loop := async.New(2)
	h := New(loop, bcrypt.MinCost)

	loop.Spawn("salted", func() {
		ctx := context.Background()

		a, err := h.Hash(ctx, "same input")
		require.NoError(t, err)
		b, err := h.Hash(ctx, "same input")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
		assert.True(t, h.Verify(ctx, "same input", a))
		assert.True(t, h.Verify(ctx, "same input", b))
	})
	loop.Run()
}

func TestCostOutOfRangeFallsBack(t *testing.T) {
	loop := async.New(2)

	assert.Equal(t, DefaultCost, New(loop, -1).cost)
	assert.Equal(t, DefaultCost, New(loop, 99).cost)
	assert.Equal(t, bcrypt.MinCost, New(loop, bcrypt.MinCost).cost)
}
