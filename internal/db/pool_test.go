package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stronglink/stronglink/internal/async"
)

func openTestPool(t *testing.T, loop *async.Loop, size int) *Pool {
	t.Helper()
	pool, err := Open(loop, filepath.Join(t.TempDir(), "test.db"), size)
	require.NoError(t, err)
	require.NoError(t, pool.Bootstrap())
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestAcquireRelease(t *testing.T) {
	loop := async.New(2)
	pool := openTestPool(t, loop, 2)

	loop.Spawn("user", func() {
		ctx := context.Background()

		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, pool.InUse())

		err = conn.Do(ctx, func(ctx context.Context, sqlc *sql.Conn) error {
			var one int
			return sqlc.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
		})
		require.NoError(t, err)

		pool.Release(conn)
		assert.Equal(t, 0, pool.InUse())
		assert.Equal(t, int64(1), pool.AcquiredCount())
	})
	loop.Run()
}

func TestAcquireSuspendsWhenExhausted(t *testing.T) {
	loop := async.New(2)
	pool := openTestPool(t, loop, 1)

	var order []string
	loop.Spawn("holder", func() {
		ctx := context.Background()

		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)

		loop.Spawn("waiter", func() {
			c2, err := pool.Acquire(ctx)
			require.NoError(t, err)
			order = append(order, "waiter acquired")
			pool.Release(c2)
		})

		// The waiter runs but must suspend on the empty pool.
		loop.Yield()
		order = append(order, "holder releasing")
		pool.Release(conn)
	})
	loop.Run()

	assert.Equal(t, []string{"holder releasing", "waiter acquired"}, order)
}

func TestWaitersServedInFIFOOrder(t *testing.T) {
	loop := async.New(2)
	pool := openTestPool(t, loop, 1)

	var order []string
	loop.Spawn("holder", func() {
		ctx := context.Background()

		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)

		for _, name := range []string{"first", "second", "third"} {
			name := name
			loop.Spawn(name, func() {
				c, err := pool.Acquire(ctx)
				require.NoError(t, err)
				order = append(order, name)
				pool.Release(c)
			})
		}
		loop.Yield()
		pool.Release(conn)
	})
	loop.Run()

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSchemaBootstrapIsIdempotent(t *testing.T) {
	loop := async.New(2)
	pool := openTestPool(t, loop, 1)

	require.NoError(t, pool.Bootstrap())

	loop.Spawn("schema", func() {
		ctx := context.Background()
		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		defer pool.Release(conn)

		err = conn.Do(ctx, func(ctx context.Context, sqlc *sql.Conn) error {
			var count int
			return sqlc.QueryRowContext(ctx,
				`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN
				 ('users', 'sessions', 'files', 'file_uris', 'uris')`).Scan(&count)
		})
		require.NoError(t, err)
	})
	loop.Run()
}

func TestAcquireAfterCloseFails(t *testing.T) {
	loop := async.New(2)
	pool := openTestPool(t, loop, 1)

	loop.Spawn("closed", func() {
		require.NoError(t, pool.Close())
		_, err := pool.Acquire(context.Background())
		assert.ErrorIs(t, err, ErrPoolClosed)
	})
	loop.Run()
}
