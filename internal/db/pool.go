// Package db provides the bounded SQLite connection pool. Connections are
// checked out by a fiber for the duration of its suspending database work
// and returned afterwards; when the pool is empty the acquiring fiber
// suspends on a FIFO wait queue.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/stronglink/stronglink/internal/async"
	"github.com/stronglink/stronglink/internal/retry"
)

var (
	// ErrPoolClosed indicates the connection pool has been shut down.
	ErrPoolClosed = errors.New("connection pool is closed")
)

// DefaultPoolSize is the number of connections opened when the caller does
// not specify one. The pool is deliberately small: each connection is held
// only across one operation's suspending work.
const DefaultPoolSize = 4

// Conn is a pooled connection. Its Do method is the only way to touch the
// database: the closure runs on the worker pool while the owning fiber is
// suspended, so SQLite's blocking I/O never stalls the loop.
type Conn struct {
	pool *Pool
	sqlc *sql.Conn
}

// Pool is a fixed set of connections over one SQLite database file.
// All Acquire/Release calls happen on loop fibers, so the free list and
// wait queue need no locking.
type Pool struct {
	loop *async.Loop
	db   *sql.DB
	size int

	free    []*Conn
	waiters []waiter
	closed  bool

	acquired int64
}

type waiter struct {
	fiber *async.Fiber
	conn  **Conn
}

// Open opens the database at path and populates the pool with size
// connections. It is called during startup, before any fiber contends for
// the pool, and may block.
func Open(loop *async.Loop, path string, size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	sdb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sdb.SetMaxOpenConns(size)
	sdb.SetMaxIdleConns(size)

	p := &Pool{loop: loop, db: sdb, size: size}
	for i := 0; i < size; i++ {
		sqlc, err := sdb.Conn(context.Background())
		if err != nil {
			_ = sdb.Close()
			return nil, fmt.Errorf("populate pool: %w", err)
		}
		p.free = append(p.free, &Conn{pool: p, sqlc: sqlc})
	}

	log.Debug().Str("path", path).Int("connections", size).Msg("database pool opened")
	return p, nil
}

// Acquire checks a connection out of the pool. When every connection is in
// use the calling fiber suspends until one is returned. Waiters are served
// in FIFO order.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.closed {
		return nil, ErrPoolClosed
	}
	if len(p.free) > 0 {
		c := p.free[0]
		p.free = p.free[1:]
		p.acquired++
		return c, nil
	}
	f := p.loop.Current()
	var c *Conn
	p.waiters = append(p.waiters, waiter{fiber: f, conn: &c})
	p.loop.Park()
	if c == nil {
		return nil, ErrPoolClosed
	}
	p.acquired++
	return c, nil
}

// Release returns a connection to the pool, handing it directly to the head
// waiter if one is suspended.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}
	if p.closed {
		_ = c.sqlc.Close()
		return
	}
	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		*w.conn = c
		p.loop.Wakeup(w.fiber)
		return
	}
	p.free = append(p.free, c)
}

// AcquiredCount returns the number of successful checkouts since the pool
// opened. Used by tests to assert an operation never touched the database.
func (p *Pool) AcquiredCount() int64 {
	return p.acquired
}

// InUse returns how many connections are currently checked out.
func (p *Pool) InUse() int {
	return p.size - len(p.free)
}

// Do runs fn against the underlying connection on the worker pool while the
// owning fiber is suspended. Transient SQLITE_BUSY/SQLITE_LOCKED failures
// are retried with backoff.
func (c *Conn) Do(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	return c.pool.loop.Do(ctx, func() error {
		return retry.DoWithConfig(ctx, retry.DatabaseConfig(), func() error {
			err := fn(ctx, c.sqlc)
			if err != nil && !isBusy(err) {
				return retry.Permanent(err)
			}
			return err
		})
	})
}

func isBusy(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

// Close drains the free list, fails any suspended waiters, and closes the
// database. Connections still checked out are closed as they would be
// returned; callers are expected to have finished their work.
func (p *Pool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	for _, w := range p.waiters {
		p.loop.Wakeup(w.fiber)
	}
	p.waiters = nil
	for _, c := range p.free {
		_ = c.sqlc.Close()
	}
	p.free = nil
	err := p.db.Close()
	log.Debug().Msg("database pool closed")
	return err
}
