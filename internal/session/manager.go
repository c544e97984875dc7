package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stronglink/stronglink/internal/async"
	"github.com/stronglink/stronglink/internal/passhash"
	"github.com/stronglink/stronglink/internal/repo"
)

var (
	// ErrAuthFailed covers every authentication outcome: unknown user,
	// wrong password, malformed cookie, unknown session, key mismatch.
	// Callers must not distinguish between them, to avoid enumeration.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotAuthorized is returned when the null session invokes an
	// operation that requires an authenticated user.
	ErrNotAuthorized = errors.New("not authorized")
)

// Session is an authenticated handle: a borrowed reference to the
// repository plus the user it speaks for. The zero-permission null session
// is represented by a Session with userID 0 and is always a legal value.
type Session struct {
	repo      *repo.Repository
	userID    int64
	sessionID int64
}

// Public returns the null session for the repository: no user, no
// permissions. It lets callers always dispatch with a session in hand.
func Public(r *repo.Repository) *Session {
	return &Session{repo: r}
}

// UserID returns the authenticated user, or 0 for the null session.
func (s *Session) UserID() int64 { return s.userID }

// SessionID returns the persistent session row backing this handle, or 0
// for the null session.
func (s *Session) SessionID() int64 { return s.sessionID }

// Repo returns the borrowed repository reference.
func (s *Session) Repo() *repo.Repository { return s.repo }

// Authenticated reports whether the session speaks for a real user.
func (s *Session) Authenticated() bool { return s != nil && s.userID > 0 }

// Free releases the handle. Idempotent and nil-safe; it never touches the
// repository, which the session only borrows.
func (s *Session) Free() {
	if s == nil {
		return
	}
	s.repo = nil
	s.userID = 0
	s.sessionID = 0
}

// Manager mints and resolves session cookies against the repository's
// users and sessions tables.
type Manager struct {
	loop   *async.Loop
	repo   *repo.Repository
	hasher *passhash.Hasher
	cache  *cookieCache

	pruneStop bool
}

// NewManager creates a session manager over the repository. cacheTTL bounds
// the verified-cookie cache; zero selects DefaultCacheTTL.
func NewManager(r *repo.Repository, hasher *passhash.Hasher, cacheTTL time.Duration) *Manager {
	return &Manager{
		loop:   r.Loop(),
		repo:   r,
		hasher: hasher,
		cache:  newCookieCache(cacheTTL),
	}
}

// Repo returns the repository the manager operates on.
func (m *Manager) Repo() *repo.Repository { return m.repo }

// CreateCookie checks the credentials and, on success, mints a new session:
// a random key is generated, its hash inserted as a sessions row, and the
// token `<sessionID>:<sessionKey>` returned. Every authentication failure
// is ErrAuthFailed; database failures pass through for the caller to
// surface as transient.
func (m *Manager) CreateCookie(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrAuthFailed
	}

	conn, err := m.repo.DB().Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer m.repo.DB().Release(conn)

	var userID int64
	var passwordHash string
	err = conn.Do(ctx, func(ctx context.Context, sqlc *sql.Conn) error {
		row := sqlc.QueryRowContext(ctx,
			`SELECT user_id, password_hash FROM users WHERE username = ?`, username)
		return row.Scan(&userID, &passwordHash)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrAuthFailed
	}
	if err != nil {
		return "", fmt.Errorf("look up user: %w", err)
	}
	if userID <= 0 || !m.hasher.Verify(ctx, password, passwordHash) {
		return "", ErrAuthFailed
	}

	sessionKey, err := newSessionKey(ctx, m.loop)
	if err != nil {
		return "", err
	}
	sessionHash, err := m.hasher.Hash(ctx, sessionKey)
	if err != nil {
		return "", err
	}

	var sessionID int64
	err = conn.Do(ctx, func(ctx context.Context, sqlc *sql.Conn) error {
		res, err := sqlc.ExecContext(ctx,
			`INSERT INTO sessions (session_hash, user_id) VALUES (?, ?)`, sessionHash, userID)
		if err != nil {
			return err
		}
		sessionID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	if sessionID <= 0 {
		return "", fmt.Errorf("insert session: invalid session id %d", sessionID)
	}

	log.Debug().Int64("user_id", userID).Int64("session_id", sessionID).Msg("session created")
	return FormatCookie(sessionID, sessionKey), nil
}

// ResolveCookie validates a raw Cookie header value and returns the session
// it proves. Malformed cookies fail before any database work. The verified
// key is cached so repeat resolutions skip the bcrypt verify; the cache is
// never written on a failed verify.
func (m *Manager) ResolveCookie(ctx context.Context, rawCookie string) (*Session, error) {
	sessionID, sessionKey := ParseCookie(rawCookie)
	if sessionID <= 0 {
		return nil, ErrAuthFailed
	}

	conn, err := m.repo.DB().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.repo.DB().Release(conn)

	var userID int64
	var sessionHash string
	err = conn.Do(ctx, func(ctx context.Context, sqlc *sql.Conn) error {
		row := sqlc.QueryRowContext(ctx,
			`SELECT user_id, session_hash FROM sessions WHERE session_id = ?`, sessionID)
		return row.Scan(&userID, &sessionHash)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuthFailed
	}
	if err != nil {
		return nil, fmt.Errorf("look up session: %w", err)
	}
	if userID <= 0 {
		return nil, ErrAuthFailed
	}

	if !m.cache.lookup(sessionID, sessionKey, time.Now()) {
		if !m.hasher.Verify(ctx, sessionKey, sessionHash) {
			return nil, ErrAuthFailed
		}
		m.cache.store(sessionID, sessionKey, time.Now())
	}

	return &Session{repo: m.repo, userID: userID, sessionID: sessionID}, nil
}

// Delete invalidates a session: the row is removed and any cached key for
// it evicted, so outstanding copies of the cookie stop resolving.
func (m *Manager) Delete(ctx context.Context, sessionID int64) error {
	if sessionID <= 0 {
		return nil
	}
	conn, err := m.repo.DB().Acquire(ctx)
	if err != nil {
		return err
	}
	defer m.repo.DB().Release(conn)

	err = conn.Do(ctx, func(ctx context.Context, sqlc *sql.Conn) error {
		_, err := sqlc.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.cache.evict(sessionID)
	log.Debug().Int64("session_id", sessionID).Msg("session deleted")
	return nil
}

// StartPruner spawns a fiber that periodically sweeps expired entries out
// of the verified-cookie cache. Stop ends it at its next tick.
func (m *Manager) StartPruner() {
	interval := m.cache.ttl / 2
	m.loop.Spawn("cookie-cache-pruner", func() {
		for !m.pruneStop {
			m.loop.Sleep(interval)
			if n := m.cache.prune(time.Now()); n > 0 {
				log.Debug().Int("evicted", n).Msg("cookie cache pruned")
			}
		}
	})
}

// Stop ends the pruner fiber at its next wakeup.
func (m *Manager) Stop() {
	m.pruneStop = true
}
