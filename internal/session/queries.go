package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stronglink/stronglink/internal/db"
)

// Filter is the contract with the external query engine: given a
// connection whose transient results table exists and is empty, populate it
// with (file_id, sort) rows for the matching files.
type Filter interface {
	Exec(ctx context.Context, conn *sql.Conn) error
}

// MatchAll is the trivial filter: every file matches, sorted by file id.
type MatchAll struct{}

// Exec populates the results table with every file.
func (MatchAll) Exec(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx,
		`INSERT INTO results (file_id, sort) SELECT file_id, file_id FROM files`)
	return err
}

// FileInfo describes one stored blob.
type FileInfo struct {
	Path string // absolute filesystem path of the blob
	Type string // MIME-style content type
	Size int64  // byte count
}

// ListURIs runs the filter and returns up to max content-addressed URIs of
// the form hash://sha256/<hex>, ordered by the filter's sort descending.
// It returns nil when nothing matches. Requires an authenticated session.
func (m *Manager) ListURIs(ctx context.Context, s *Session, filter Filter, max int) ([]string, error) {
	if !s.Authenticated() {
		return nil, ErrNotAuthorized
	}
	if max <= 0 {
		return nil, nil
	}

	conn, err := m.repo.DB().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.repo.DB().Release(conn)

	var uris []string
	err = conn.Do(ctx, func(ctx context.Context, sqlc *sql.Conn) error {
		if err := db.CreateResultTables(ctx, sqlc); err != nil {
			return err
		}
		if err := filter.Exec(ctx, sqlc); err != nil {
			return err
		}
		rows, err := sqlc.QueryContext(ctx,
			`SELECT ('hash://' || ? || '/' || f.internal_hash)
			 FROM files AS f
			 INNER JOIN results AS r ON (r.file_id = f.file_id)
			 ORDER BY r.sort DESC LIMIT ?`, "sha256", max)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var uri string
			if err := rows.Scan(&uri); err != nil {
				return err
			}
			uris = append(uris, uri)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list uris: %w", err)
	}
	return uris, nil
}

// FileInfoForURI resolves a content-addressed URI to the stored blob's
// path, type and size. It returns nil when the URI is unknown. Requires an
// authenticated session.
func (m *Manager) FileInfoForURI(ctx context.Context, s *Session, uri string) (*FileInfo, error) {
	if !s.Authenticated() {
		return nil, ErrNotAuthorized
	}
	if uri == "" {
		return nil, nil
	}

	conn, err := m.repo.DB().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.repo.DB().Release(conn)

	var info *FileInfo
	err = conn.Do(ctx, func(ctx context.Context, sqlc *sql.Conn) error {
		row := sqlc.QueryRowContext(ctx,
			`SELECT f.internal_hash, f.file_type, f.file_size
			 FROM files AS f
			 LEFT JOIN file_uris AS f2 ON (f2.file_id = f.file_id)
			 LEFT JOIN uris AS u ON (u.uri_id = f2.uri_id)
			 WHERE u.uri = ? LIMIT 1`, uri)
		var hash, ftype string
		var size int64
		if err := row.Scan(&hash, &ftype, &size); err != nil {
			return err
		}
		info = &FileInfo{Path: m.repo.InternalPath(hash), Type: ftype, Size: size}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file info: %w", err)
	}
	return info, nil
}
