package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the subset of the repository schema this build owns. The file
// tables are consumed read-only by session queries but created here so a
// fresh repository is immediately usable.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id INTEGER PRIMARY KEY,
		session_hash TEXT NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		file_id INTEGER PRIMARY KEY,
		internal_hash TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_size INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS uris (
		uri_id INTEGER PRIMARY KEY,
		uri TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS file_uris (
		file_id INTEGER NOT NULL REFERENCES files (file_id),
		uri_id INTEGER NOT NULL REFERENCES uris (uri_id),
		PRIMARY KEY (file_id, uri_id)
	)`,
	`CREATE INDEX IF NOT EXISTS files_internal_hash ON files (internal_hash)`,
}

// Bootstrap creates any missing tables. Like Open it runs during startup
// and may block.
func (p *Pool) Bootstrap() error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(context.Background(), stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

// CreateResultTables creates the transient results table the filter engine
// populates before a list query, clearing any rows left from a previous
// query on the same connection.
func CreateResultTables(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx,
		`CREATE TEMP TABLE IF NOT EXISTS results (
			file_id INTEGER NOT NULL,
			sort INTEGER NOT NULL
		)`); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, `DELETE FROM results`)
	return err
}
