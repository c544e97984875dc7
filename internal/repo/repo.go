// Package repo owns the process-wide repository handle: the data directory,
// the database connection pool, and the startup random seed. A repository
// is created once at startup, shared by reference, and outlives every
// session that borrows it.
package repo

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/stronglink/stronglink/internal/async"
	"github.com/stronglink/stronglink/internal/db"
)

const (
	dataDirName  = "data"
	databaseName = "stronglink.db"
	dirPerm      = 0o755
)

// Repository is the handle to a data directory and its derived state.
type Repository struct {
	loop *async.Loop
	path string
	pool *db.Pool
	seed [32]byte
}

// Open prepares the repository at path: creates the directory layout, seeds
// the repository's random state from the cryptographic source, and opens
// the connection pool. It must run on a fiber (it uses the async facade for
// directory creation).
func Open(loop *async.Loop, path string, poolSize int) (*Repository, error) {
	r := &Repository{loop: loop, path: path}

	ctx := context.Background()
	if err := loop.MkdirAll(ctx, filepath.Join(path, dataDirName), dirPerm); err != nil {
		return nil, fmt.Errorf("create repository layout: %w", err)
	}
	if err := loop.Random(ctx, r.seed[:]); err != nil {
		return nil, fmt.Errorf("seed repository: %w", err)
	}

	pool, err := db.Open(loop, filepath.Join(path, databaseName), poolSize)
	if err != nil {
		return nil, err
	}
	if err := pool.Bootstrap(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	r.pool = pool

	log.Info().Str("path", path).Msg("repository opened")
	return r, nil
}

// Path returns the repository's root directory.
func (r *Repository) Path() string { return r.path }

// DB returns the repository's connection pool.
func (r *Repository) DB() *db.Pool { return r.pool }

// Loop returns the loop the repository is bound to.
func (r *Repository) Loop() *async.Loop { return r.loop }

// InternalPath maps an internal content hash to the absolute path of the
// stored blob, sharded by the first two hash characters.
func (r *Repository) InternalPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(r.path, dataDirName, hash)
	}
	return filepath.Join(r.path, dataDirName, hash[:2], hash)
}

// TempPath returns a fresh scratch pathname inside the repository, suitable
// for staging a blob before linking it into place.
func (r *Repository) TempPath(ctx context.Context) (string, error) {
	return r.loop.TempName(ctx, r.path, "stronglink-")
}

// Close releases the repository's pool. Sessions still referencing the
// repository keep their handle but any further database work fails.
func (r *Repository) Close() error {
	return r.pool.Close()
}
