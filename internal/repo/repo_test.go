package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stronglink/stronglink/internal/async"
)

func TestOpenCreatesLayout(t *testing.T) {
	loop := async.New(2)
	dir := filepath.Join(t.TempDir(), "repo")

	loop.Spawn("open", func() {
		r, err := Open(loop, dir, 2)
		require.NoError(t, err)
		defer func() { _ = r.Close() }()

		assert.Equal(t, dir, r.Path())
		assert.NotNil(t, r.DB())
		assert.Same(t, loop, r.Loop())

		info, err := os.Stat(filepath.Join(dir, "data"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		_, err = os.Stat(filepath.Join(dir, "stronglink.db"))
		assert.NoError(t, err)
	})
	loop.Run()
}

func TestOpenSeedsRandomState(t *testing.T) {
	loop := async.New(2)

	loop.Spawn("seed", func() {
		r, err := Open(loop, filepath.Join(t.TempDir(), "repo"), 1)
		require.NoError(t, err)
		defer func() { _ = r.Close() }()

		assert.NotEqual(t, [32]byte{}, r.seed)
	})
	loop.Run()
}

func TestInternalPathSharding(t *testing.T) {
	r := &Repository{path: "/srv/repo"}

	assert.Equal(t, "/srv/repo/data/ab/abcdef", r.InternalPath("abcdef"))
	assert.Equal(t, "/srv/repo/data/x", r.InternalPath("x"))
}
