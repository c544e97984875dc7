package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stronglink/stronglink/internal/async"
)

func authedSession(ctx context.Context, t *testing.T, m *Manager) *Session {
	t.Helper()
	seedUser(ctx, t, m, "alice", "pw1")
	cookie, err := m.CreateCookie(ctx, "alice", "pw1")
	require.NoError(t, err)
	sess, err := m.ResolveCookie(ctx, "s="+cookie)
	require.NoError(t, err)
	return sess
}

func TestListURIsBoundedAndOrdered(t *testing.T) {
	withManager(t, func(ctx context.Context, loop *async.Loop, m *Manager) {
		sess := authedSession(ctx, t, m)
		defer sess.Free()

		for i := 1; i <= 5; i++ {
			seedFile(ctx, t, m, fmt.Sprintf("%064d", i), "text/plain", int64(i), "")
		}

		uris, err := m.ListURIs(ctx, sess, MatchAll{}, 3)
		require.NoError(t, err)
		require.Len(t, uris, 3)

		for _, uri := range uris {
			assert.True(t, strings.HasPrefix(uri, "hash://sha256/"), "uri %q", uri)
		}
		// MatchAll sorts by file id; descending order puts the newest first.
		assert.Equal(t, "hash://sha256/"+fmt.Sprintf("%064d", 5), uris[0])
		assert.Equal(t, "hash://sha256/"+fmt.Sprintf("%064d", 3), uris[2])
	})
}

func TestListURIsEmptyResultIsNil(t *testing.T) {
	withManager(t, func(ctx context.Context, loop *async.Loop, m *Manager) {
		sess := authedSession(ctx, t, m)
		defer sess.Free()

		uris, err := m.ListURIs(ctx, sess, MatchAll{}, 10)
		require.NoError(t, err)
		assert.Nil(t, uris)
	})
}

func TestListURIsRepeatedCallsDoNotAccumulate(t *testing.T) {
	withManager(t, func(ctx context.Context, loop *async.Loop, m *Manager) {
		sess := authedSession(ctx, t, m)
		defer sess.Free()

		seedFile(ctx, t, m, strings.Repeat("a", 64), "text/plain", 1, "")

		for i := 0; i < 3; i++ {
			uris, err := m.ListURIs(ctx, sess, MatchAll{}, 10)
			require.NoError(t, err)
			assert.Len(t, uris, 1)
		}
	})
}

func TestListURIsRequiresAuthenticatedSession(t *testing.T) {
	withManager(t, func(ctx context.Context, loop *async.Loop, m *Manager) {
		_, err := m.ListURIs(ctx, Public(m.Repo()), MatchAll{}, 10)
		assert.ErrorIs(t, err, ErrNotAuthorized)

		_, err = m.ListURIs(ctx, nil, MatchAll{}, 10)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}

func TestFileInfoForURI(t *testing.T) {
	withManager(t, func(ctx context.Context, loop *async.Loop, m *Manager) {
		sess := authedSession(ctx, t, m)
		defer sess.Free()

		hash := strings.Repeat("ab", 32)
		uri := "hash://sha256/" + hash
		seedFile(ctx, t, m, hash, "text/markdown", 1234, uri)

		info, err := m.FileInfoForURI(ctx, sess, uri)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, m.Repo().InternalPath(hash), info.Path)
		assert.Equal(t, "text/markdown", info.Type)
		assert.Equal(t, int64(1234), info.Size)
	})
}

func TestFileInfoUnknownURIIsNil(t *testing.T) {
	withManager(t, func(ctx context.Context, loop *async.Loop, m *Manager) {
		sess := authedSession(ctx, t, m)
		defer sess.Free()

		info, err := m.FileInfoForURI(ctx, sess, "hash://sha256/"+strings.Repeat("0", 64))
		require.NoError(t, err)
		assert.Nil(t, info)

		info, err = m.FileInfoForURI(ctx, sess, "")
		require.NoError(t, err)
		assert.Nil(t, info)
	})
}

func TestFileInfoRequiresAuthenticatedSession(t *testing.T) {
	withManager(t, func(ctx context.Context, loop *async.Loop, m *Manager) {
		_, err := m.FileInfoForURI(ctx, Public(m.Repo()), "hash://sha256/x")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}
