package shared

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, "", time.Hour), mr
}

func TestSessionIssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	store, mr := newSessionStore(t)

	token, err := store.Issue(ctx, 42)
	require.NoError(t, err)
	assert.True(t, mr.Exists("hrms:session:"+token))

	id, err := store.Resolve(ctx, " "+token+" ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.NoError(t, store.Revoke(ctx, token))
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newSessionStore(t)

	require.NoError(t, store.IssueFixed(ctx, "dev-admin", 1))
	mr.FastForward(2 * time.Hour)
	_, err := store.Resolve(ctx, "dev-admin")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	store, mr := newSessionStore(t)

	_, err := store.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, mr.Set("hrms:session:bad", "not-a-number"))
	_, err = store.Resolve(ctx, "bad")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = store.Issue(ctx, 0)
	assert.Error(t, err)
	assert.Error(t, store.IssueFixed(ctx, " ", 1))
}

func TestTokenFromRequest(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer  xyz ":   "xyz",
		"Basic dXNlcg==": "",
		"Bearer":         "",
	}
	for header, want := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, TokenFromRequest(req), header)
	}
}
