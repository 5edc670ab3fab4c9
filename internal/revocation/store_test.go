package revocation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts Options) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}
	return New(rdb, opts), mr
}

func TestRevokeAndCheck(t *testing.T) {
	store, _ := newTestStore(t, Options{Enabled: true})
	ctx := context.Background()

	require.False(t, store.IsRevoked(ctx, "never-revoked-jti"))

	require.NoError(t, store.Revoke(ctx, "jti-1"))
	require.True(t, store.IsRevoked(ctx, "jti-1"))
}

func TestRevokeIdempotent(t *testing.T) {
	store, _ := newTestStore(t, Options{Enabled: true})
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1"))
	require.NoError(t, store.Revoke(ctx, "jti-1"))
	require.True(t, store.IsRevoked(ctx, "jti-1"))
}

func TestRevokeSetsTTL(t *testing.T) {
	store, mr := newTestStore(t, Options{Enabled: true, TTL: 30 * time.Minute})
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1"))
	require.Equal(t, 30*time.Minute, mr.TTL("jti-1"))

	// entries self-expire with the token they revoke
	mr.FastForward(31 * time.Minute)
	require.False(t, store.IsRevoked(ctx, "jti-1"))
}

func TestCheckDisabled(t *testing.T) {
	store, _ := newTestStore(t, Options{Enabled: false})
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1"))
	require.False(t, store.IsRevoked(ctx, "jti-1"))
}

func TestFailOpen(t *testing.T) {
	store, mr := newTestStore(t, Options{Enabled: true})
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1"))
	mr.Close()

	require.False(t, store.IsRevoked(ctx, "jti-1"))
}

func TestFailClosed(t *testing.T) {
	store, mr := newTestStore(t, Options{Enabled: true, FailClosed: true})
	ctx := context.Background()

	mr.Close()

	require.True(t, store.IsRevoked(ctx, "any-jti"))
}
