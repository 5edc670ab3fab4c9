// Package revocation tracks revoked token identifiers in redis. An
// entry lives only as long as the token it revokes could still be
// valid, so the store never grows unbounded; absence means "not
// revoked".
package revocation

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const blockedValue = "blocked"

type Store struct {
	rdb        *redis.Client
	ttl        time.Duration
	enabled    bool
	failClosed bool
	log        *slog.Logger
}

type Options struct {
	// TTL is the lifetime of a revocation entry. Set it to the access
	// token TTL: that is the longest any revoked token stays usable.
	TTL     time.Duration
	Enabled bool
	// FailClosed rejects tokens when redis is unreachable. The default
	// fails open: an outage weakens revocation but keeps the API up.
	// Either way the failure is logged, never swallowed silently.
	FailClosed bool
	Logger     *slog.Logger
}

func New(rdb *redis.Client, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		rdb:        rdb,
		ttl:        opts.TTL,
		enabled:    opts.Enabled,
		failClosed: opts.FailClosed,
		log:        log,
	}
}

// Revoke inserts jti into the blocklist. Revoking an already revoked
// jti just resets its TTL.
func (s *Store) Revoke(ctx context.Context, jti string) error {
	return s.rdb.Set(ctx, jti, blockedValue, s.ttl).Err()
}

// IsRevoked reports whether jti is in the blocklist. Connectivity
// failures resolve per the fail-open/fail-closed policy and are logged.
func (s *Store) IsRevoked(ctx context.Context, jti string) bool {
	if !s.enabled {
		return false
	}
	n, err := s.rdb.Exists(ctx, jti).Result()
	if err != nil {
		if s.failClosed {
			s.log.Warn("revocation check failed, failing closed", "jti", jti, "error", err)
			return true
		}
		s.log.Warn("revocation check failed, failing open", "jti", jti, "error", err)
		return false
	}
	return n > 0
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
