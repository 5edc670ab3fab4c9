// Package token issues and decodes the signed, expiring bearer tokens
// used by the auth middleware. Tokens are stateless; the only mutable
// state tied to one is its revocation flag, tracked elsewhere by jti.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("token malformed")
)

// Kind distinguishes the two token variants. Both share one code path
// everywhere; only the refresh flag in the payload differs.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// Identity is the subset of the user record embedded in tokens.
// Verification status and timestamps stay out of the payload.
type Identity struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type Claims struct {
	User    Identity `json:"user"`
	Refresh bool     `json:"refresh"`
	jwt.RegisteredClaims
}

func (c *Claims) Kind() Kind {
	if c.Refresh {
		return KindRefresh
	}
	return KindAccess
}

// Codec signs and verifies tokens with a process-wide symmetric secret.
// It is stateless and safe for concurrent use.
type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret []byte, algorithm string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret is required")
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("token: unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token: algorithm %q is not a symmetric HMAC method", algorithm)
	}
	return &Codec{
		secret:     secret,
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue builds and signs a token carrying user, a fresh jti and
// exp = now + ttl. Callers that want the configured defaults should
// use IssueAccess or IssueRefresh.
func (c *Codec) Issue(user Identity, ttl time.Duration, refresh bool) (string, error) {
	claims := Claims{
		User:    user,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

func (c *Codec) IssueAccess(user Identity) (string, error) {
	return c.Issue(user, c.accessTTL, false)
}

func (c *Codec) IssueRefresh(user Identity) (string, error) {
	return c.Issue(user, c.refreshTTL, true)
}

// Decode verifies signature and expiry. A token at or past its exp
// fails with ErrExpired; any other structural or signature failure is
// ErrMalformed. It never returns claims for a token that failed
// verification.
func (c *Codec) Decode(raw string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !tkn.Valid {
		return nil, ErrMalformed
	}
	return &claims, nil
}
