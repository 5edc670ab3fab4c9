// Package auth gates requests on bearer tokens. A request walks
// extract → decode → kind check → revocation check before its claims
// land in the echo context; any failure rejects the request with a
// stable apperr kind.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookly/internal/apperr"
	"github.com/Skotchmaster/bookly/internal/models"
	"github.com/Skotchmaster/bookly/internal/repo"
	"github.com/Skotchmaster/bookly/internal/revocation"
	"github.com/Skotchmaster/bookly/internal/token"
)

const (
	claimsContextKey = "authClaims"
	userContextKey   = "authUser"
)

// UserDirectory resolves a token's embedded identity to a full user
// record. Returns repo.ErrUserNotFound for unknown identities.
type UserDirectory interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByUID(ctx context.Context, uid string) (*models.User, error)
}

type Guard struct {
	Codec       *token.Codec
	Revocations *revocation.Store
	Users       UserDirectory
}

// Require authenticates the request and enforces the expected token
// kind. Access and refresh gates share this code path; only the kind
// predicate differs.
func (g *Guard) Require(kind token.Kind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := g.check(c, kind)
			if err != nil {
				return err
			}
			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

func (g *Guard) check(c echo.Context, kind token.Kind) (*token.Claims, error) {
	raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return nil, err
	}

	claims, err := g.Codec.Decode(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, apperr.New(apperr.TokenExpired, "token has expired")
		}
		return nil, apperr.New(apperr.TokenInvalid, "invalid token")
	}

	if claims.Kind() != kind {
		if kind == token.KindAccess {
			return nil, apperr.New(apperr.AccessTokenRequired, "please provide a valid access token, not a refresh token")
		}
		return nil, apperr.New(apperr.RefreshTokenRequired, "please provide a valid refresh token, not an access token")
	}

	if g.Revocations.IsRevoked(c.Request().Context(), claims.ID) {
		return nil, apperr.New(apperr.TokenRevoked, "token has been revoked")
	}

	return claims, nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.New(apperr.MissingCredential, "authorization header missing")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperr.New(apperr.MissingCredential, "bearer token missing")
	}
	return parts[1], nil
}

// ResolveIdentity maps verified claims to the full user record,
// keying on the email claim and falling back to the uid claim. A
// token carrying neither is structurally broken (invalid_token); a
// well-formed token whose user has since disappeared is
// user_not_found.
func (g *Guard) ResolveIdentity(ctx context.Context, claims *token.Claims) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case claims.User.Email != "":
		user, err = g.Users.UserByEmail(ctx, claims.User.Email)
	case claims.User.UID != "":
		user, err = g.Users.UserByUID(ctx, claims.User.UID)
	default:
		return nil, apperr.New(apperr.InvalidToken, "token carries no identity claim")
	}
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, apperr.New(apperr.UserNotFound, "user for this token no longer exists")
		}
		return nil, err
	}
	return user, nil
}

// Authorize is the role gate: it passes the user through unchanged
// when their role is in the required set and fails otherwise.
func Authorize(user *models.User, roles ...string) error {
	for _, r := range roles {
		if user.Role == r {
			return nil
		}
	}
	return apperr.New(apperr.RoleNotAuthorized, "you do not have permission to perform this action")
}

// RequireRoles resolves the authenticated claims to a user and checks
// the role. Must run after Require.
func (g *Guard) RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return apperr.New(apperr.MissingCredential, "no authenticated token in context")
			}
			user, err := g.ResolveIdentity(c.Request().Context(), claims)
			if err != nil {
				return err
			}
			if err := Authorize(user, roles...); err != nil {
				return err
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func ClaimsFrom(c echo.Context) *token.Claims {
	if claims, ok := c.Get(claimsContextKey).(*token.Claims); ok {
		return claims
	}
	return nil
}

func UserFrom(c echo.Context) *models.User {
	if user, ok := c.Get(userContextKey).(*models.User); ok {
		return user
	}
	return nil
}
