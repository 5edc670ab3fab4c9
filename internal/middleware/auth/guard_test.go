package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookly/internal/apperr"
	"github.com/Skotchmaster/bookly/internal/models"
	"github.com/Skotchmaster/bookly/internal/repo"
	"github.com/Skotchmaster/bookly/internal/revocation"
	"github.com/Skotchmaster/bookly/internal/token"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Book{}))
	return db
}

func newTestGuard(t *testing.T) (*Guard, *gorm.DB) {
	t.Helper()
	db := initTestDB(t)

	codec, err := token.NewCodec([]byte("test-secret"), "HS256", time.Hour, 7*24*time.Hour)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := revocation.New(rdb, revocation.Options{
		TTL:     time.Hour,
		Enabled: true,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	guard := &Guard{
		Codec:       codec,
		Revocations: store,
		Users:       &repo.UserRepo{DB: db},
	}
	return guard, db
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     "test_user",
		Email:        "test@example.com",
		PasswordHash: "irrelevant",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func identityOf(u *models.User) token.Identity {
	return token.Identity{UID: u.UID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func runGate(t *testing.T, g *Guard, kind token.Kind, authorization string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := g.Require(kind)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return c, handler(c)
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := apperr.KindOf(err)
	require.True(t, ok, "expected apperr, got %v", err)
	require.Equal(t, kind, got)
}

func TestGateAccepts(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	raw, err := guard.Codec.IssueAccess(identityOf(user))
	require.NoError(t, err)

	c, err := runGate(t, guard, token.KindAccess, "Bearer "+raw)
	require.NoError(t, err)

	claims := ClaimsFrom(c)
	require.NotNil(t, claims)
	require.Equal(t, user.Email, claims.User.Email)
	require.False(t, claims.Refresh)
}

func TestGateMissingCredential(t *testing.T) {
	guard, _ := newTestGuard(t)

	_, err := runGate(t, guard, token.KindAccess, "")
	requireKind(t, err, apperr.MissingCredential)

	_, err = runGate(t, guard, token.KindAccess, "Basic dXNlcjpwYXNz")
	requireKind(t, err, apperr.MissingCredential)
}

func TestGateExpired(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	raw, err := guard.Codec.Issue(identityOf(user), 0, false)
	require.NoError(t, err)

	_, err = runGate(t, guard, token.KindAccess, "Bearer "+raw)
	requireKind(t, err, apperr.TokenExpired)
}

func TestGateInvalid(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	other, err := token.NewCodec([]byte("different-secret"), "HS256", time.Hour, time.Hour)
	require.NoError(t, err)
	raw, err := other.IssueAccess(identityOf(user))
	require.NoError(t, err)

	_, err = runGate(t, guard, token.KindAccess, "Bearer "+raw)
	requireKind(t, err, apperr.TokenInvalid)

	_, err = runGate(t, guard, token.KindAccess, "Bearer garbage")
	requireKind(t, err, apperr.TokenInvalid)
}

func TestGateKindMismatch(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	access, err := guard.Codec.IssueAccess(identityOf(user))
	require.NoError(t, err)
	refresh, err := guard.Codec.IssueRefresh(identityOf(user))
	require.NoError(t, err)

	_, err = runGate(t, guard, token.KindAccess, "Bearer "+refresh)
	requireKind(t, err, apperr.AccessTokenRequired)

	_, err = runGate(t, guard, token.KindRefresh, "Bearer "+access)
	requireKind(t, err, apperr.RefreshTokenRequired)
}

func TestGateRevoked(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	raw, err := guard.Codec.IssueAccess(identityOf(user))
	require.NoError(t, err)

	claims, err := guard.Codec.Decode(raw)
	require.NoError(t, err)
	require.NoError(t, guard.Revocations.Revoke(context.Background(), claims.ID))

	_, err = runGate(t, guard, token.KindAccess, "Bearer "+raw)
	requireKind(t, err, apperr.TokenRevoked)
}

func TestResolveIdentity(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	raw, err := guard.Codec.IssueAccess(identityOf(user))
	require.NoError(t, err)
	claims, err := guard.Codec.Decode(raw)
	require.NoError(t, err)

	resolved, err := guard.ResolveIdentity(context.Background(), claims)
	require.NoError(t, err)
	require.Equal(t, user.UID, resolved.UID)
}

func TestResolveIdentityUserGone(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	raw, err := guard.Codec.IssueAccess(identityOf(user))
	require.NoError(t, err)
	claims, err := guard.Codec.Decode(raw)
	require.NoError(t, err)

	// token stays valid, but the user behind it disappeared
	require.NoError(t, db.Delete(&models.User{}, "uid = ?", user.UID).Error)

	_, err = guard.ResolveIdentity(context.Background(), claims)
	requireKind(t, err, apperr.UserNotFound)
}

func TestResolveIdentityByUID(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	// no email claim, resolution falls back to the uid claim
	raw, err := guard.Codec.IssueAccess(token.Identity{UID: user.UID})
	require.NoError(t, err)
	claims, err := guard.Codec.Decode(raw)
	require.NoError(t, err)

	resolved, err := guard.ResolveIdentity(context.Background(), claims)
	require.NoError(t, err)
	require.Equal(t, user.Email, resolved.Email)

	unknown, err := guard.Codec.IssueAccess(token.Identity{UID: "00000000-0000-0000-0000-000000000000"})
	require.NoError(t, err)
	claims, err = guard.Codec.Decode(unknown)
	require.NoError(t, err)

	_, err = guard.ResolveIdentity(context.Background(), claims)
	requireKind(t, err, apperr.UserNotFound)
}

func TestResolveIdentityNoClaim(t *testing.T) {
	guard, _ := newTestGuard(t)

	raw, err := guard.Codec.IssueAccess(token.Identity{})
	require.NoError(t, err)
	claims, err := guard.Codec.Decode(raw)
	require.NoError(t, err)

	_, err = guard.ResolveIdentity(context.Background(), claims)
	requireKind(t, err, apperr.InvalidToken)
}

func TestAuthorize(t *testing.T) {
	user := &models.User{Role: "user"}

	require.NoError(t, Authorize(user, "user", "admin"))
	requireKind(t, Authorize(user, "admin"), apperr.RoleNotAuthorized)
	requireKind(t, Authorize(user), apperr.RoleNotAuthorized)
}

func TestRequireRoles(t *testing.T) {
	guard, db := newTestGuard(t)
	user := createUser(t, db, "user")

	raw, err := guard.Codec.IssueAccess(identityOf(user))
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := guard.Require(token.KindAccess)(
		guard.RequireRoles("user", "admin")(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}))
	require.NoError(t, handler(c))

	resolved := UserFrom(c)
	require.NotNil(t, resolved)
	require.Equal(t, user.UID, resolved.UID)

	// same token, stricter role requirement
	c2 := e.NewContext(req, httptest.NewRecorder())
	adminOnly := guard.Require(token.KindAccess)(
		guard.RequireRoles("admin")(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}))
	requireKind(t, adminOnly(c2), apperr.RoleNotAuthorized)
}
