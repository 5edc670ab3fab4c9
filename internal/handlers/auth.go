package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookly/internal/apperr"
	"github.com/Skotchmaster/bookly/internal/hash"
	"github.com/Skotchmaster/bookly/internal/logging"
	authmw "github.com/Skotchmaster/bookly/internal/middleware/auth"
	"github.com/Skotchmaster/bookly/internal/models"
	"github.com/Skotchmaster/bookly/internal/mykafka"
	"github.com/Skotchmaster/bookly/internal/repo"
	"github.com/Skotchmaster/bookly/internal/revocation"
	"github.com/Skotchmaster/bookly/internal/token"
)

const minPasswordLength = 8

type AuthHandler struct {
	Users       *repo.UserRepo
	Codec       *token.Codec
	Revocations *revocation.Store
	Producer    *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", "user_events", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.ValidationFailed, "invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return apperr.New(apperr.ValidationFailed, "username, email and password are required")
	}
	if len(req.Password) < minPasswordLength {
		return apperr.New(apperr.ValidationFailed, fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not hash password")
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := h.Users.Create(c.Request().Context(), &user); err != nil {
		if errors.Is(err, repo.ErrUserExists) {
			return apperr.New(apperr.UserAlreadyExists, "user with this email or username already exists")
		}
		return err
	}

	h.publish(c, user.UID, map[string]any{
		"type":     "user_registered",
		"uid":      user.UID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.ValidationFailed, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.New(apperr.ValidationFailed, "email and password are required")
	}

	user, err := h.Users.UserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return apperr.New(apperr.InvalidCredentials, "invalid email or password")
		}
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return apperr.New(apperr.InvalidCredentials, "invalid email or password")
	}

	identity := token.Identity{
		UID:      user.UID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}

	accessToken, err := h.Codec.IssueAccess(identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}
	refreshToken, err := h.Codec.IssueRefresh(identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}

	h.publish(c, user.UID, map[string]any{
		"type":     "user_logged_in",
		"uid":      user.UID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "login successful",
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// Refresh runs behind the refresh gate and mints a new access token
// from the identity the refresh token carries.
func (h *AuthHandler) Refresh(c echo.Context) error {
	claims := authmw.ClaimsFrom(c)
	if claims == nil {
		return apperr.New(apperr.MissingCredential, "no authenticated token in context")
	}
	if claims.User.UID == "" {
		return apperr.New(apperr.InvalidToken, "token carries no identity claim")
	}

	accessToken, err := h.Codec.IssueAccess(claims.User)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "access token refreshed",
		"access_token": accessToken,
	})
}

// Logout revokes the presented access token by jti. The token stays
// cryptographically valid until exp but the guard rejects it.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims := authmw.ClaimsFrom(c)
	if claims == nil {
		return apperr.New(apperr.MissingCredential, "no authenticated token in context")
	}

	if err := h.Revocations.Revoke(c.Request().Context(), claims.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not revoke token")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user := authmw.UserFrom(c)
	if user == nil {
		return apperr.New(apperr.MissingCredential, "no authenticated user in context")
	}
	return c.JSON(http.StatusOK, user)
}
