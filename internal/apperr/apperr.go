// Package apperr enumerates the error kinds the service can reject a
// request with. Handlers and middleware return these instead of raw
// HTTP errors; the transport layer maps each kind to a status code and
// machine-readable body in one place.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	MissingCredential    Kind = "missing_credential"
	TokenExpired         Kind = "token_expired"
	TokenInvalid         Kind = "token_invalid"
	AccessTokenRequired  Kind = "access_token_required"
	RefreshTokenRequired Kind = "refresh_token_required"
	TokenRevoked         Kind = "token_revoked"
	InvalidToken         Kind = "invalid_token"
	UserNotFound         Kind = "user_not_found"
	RoleNotAuthorized    Kind = "insufficient_role"
	UserAlreadyExists    Kind = "user_exists"
	InvalidCredentials   Kind = "invalid_credentials"
	BookNotFound         Kind = "book_not_found"
	InvalidBookID        Kind = "invalid_book_id"
	ValidationFailed     Kind = "validation_failed"
)

var statusByKind = map[Kind]int{
	MissingCredential:    http.StatusUnauthorized,
	TokenExpired:         http.StatusUnauthorized,
	TokenInvalid:         http.StatusUnauthorized,
	AccessTokenRequired:  http.StatusForbidden,
	RefreshTokenRequired: http.StatusForbidden,
	TokenRevoked:         http.StatusUnauthorized,
	InvalidToken:         http.StatusUnauthorized,
	UserNotFound:         http.StatusNotFound,
	RoleNotAuthorized:    http.StatusForbidden,
	UserAlreadyExists:    http.StatusForbidden,
	InvalidCredentials:   http.StatusUnauthorized,
	BookNotFound:         http.StatusNotFound,
	InvalidBookID:        http.StatusBadRequest,
	ValidationFailed:     http.StatusBadRequest,
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the kind from an error returned by this service.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Status returns the HTTP status a kind maps to. Unknown kinds are
// treated as internal errors.
func Status(kind Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}
