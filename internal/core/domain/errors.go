package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBanned      = errors.New("account banned")
	ErrForbidden          = errors.New("access forbidden")
	ErrConflict           = errors.New("username or email already in use")
	ErrNotFound           = errors.New("identity not found")
	ErrUnavailable        = errors.New("backing service unavailable")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSessionNotFound    = errors.New("session not found")
)
