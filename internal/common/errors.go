// Package common defines shared constants and sentinel errors used across
// gophbook components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Input errors. Details are attached with fmt.Errorf("%w: ...").
	ErrorValidation        = errors.New("validation error")
	ErrorUnsupportedAction = errors.New("unsupported action")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorInvalidCredentials is returned for both unknown emails and wrong
	// passwords so callers cannot tell them apart.
	ErrorInvalidCredentials = errors.New("invalid credentials")

	// Storage errors.
	ErrorBusy     = errors.New("storage busy")
	ErrorEncoding = errors.New("encoding error")
	ErrorIO       = errors.New("storage i/o error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
