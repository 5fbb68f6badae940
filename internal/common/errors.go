// Package common defines shared constants and sentinel errors used across
// client and server layers of LeftOverChef. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")

	// Service-level errors (generic/internal flow control).
	ErrorInternal          = errors.New("internal error")
	ErrNotFoundOrForbidden = errors.New("prediction not found or you do not have permission to access it")

	// Validation errors.
	ErrValidation       = errors.New("validation error")
	ErrNoFieldsProvided = errors.New("no fields provided for update")
	ErrInvalidID        = errors.New("invalid prediction id format")
	ErrMissingFile      = errors.New("no image file provided")
	ErrUnsupportedMedia = errors.New("only image files are allowed")
	ErrFileTooLarge     = errors.New("file too large")
	ErrEmailTaken       = errors.New("email is already in use by another account")

	// Auth errors.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")

	// Inference boundary errors.
	ErrInferenceUnavailable     = errors.New("inference service unavailable")
	ErrInvalidInferenceResponse = errors.New("invalid inference response")
)
