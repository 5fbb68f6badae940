package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
)

// Error kinds carried in the "error" field of failure responses.
const (
	kindValidation        = "validation_error"
	kindDuplicateEmail    = "duplicate_email"
	kindEmailTaken        = "email_taken"
	kindInvalidCreds      = "invalid_credentials"
	kindUnauthenticated   = "unauthenticated"
	kindTooManyAttempts   = "too_many_attempts"
	kindNotFound          = "not_found"
	kindMethodNotAllowed  = "method_not_allowed"
	kindInferenceDown     = "inference_unavailable"
	kindInferenceResponse = "invalid_inference_response"
	kindInternal          = "internal_error"
)

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, kindValidation, detail(err, common.ErrValidation, "Invalid request")
	case errors.Is(err, common.ErrNoFieldsProvided):
		return http.StatusBadRequest, kindValidation, "Please provide at least one field to update (name or email)"
	case errors.Is(err, common.ErrInvalidID):
		return http.StatusBadRequest, kindValidation, "Invalid prediction ID format"
	case errors.Is(err, common.ErrMissingFile):
		return http.StatusBadRequest, kindValidation, "No image file provided. Please upload an image."
	case errors.Is(err, common.ErrUnsupportedMedia):
		return http.StatusBadRequest, kindValidation, "Only image files are allowed (jpeg, jpg, png, webp)"
	case errors.Is(err, common.ErrFileTooLarge):
		return http.StatusBadRequest, kindValidation, "File too large"
	case errors.Is(err, common.ErrDuplicateEmail):
		return http.StatusConflict, kindDuplicateEmail, "User with this email already exists"
	case errors.Is(err, common.ErrEmailTaken):
		return http.StatusConflict, kindEmailTaken, "Email is already in use by another account"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, kindInvalidCreds, "Invalid email or password"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, kindUnauthenticated, "Token has expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, kindUnauthenticated, "Invalid token"
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, kindUnauthenticated, "Authentication required"
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests, kindTooManyAttempts, "Too many failed login attempts. Please try again later."
	case errors.Is(err, common.ErrNotFoundOrForbidden):
		return http.StatusNotFound, kindNotFound, "Prediction not found or you do not have permission to access it"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, kindNotFound, "User not found"
	case errors.Is(err, common.ErrInferenceUnavailable):
		return http.StatusServiceUnavailable, kindInferenceDown, "ML service is unavailable. Please try again later."
	case errors.Is(err, common.ErrInvalidInferenceResponse):
		return http.StatusBadGateway, kindInferenceResponse, "ML service returned an invalid response"
	default:
		return http.StatusInternalServerError, kindInternal, "Internal server error"
	}
}

// detail strips the sentinel prefix from a wrapped error such as
// "validation error: Name is required".
func detail(err, sentinel error, fallback string) string {
	msg, ok := strings.CutPrefix(err.Error(), sentinel.Error()+": ")
	if !ok || msg == "" {
		return fallback
	}
	return msg
}

func (h *Handler) writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, kind, msg := mapDomainError(err)
	fields := []any{"operation", operation, "status_code", status, "error_kind", kind, "error", err}
	if status >= http.StatusInternalServerError {
		h.logger.Error(ctx, "request failed", fields...)
	} else {
		h.logger.Debug(ctx, "request rejected", fields...)
	}
	writeError(w, status, kind, msg)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, kindNotFound, "Route not found")
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, kindMethodNotAllowed, "Method not allowed")
}
