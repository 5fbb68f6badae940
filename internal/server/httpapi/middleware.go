package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/server/auth"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// Gate messages returned with 401.
const (
	msgNoHeader    = "No authorization header provided."
	msgBadFormat   = "Invalid authorization format."
	msgNoToken     = "No token provided."
	msgExpired     = "Token has expired"
	msgInvalid     = "Invalid token"
	msgUserRemoved = "User associated with this token no longer exists."
)

// gateError is a 401 with the message shown to the client. cause is only logged.
type gateError struct {
	msg   string
	cause error
}

func (e *gateError) Error() string { return e.msg }
func (e *gateError) Unwrap() error { return e.cause }

// IdentityFrom returns the caller attached by RequireAuth or OptionalAuth.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(*auth.Identity)
	return id, ok && id != nil
}

func withIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// RequireAuth rejects the request with 401 unless it carries a valid bearer
// token for a user that still exists.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.authenticate(r)
		if err != nil {
			var ge *gateError
			if !errors.As(err, &ge) {
				h.writeMappedError(r.Context(), w, "authenticate", err)
				return
			}
			h.logger.Warn(r.Context(), "authentication failed",
				"path", r.URL.Path,
				"reason", ge.msg,
				"error", ge.cause,
				"request_id", middleware.GetReqID(r.Context()),
			)
			writeError(w, http.StatusUnauthorized, kindUnauthenticated, ge.msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the caller when a valid token is present and
// otherwise lets the request through anonymously.
func (h *Handler) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := h.authenticate(r); err == nil {
			r = r.WithContext(withIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authenticate(r *http.Request) (*auth.Identity, error) {
	token, err := bearerTokenFromHeader(r.Header.Get(common.AuthorizationHeaderName))
	if err != nil {
		return nil, err
	}

	id, err := h.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, &gateError{msg: msgExpired, cause: err}
		}
		return nil, &gateError{msg: msgInvalid, cause: err}
	}

	user, err := h.accounts.GetByID(r.Context(), id.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, &gateError{msg: msgUserRemoved, cause: err}
		}
		return nil, err
	}

	return &auth.Identity{ID: user.ID, Email: user.Email}, nil
}

func bearerTokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", &gateError{msg: msgNoHeader, cause: common.ErrUnauthenticated}
	}
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok {
		return "", &gateError{msg: msgBadFormat, cause: common.ErrUnauthenticated}
	}
	token = strings.TrimSpace(token)
	if strings.ContainsFunc(token, unicode.IsSpace) {
		return "", &gateError{msg: msgBadFormat, cause: common.ErrUnauthenticated}
	}
	switch token {
	case "", "null", "undefined":
		return "", &gateError{msg: msgNoToken, cause: common.ErrUnauthenticated}
	}
	return token, nil
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if r.statusCode == 0 {
		r.statusCode = statusCode
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(payload []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(payload)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		statusCode := recorder.statusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		outcome := "success"
		if statusCode >= 400 {
			outcome = "failure"
		}

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", statusCode,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"outcome", outcome,
		}
		switch {
		case statusCode >= 500:
			h.logger.Error(r.Context(), "http request completed", fields...)
		case statusCode >= 400:
			h.logger.Warn(r.Context(), "http request completed", fields...)
		default:
			h.logger.Info(r.Context(), "http request completed", fields...)
		}
	})
}
