// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/orghub/internal/app/system/membership"
	"go.uber.org/zap"
)

// body is the JSON shape of every error response.
type body struct {
	Error string `json:"error"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes {"error": msg} with the given status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, body{Error: msg})
}

// BadRequest is a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	Message(w, http.StatusBadRequest, msg)
}

// NotFound is a 404 with msg.
func NotFound(w http.ResponseWriter, msg string) {
	Message(w, http.StatusNotFound, msg)
}

// Forbidden is a 403 with msg.
func Forbidden(w http.ResponseWriter, msg string) {
	Message(w, http.StatusForbidden, msg)
}

// TooManyRequests is the 429 written by rate limiters. Retry-After is set
// by the caller.
func TooManyRequests(w http.ResponseWriter, _ *http.Request) {
	Message(w, http.StatusTooManyRequests, "too many requests; slow down")
}

// Status maps an error from the membership layer to an HTTP status and a
// message that is safe to show the caller.
func Status(err error) (int, string) {
	switch {
	case stderrors.Is(err, membership.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case stderrors.Is(err, membership.ErrOrgNotFound):
		return http.StatusNotFound, membership.ErrOrgNotFound.Error()
	case stderrors.Is(err, membership.ErrUserNotFound):
		return http.StatusNotFound, membership.ErrUserNotFound.Error()
	case stderrors.Is(err, membership.ErrNotMember):
		return http.StatusForbidden, membership.ErrNotMember.Error()
	case stderrors.Is(err, membership.ErrDuplicateEmail):
		return http.StatusConflict, membership.ErrDuplicateEmail.Error()
	case membership.Retryable(err), stderrors.Is(err, membership.ErrJoinCodeExhausted):
		return http.StatusServiceUnavailable, "temporarily unavailable; please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// ErrorLogger writes error responses and logs the ones that are our fault.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

// Write maps err with Status and writes it. Server-side failures are
// logged with the request path; 503s get a Retry-After hint.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := e.prepare(w, r, err)
	Message(w, status, msg)
}

// WritePartial is Write for a failure that left something behind the caller
// needs, such as an organization whose creator entry was not written. v is
// sent under key alongside the error message.
func (e *ErrorLogger) WritePartial(w http.ResponseWriter, r *http.Request, err error, key string, v any) {
	status, msg := e.prepare(w, r, err)
	JSON(w, status, map[string]any{"error": msg, key: v})
}

func (e *ErrorLogger) prepare(w http.ResponseWriter, r *http.Request, err error) (int, string) {
	status, msg := Status(err)
	switch {
	case status >= http.StatusInternalServerError:
		e.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
	default:
		e.log.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	return status, msg
}
