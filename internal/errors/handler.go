package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"

	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger  *slog.Logger
	devMode bool
}

// NewErrorHandler creates a new error handler. In devMode the Go type of the
// underlying cause is attached to responses as errorType.
func NewErrorHandler(logger *slog.Logger, devMode bool) *ErrorHandler {
	return &ErrorHandler{
		logger:  logger.With(slog.String("component", "error_handler")),
		devMode: devMode,
	}
}

// HandleError converts any error to the storefront envelope and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	apiErr := h.toAPIError(err)

	level := slog.LevelWarn
	if apiErr.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("code", string(apiErr.Code)),
		slog.String("request_id", infrastructure.GetTraceID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	// Copy so shared sentinel values are never mutated
	out := *apiErr
	out.ErrorType = ""
	if h.devMode && apiErr.Cause != nil {
		out.ErrorType = fmt.Sprintf("%T", apiErr.Cause)
	}

	render.Render(w, r, NewErrorResponse(&out))
}

// toAPIError maps arbitrary errors onto the taxonomy. Details of unknown
// errors never reach the response body.
func (h *ErrorHandler) toAPIError(err error) *APIError {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Upstream(MsgInternal, err)
	}
	return Internal(MsgInternal, err)
}

// HandlePanic recovers from panics and returns a 500 envelope
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", infrastructure.GetTraceID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	apiErr := New(CodeInternal, MsgInternal)
	if h.devMode {
		apiErr.ErrorType = "panic"
	}
	render.Render(w, r, NewErrorResponse(apiErr))
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, NewErrorResponse(NotFound(MsgNotFound)))
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apiErr := New(CodeValidation, MsgMethodNotAllowed)
	apiErr.StatusCode = http.StatusMethodNotAllowed
	render.Render(w, r, NewErrorResponse(apiErr))
}
