package http

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/middleware"
)

const tracerName = "storefront-handler"

// Middleware is a standard net/http middleware
type Middleware = func(http.Handler) http.Handler

// RouteLimits holds the per-route rate limiters. A nil entry leaves the
// route unlimited.
type RouteLimits struct {
	CreateOrder  Middleware
	CaptureOrder Middleware
	Issue        Middleware
	Validate     Middleware
	Download     Middleware
}

func orPass(m Middleware) Middleware {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return m
}

// RequireConfigured answers 503 with message unless configured reports true.
// It runs ahead of rate limiting so an unconfigured subsystem never spends
// a client's budget.
func RequireConfigured(errorHandler *apierrors.ErrorHandler, configured func() bool, message string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !configured() {
				errorHandler.HandleError(w, r, apierrors.ConfigUnavailable(message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// startSpan opens a handler span tagged with the route and client
func startSpan(r *http.Request, name, route string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(r.Context(), name,
		trace.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("request_id", middleware.GetReqID(r.Context())),
		),
	)
}
