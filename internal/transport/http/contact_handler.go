package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/middleware"
	"github.com/evervibe/evs-next-basic-web/internal/services"
	api "github.com/evervibe/evs-next-basic-web/pkg/contracts/api/v1"
)

// ContactHandler serves the contact form relay
type ContactHandler struct {
	service        ContactService
	mailConfigured func() bool
	validator      *middleware.Validator
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(service ContactService, mailConfigured func() bool, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		service:        service,
		mailConfigured: mailConfigured,
		validator:      validator,
		errorHandler:   errorHandler,
		logger:         logger.With(slog.String("handler", "contact")),
	}
}

// Routes mounts under /api/contact and /api/mail/relay. The contact budget
// is enforced by the service after the bot guards.
func (h *ContactHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(RequireConfigured(h.errorHandler, h.mailConfigured, apierrors.MsgMailUnavailable)).Post("/", h.Submit)
	return r
}

// Submit handles POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "contact_handler.submit", r.URL.Path)
	defer span.End()

	var req api.ContactRequest
	if err := h.validator.Decode(r, &req, apierrors.MsgInvalidRequest); err != nil {
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	form := services.ContactForm{
		Name:     req.Name,
		Email:    req.Email,
		Message:  req.Message,
		Honeypot: req.Hp,
	}
	if req.Ts != nil {
		form.Timestamp = *req.Ts
	}

	outcome, err := h.service.Submit(ctx, form, middleware.ClientIP(r))
	if err != nil {
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	render.JSON(w, r, api.ContactResponse{Success: true, Fallback: outcome.Fallback})
}
