package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"

	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/middleware"
	api "github.com/evervibe/evs-next-basic-web/pkg/contracts/api/v1"
)

// CheckoutHandler serves order creation and capture
type CheckoutHandler struct {
	service      PurchaseService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(service PurchaseService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "checkout")),
	}
}

// Routes mounts under /api/paypal
func (h *CheckoutHandler) Routes(limits RouteLimits) chi.Router {
	r := chi.NewRouter()
	available := RequireConfigured(h.errorHandler, h.service.Available, apierrors.MsgPaymentUnavailable)

	r.With(available, orPass(limits.CreateOrder)).Post("/create-order", h.CreateOrder)
	r.With(available, orPass(limits.CaptureOrder)).Post("/capture-order", h.CaptureOrder)
	return r
}

// CreateOrder handles POST /api/paypal/create-order
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "checkout_handler.create_order", "/api/paypal/create-order")
	defer span.End()

	var req api.CreateOrderRequest
	if err := h.validator.Decode(r, &req, apierrors.MsgInvalidRequest); err != nil {
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}
	span.SetAttributes(attribute.String("license.type", string(req.LicenseType)))

	order, err := h.service.CreateOrder(ctx, req.LicenseType, req.Email)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	h.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("license_type", string(req.LicenseType)))

	render.JSON(w, r, api.CreateOrderResponse{
		Success: true,
		OrderID: order.ID,
		Status:  order.Status,
	})
}

// CaptureOrder handles POST /api/paypal/capture-order
func (h *CheckoutHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "checkout_handler.capture_order", "/api/paypal/capture-order")
	defer span.End()

	var req api.CaptureOrderRequest
	if err := h.validator.Decode(r, &req, apierrors.MsgInvalidRequest); err != nil {
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}
	span.SetAttributes(attribute.String("order.id", req.OrderID))

	result, err := h.service.CaptureOrder(ctx, req.OrderID)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	render.JSON(w, r, api.CaptureOrderResponse{
		Success:     true,
		OrderID:     result.OrderID,
		Status:      result.Status,
		Email:       result.Email,
		LicenseType: result.LicenseType,
		LicenseKey:  result.LicenseKey,
	})
}
