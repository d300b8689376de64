package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/middleware"
	"github.com/evervibe/evs-next-basic-web/internal/services"
	api "github.com/evervibe/evs-next-basic-web/pkg/contracts/api/v1"
)

// Response messages kept from the storefront's public contract
const (
	msgLicenseIssued   = "License issued successfully"
	msgLicenseValid    = "Lizenz erfolgreich validiert"
	msgDownloadReady   = "Download bereit"
	msgDownloadStarted = "Download wird gestartet..."
)

// LicenseAvailability reports which subsystems manual issuance needs
type LicenseAvailability struct {
	LicenseConfigured func() bool
	MailConfigured    func() bool
}

// LicenseHandler serves license issuance, validation and download
type LicenseHandler struct {
	issuer       LicenseIssuer
	gate         DownloadGate
	availability LicenseAvailability
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(
	issuer LicenseIssuer,
	gate DownloadGate,
	availability LicenseAvailability,
	validator *middleware.Validator,
	errorHandler *apierrors.ErrorHandler,
	logger *slog.Logger,
) *LicenseHandler {
	return &LicenseHandler{
		issuer:       issuer,
		gate:         gate,
		availability: availability,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "license")),
	}
}

// Routes mounts under /api/license
func (h *LicenseHandler) Routes(limits RouteLimits) chi.Router {
	r := chi.NewRouter()

	r.With(
		RequireConfigured(h.errorHandler, h.availability.LicenseConfigured, apierrors.MsgLicenseUnavailable),
		RequireConfigured(h.errorHandler, h.availability.MailConfigured, apierrors.MsgMailUnavailable),
		orPass(limits.Issue),
	).Post("/issue", h.Issue)
	r.With(orPass(limits.Validate)).Post("/validate", h.Validate)
	return r
}

// DownloadRoutes mounts under /api/download
func (h *LicenseHandler) DownloadRoutes(limits RouteLimits) chi.Router {
	r := chi.NewRouter()
	r.With(orPass(limits.Download)).Get("/", h.Download)
	return r
}

// Issue handles POST /api/license/issue
func (h *LicenseHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "license_handler.issue", "/api/license/issue")
	defer span.End()

	var req api.IssueLicenseRequest
	if err := h.validator.Decode(r, &req, apierrors.MsgInvalidRequest); err != nil {
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	result, err := h.issuer.Issue(ctx, services.IssueRequest{
		LicenseType: req.LicenseType,
		Email:       req.Email,
		OrderID:     req.OrderID,
	}, services.SourceManual)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	render.JSON(w, r, api.IssueLicenseResponse{
		Success:    true,
		Message:    msgLicenseIssued,
		LicenseKey: result.License.Key,
		Email:      result.License.Email,
	})
}

// Validate handles POST /api/license/validate
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "license_handler.validate", "/api/license/validate")
	defer span.End()

	var req api.ValidateLicenseRequest
	if err := h.validator.Decode(r, &req, apierrors.MsgInvalidRequest); err != nil {
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	grant, err := h.gate.ValidateAndIssueToken(ctx, req.LicenseKey, req.Email)
	if err != nil {
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	render.JSON(w, r, api.ValidateLicenseResponse{
		Success:       true,
		Message:       msgLicenseValid,
		Token:         grant.Token,
		LicenseType:   grant.LicenseType,
		DownloadCount: grant.DownloadCount,
	})
}

// Download handles GET /api/download?token=
func (h *LicenseHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r, "license_handler.download", "/api/download")
	defer span.End()

	grant, err := h.gate.AuthorizeDownload(ctx, r.URL.Query().Get("token"), services.ClientInfo{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	render.JSON(w, r, api.DownloadResponse{
		Success:     true,
		Message:     msgDownloadReady,
		DownloadURL: grant.DownloadURL,
		LicenseKey:  grant.LicenseKey,
		Note:        msgDownloadStarted,
	})
}
