package services

import (
	"context"
	"log/slog"

	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/internal/payment"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// CaptureResult is returned to the buyer after a successful capture
type CaptureResult struct {
	OrderID     string             `json:"orderId"`
	Status      string             `json:"status"`
	Email       string             `json:"email"`
	LicenseType domain.LicenseType `json:"licenseType"`
	LicenseKey  string             `json:"licenseKey,omitempty"`
	InvoiceID   string             `json:"-"`
}

// PurchaseService coordinates checkout with the payment processor and hands
// captured orders to the license issuer
type PurchaseService struct {
	processor PaymentProcessor
	issuer    *LicenseIssuer
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewPurchaseService creates a purchase service. A nil processor reports the
// payment system as unavailable; a nil issuer fails issuance after capture.
func NewPurchaseService(processor PaymentProcessor, issuer *LicenseIssuer, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *PurchaseService {
	return &PurchaseService{
		processor: processor,
		issuer:    issuer,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "purchase_service")),
	}
}

// Available reports whether payment credentials are configured
func (s *PurchaseService) Available() bool {
	return s.processor != nil
}

// CreateOrder opens a pending order for one license
func (s *PurchaseService) CreateOrder(ctx context.Context, t domain.LicenseType, email string) (domain.Order, error) {
	if s.processor == nil {
		return domain.Order{}, apierrors.ConfigUnavailable(apierrors.MsgPaymentUnavailable)
	}
	if !t.Valid() || !license.ValidateEmail(email) {
		return domain.Order{}, apierrors.Validation(apierrors.MsgInvalidRequest)
	}

	order, err := s.processor.CreateOrder(ctx, t, email)
	if err != nil {
		s.logger.ErrorContext(ctx, "order creation failed",
			slog.String("license_type", string(t)),
			slog.String("error", err.Error()))
		return domain.Order{}, apierrors.Upstream(apierrors.MsgOrderFailed, err)
	}

	s.metrics.RecordOrder(ctx, false, order.Status)
	return order, nil
}

// CaptureOrder captures an approved order and issues the license. Only a
// failed license email is reported after a completed capture; the payment
// is never rolled back.
func (s *PurchaseService) CaptureOrder(ctx context.Context, orderID string) (CaptureResult, error) {
	if s.processor == nil {
		return CaptureResult{}, apierrors.ConfigUnavailable(apierrors.MsgPaymentUnavailable)
	}
	if orderID == "" {
		return CaptureResult{}, apierrors.Validation(apierrors.MsgInvalidRequest)
	}

	capture, err := s.processor.CaptureOrder(ctx, orderID)
	if err != nil {
		s.logger.ErrorContext(ctx, "order capture failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()))
		return CaptureResult{}, apierrors.Upstream(apierrors.MsgCaptureFailed, err)
	}
	s.metrics.RecordOrder(ctx, true, capture.Status)

	if !capture.Completed() {
		s.logger.WarnContext(ctx, "payment not completed",
			slog.String("order_id", orderID),
			slog.String("status", capture.Status))
		return CaptureResult{}, apierrors.PaymentIncomplete(capture.Status)
	}

	corr := payment.Correlation(capture)
	result := CaptureResult{
		OrderID:     capture.OrderID,
		Status:      capture.Status,
		Email:       corr.Email,
		LicenseType: corr.LicenseType,
	}

	if s.issuer == nil {
		s.logger.ErrorContext(ctx, "payment captured but license issuance is not configured",
			slog.String("order_id", capture.OrderID),
			slog.String("email", corr.Email))
		return result, apierrors.Upstream(apierrors.MsgIssueFailed, ErrIssuerUnavailable)
	}
	if !license.ValidateEmail(corr.Email) {
		s.logger.ErrorContext(ctx, "payment captured without a deliverable address",
			slog.String("order_id", capture.OrderID))
		return result, apierrors.Upstream(apierrors.MsgIssueFailed, ErrNoDeliverableAddress)
	}

	issued, err := s.issuer.Issue(ctx, IssueRequest{
		LicenseType: corr.LicenseType,
		Email:       corr.Email,
		OrderID:     capture.OrderID,
	}, SourceCapture)
	if err != nil {
		return result, err
	}

	result.LicenseKey = issued.License.Key
	result.InvoiceID = issued.InvoiceID
	return result, nil
}
