package http

import (
	"context"

	"github.com/evervibe/evs-next-basic-web/internal/services"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// PurchaseService is the checkout surface used by CheckoutHandler
type PurchaseService interface {
	Available() bool
	CreateOrder(ctx context.Context, t domain.LicenseType, email string) (domain.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (services.CaptureResult, error)
}

// LicenseIssuer runs manual issuance
type LicenseIssuer interface {
	Issue(ctx context.Context, req services.IssueRequest, source string) (services.IssueResult, error)
}

// DownloadGate validates licenses and authorizes downloads
type DownloadGate interface {
	ValidateAndIssueToken(ctx context.Context, key, email string) (services.ValidationGrant, error)
	AuthorizeDownload(ctx context.Context, token string, client services.ClientInfo) (services.DownloadGrant, error)
}

// ContactService relays contact form submissions
type ContactService interface {
	Submit(ctx context.Context, form services.ContactForm, clientIP string) (services.ContactOutcome, error)
}

// HealthService reports liveness and readiness
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.ReadinessStatus
	Version() map[string]interface{}
}
