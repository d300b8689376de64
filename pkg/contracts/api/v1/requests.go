// Package api contains API contract definitions for the EverVibe Studios storefront.
// Version v1 represents the current stable API version.
package api

import (
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// Checkout API Requests

// CreateOrderRequest starts a checkout for one license
type CreateOrderRequest struct {
	LicenseType domain.LicenseType `json:"licenseType" validate:"required,oneof=single agency"`
	Email       string             `json:"email" validate:"required,email"`
}

// CaptureOrderRequest captures an approved checkout
type CaptureOrderRequest struct {
	OrderID string `json:"orderId" validate:"required,min=1"`
}

// License API Requests

// IssueLicenseRequest issues a license outside the checkout flow
type IssueLicenseRequest struct {
	LicenseType domain.LicenseType `json:"licenseType" validate:"required,oneof=single agency"`
	Email       string             `json:"email" validate:"required,email"`
	OrderID     string             `json:"orderId,omitempty"`
}

// ValidateLicenseRequest exchanges a license key and email for a download token.
// Format checks are done by the handler so that each failure gets its own message.
type ValidateLicenseRequest struct {
	LicenseKey string `json:"licenseKey" validate:"required"`
	Email      string `json:"email" validate:"required"`
}

// Contact API Requests

// ContactRequest is the public contact form submission.
// Hp is the honeypot field, Ts the client-side form render time in unix milliseconds.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=60"`
	Email   string `json:"email" validate:"required,email,max=120"`
	Message string `json:"message" validate:"required,max=2000"`
	Hp      string `json:"hp,omitempty"`
	Ts      *int64 `json:"ts,omitempty"`
}
