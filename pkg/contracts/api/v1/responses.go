package api

import (
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// CreateOrderResponse is returned after the processor accepted a new order
type CreateOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// CaptureOrderResponse is returned after a completed capture
type CaptureOrderResponse struct {
	Success     bool               `json:"success"`
	OrderID     string             `json:"orderId"`
	Status      string             `json:"status"`
	Email       string             `json:"email"`
	LicenseType domain.LicenseType `json:"licenseType"`
	LicenseKey  string             `json:"licenseKey,omitempty"`
}

// IssueLicenseResponse is returned by the manual issuance endpoint
type IssueLicenseResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	LicenseKey string `json:"licenseKey"`
	Email      string `json:"email"`
}

// ValidateLicenseResponse carries the short-lived download token
type ValidateLicenseResponse struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message"`
	Token         string             `json:"token"`
	LicenseType   domain.LicenseType `json:"licenseType"`
	DownloadCount int64              `json:"downloadCount"`
}

// DownloadResponse points the client at the deliverable
type DownloadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"downloadUrl"`
	LicenseKey  string `json:"licenseKey"`
	Note        string `json:"note,omitempty"`
}

// ContactResponse is the public answer to a contact submission
type ContactResponse struct {
	Success  bool   `json:"success"`
	Fallback bool   `json:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
