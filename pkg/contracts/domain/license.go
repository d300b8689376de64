// Package domain contains the core domain models for the EverVibe Studios storefront.
// These types serve as the Single Source of Truth (SSOT) for all layers of the application.
package domain

import (
	"strings"
	"time"
)

// LicenseType represents the usage scope of a purchased license
type LicenseType string

const (
	LicenseTypeSingle LicenseType = "single"
	LicenseTypeAgency LicenseType = "agency"
)

// Valid reports whether the type is one of the known license types
func (t LicenseType) Valid() bool {
	return t == LicenseTypeSingle || t == LicenseTypeAgency
}

// DisplayName returns the customer-facing name of the license type
func (t LicenseType) DisplayName() string {
	if t == LicenseTypeAgency {
		return "Agency License"
	}
	return "Single License"
}

// License represents a granted right to use the digital product.
// It is created once at issuance and never mutated afterwards.
type License struct {
	Key          string      `json:"key" validate:"required"`
	Type         LicenseType `json:"type" validate:"required,oneof=single agency"`
	Email        string      `json:"email" validate:"required,email"`
	PurchaseDate string      `json:"purchaseDate" validate:"required"` // ISO-8601
	Hash         string      `json:"hash" validate:"required,hexadecimal"`
}

// StoredLicense is the persisted form of a license
type StoredLicense struct {
	Email         string      `json:"email"`
	Type          LicenseType `json:"type"`
	IssuedAt      string      `json:"issuedAt"`
	ValidUntil    *string     `json:"validUntil"` // nil means no expiration
	DownloadCount int64       `json:"downloadCount"`
}

// NewStoredLicense builds the persisted record for a freshly issued license
func NewStoredLicense(l License) StoredLicense {
	return StoredLicense{
		Email:         l.Email,
		Type:          l.Type,
		IssuedAt:      l.PurchaseDate,
		ValidUntil:    nil,
		DownloadCount: 0,
	}
}

// MatchesEmail compares the stored owner with the given address case-insensitively
func (s StoredLicense) MatchesEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(s.Email), strings.TrimSpace(email))
}

// ExpiredAt reports whether validUntil is set and lies before now.
// An unparsable validUntil is treated as expired.
func (s StoredLicense) ExpiredAt(now time.Time) bool {
	if s.ValidUntil == nil || *s.ValidUntil == "" {
		return false
	}
	until, err := time.Parse(time.RFC3339Nano, *s.ValidUntil)
	if err != nil {
		return true
	}
	return until.Before(now)
}

// DownloadLogEntry records one authorized download
type DownloadLogEntry struct {
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
	UserAgent string `json:"userAgent,omitempty"`
}

// ValidationReason enumerates license lookup outcomes
type ValidationReason string

const (
	ValidationOK            ValidationReason = ""
	ValidationNotFound      ValidationReason = "NOT_FOUND"
	ValidationEmailMismatch ValidationReason = "EMAIL_MISMATCH"
	ValidationExpired       ValidationReason = "EXPIRED"
)

// ValidationResult represents the result of looking up a license for a customer
type ValidationResult struct {
	Success bool             `json:"success"`
	Reason  ValidationReason `json:"reason,omitempty"`
	License *StoredLicense   `json:"license,omitempty"`
}

// IssuanceRecord is one audit entry written after a license has been delivered
type IssuanceRecord struct {
	Timestamp   string      `json:"timestamp"`
	LicenseKey  string      `json:"licenseKey"`
	LicenseType LicenseType `json:"licenseType"`
	Email       string      `json:"email"`
	OrderID     string      `json:"orderId"`
}

// ManualOrderID marks licenses issued without a payment order
const ManualOrderID = "manual"
