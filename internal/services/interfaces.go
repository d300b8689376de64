package services

import (
	"context"
	"time"

	"github.com/evervibe/evs-next-basic-web/internal/notification"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// LicenseRepository persists issued licenses and their download history
type LicenseRepository interface {
	Store(ctx context.Context, key string, record domain.StoredLicense) error
	Validate(ctx context.Context, key, email string, now time.Time) (domain.ValidationResult, error)
	RecordDownload(ctx context.Context, key string, entry domain.DownloadLogEntry) error
}

// PaymentProcessor creates and captures checkout orders
type PaymentProcessor interface {
	CreateOrder(ctx context.Context, t domain.LicenseType, email string) (domain.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (domain.Capture, error)
}

// InvoiceGenerator numbers and renders invoices
type InvoiceGenerator interface {
	NextInvoiceID(ctx context.Context) (string, error)
	DataFor(invoiceID string, l domain.License, orderID string) domain.InvoiceData
	Generate(ctx context.Context, data domain.InvoiceData) (string, error)
	GetBuffer(path string) ([]byte, error)
}

// Notifier delivers customer mail
type Notifier interface {
	SendLicense(ctx context.Context, l domain.License) error
	SendReceipt(ctx context.Context, d domain.InvoiceData, pdf []byte) error
}

// ContactSender relays contact submissions to the operator
type ContactSender interface {
	SendContact(ctx context.Context, sub notification.ContactSubmission, clientIP string) (notification.Delivery, error)
}

// AuditSink records issued licenses
type AuditSink interface {
	Record(ctx context.Context, rec domain.IssuanceRecord) error
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}
