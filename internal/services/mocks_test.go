package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/evervibe/evs-next-basic-web/internal/notification"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// MockLicenseRepository implements LicenseRepository for testing
type MockLicenseRepository struct {
	mock.Mock
}

func (m *MockLicenseRepository) Store(ctx context.Context, key string, record domain.StoredLicense) error {
	args := m.Called(ctx, key, record)
	return args.Error(0)
}

func (m *MockLicenseRepository) Validate(ctx context.Context, key, email string, now time.Time) (domain.ValidationResult, error) {
	args := m.Called(ctx, key, email, now)
	return args.Get(0).(domain.ValidationResult), args.Error(1)
}

func (m *MockLicenseRepository) RecordDownload(ctx context.Context, key string, entry domain.DownloadLogEntry) error {
	args := m.Called(ctx, key, entry)
	return args.Error(0)
}

// MockPaymentProcessor implements PaymentProcessor for testing
type MockPaymentProcessor struct {
	mock.Mock
}

func (m *MockPaymentProcessor) CreateOrder(ctx context.Context, t domain.LicenseType, email string) (domain.Order, error) {
	args := m.Called(ctx, t, email)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockPaymentProcessor) CaptureOrder(ctx context.Context, orderID string) (domain.Capture, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(domain.Capture), args.Error(1)
}

// MockInvoiceGenerator implements InvoiceGenerator for testing
type MockInvoiceGenerator struct {
	mock.Mock
}

func (m *MockInvoiceGenerator) NextInvoiceID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceGenerator) DataFor(invoiceID string, l domain.License, orderID string) domain.InvoiceData {
	args := m.Called(invoiceID, l, orderID)
	return args.Get(0).(domain.InvoiceData)
}

func (m *MockInvoiceGenerator) Generate(ctx context.Context, data domain.InvoiceData) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceGenerator) GetBuffer(path string) ([]byte, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendLicense(ctx context.Context, l domain.License) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockNotifier) SendReceipt(ctx context.Context, d domain.InvoiceData, pdf []byte) error {
	args := m.Called(ctx, d, pdf)
	return args.Error(0)
}

// MockContactSender implements ContactSender for testing
type MockContactSender struct {
	mock.Mock
}

func (m *MockContactSender) SendContact(ctx context.Context, sub notification.ContactSubmission, clientIP string) (notification.Delivery, error) {
	args := m.Called(ctx, sub, clientIP)
	return args.Get(0).(notification.Delivery), args.Error(1)
}

// MockAuditSink implements AuditSink for testing
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, rec domain.IssuanceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// MockPinger implements Pinger for testing
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockLimiter implements ratelimit.Limiter for testing
type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
