package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/evervibe/evs-next-basic-web/internal/services"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// MockPurchaseService implements PurchaseService for testing
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) Available() bool {
	return m.Called().Bool(0)
}

func (m *MockPurchaseService) CreateOrder(ctx context.Context, t domain.LicenseType, email string) (domain.Order, error) {
	args := m.Called(ctx, t, email)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockPurchaseService) CaptureOrder(ctx context.Context, orderID string) (services.CaptureResult, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(services.CaptureResult), args.Error(1)
}

// MockLicenseIssuer implements LicenseIssuer for testing
type MockLicenseIssuer struct {
	mock.Mock
}

func (m *MockLicenseIssuer) Issue(ctx context.Context, req services.IssueRequest, source string) (services.IssueResult, error) {
	args := m.Called(ctx, req, source)
	return args.Get(0).(services.IssueResult), args.Error(1)
}

// MockDownloadGate implements DownloadGate for testing
type MockDownloadGate struct {
	mock.Mock
}

func (m *MockDownloadGate) ValidateAndIssueToken(ctx context.Context, key, email string) (services.ValidationGrant, error) {
	args := m.Called(ctx, key, email)
	return args.Get(0).(services.ValidationGrant), args.Error(1)
}

func (m *MockDownloadGate) AuthorizeDownload(ctx context.Context, token string, client services.ClientInfo) (services.DownloadGrant, error) {
	args := m.Called(ctx, token, client)
	return args.Get(0).(services.DownloadGrant), args.Error(1)
}

// MockContactService implements ContactService for testing
type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Submit(ctx context.Context, form services.ContactForm, clientIP string) (services.ContactOutcome, error) {
	args := m.Called(ctx, form, clientIP)
	return args.Get(0).(services.ContactOutcome), args.Error(1)
}

// MockHealthService implements HealthService for testing
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.ReadinessStatus {
	return m.Called(ctx).Get(0).(services.ReadinessStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}
