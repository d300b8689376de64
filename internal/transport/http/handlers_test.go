package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/middleware"
	"github.com/evervibe/evs-next-basic-web/internal/ratelimit"
	"github.com/evervibe/evs-next-basic-web/internal/services"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

type testDeps struct {
	purchases *MockPurchaseService
	issuer    *MockLicenseIssuer
	gate      *MockDownloadGate
	contact   *MockContactService
	health    *MockHealthService

	licenseConfigured bool
	mailConfigured    bool
	limits            RouteLimits
}

func newTestDeps() *testDeps {
	return &testDeps{
		purchases:         &MockPurchaseService{},
		issuer:            &MockLicenseIssuer{},
		gate:              &MockDownloadGate{},
		contact:           &MockContactService{},
		health:            &MockHealthService{},
		licenseConfigured: true,
		mailConfigured:    true,
	}
}

func (d *testDeps) router() http.Handler {
	logger := infrastructure.DiscardLogger()
	eh := apierrors.NewErrorHandler(logger, false)
	v := middleware.NewValidator(logger)

	checkout := NewCheckoutHandler(d.purchases, v, eh, logger)
	licenses := NewLicenseHandler(d.issuer, d.gate, LicenseAvailability{
		LicenseConfigured: func() bool { return d.licenseConfigured },
		MailConfigured:    func() bool { return d.mailConfigured },
	}, v, eh, logger)
	contact := NewContactHandler(d.contact, func() bool { return d.mailConfigured }, v, eh, logger)
	health := NewHealthHandler(d.health, logger)

	r := chi.NewRouter()
	r.Mount("/api/paypal", checkout.Routes(d.limits))
	r.Mount("/api/license", licenses.Routes(d.limits))
	r.Mount("/api/download", licenses.DownloadRoutes(d.limits))
	r.Mount("/api/contact", contact.Routes())
	r.Mount("/api/mail/relay", contact.Routes())
	r.Mount("/api/health", health.Routes())
	return r
}

func testLimit(name string, max int) Middleware {
	logger := infrastructure.DiscardLogger()
	return middleware.RateLimit(middleware.RateLimitConfig{
		Name:         name,
		Limiter:      ratelimit.NewMemory(max, 5*time.Minute),
		Message:      apierrors.MsgRateLimited,
		ErrorHandler: apierrors.NewErrorHandler(logger, false),
		Logger:       logger,
	})
}

func serve(h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "203.0.113.5:41000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func TestCheckoutHandler_CreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		available  bool
		body       string
		setup      func(p *MockPurchaseService)
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:      "order created",
			available: true,
			body:      `{"licenseType":"single","email":"buyer@example.com"}`,
			setup: func(p *MockPurchaseService) {
				p.On("CreateOrder", mock.Anything, domain.LicenseTypeSingle, "buyer@example.com").
					Return(domain.Order{ID: "ORDER-1", Status: "CREATED"}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, true, body["success"])
				assert.Equal(t, "ORDER-1", body["orderId"])
				assert.Equal(t, "CREATED", body["status"])
			},
		},
		{
			name:       "payment not configured wins over bad input",
			available:  false,
			body:       `{"licenseType":"gold"}`,
			wantStatus: http.StatusServiceUnavailable,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, string(apierrors.CodeConfigUnavailable), body["code"])
				assert.Equal(t, apierrors.MsgPaymentUnavailable, body["error"])
			},
		},
		{
			name:       "unknown license type",
			available:  true,
			body:       `{"licenseType":"gold","email":"buyer@example.com"}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, apierrors.MsgInvalidRequest, body["error"])
				assert.NotEmpty(t, body["details"])
			},
		},
		{
			name:       "malformed json",
			available:  true,
			body:       `{"licenseType":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:      "processor failure",
			available: true,
			body:      `{"licenseType":"agency","email":"buyer@example.com"}`,
			setup: func(p *MockPurchaseService) {
				p.On("CreateOrder", mock.Anything, domain.LicenseTypeAgency, "buyer@example.com").
					Return(domain.Order{}, apierrors.Upstream(apierrors.MsgOrderFailed, errors.New("401 invalid_client")))
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, apierrors.MsgOrderFailed, body["error"])
				assert.NotContains(t, body, "errorType")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.purchases.On("Available").Return(tt.available)
			if tt.setup != nil {
				tt.setup(d.purchases)
			}

			rec, body := serve(d.router(), http.MethodPost, "/api/paypal/create-order", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.check != nil {
				tt.check(t, body)
			}
			d.purchases.AssertExpectations(t)
		})
	}
}

func TestCheckoutHandler_RateLimitRunsAfterConfigCheck(t *testing.T) {
	d := newTestDeps()
	d.limits.CreateOrder = testLimit("create_order", 2)
	d.purchases.On("Available").Return(false).Times(3)
	d.purchases.On("Available").Return(true)
	d.purchases.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Order{ID: "ORDER-1", Status: "CREATED"}, nil)
	h := d.router()

	body := `{"licenseType":"single","email":"buyer@example.com"}`
	for i := 0; i < 3; i++ {
		rec, _ := serve(h, http.MethodPost, "/api/paypal/create-order", body)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}

	var codes []int
	for i := 0; i < 3; i++ {
		rec, _ := serve(h, http.MethodPost, "/api/paypal/create-order", body)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestCheckoutHandler_CaptureOrder(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		d := newTestDeps()
		d.purchases.On("Available").Return(true)
		d.purchases.On("CaptureOrder", mock.Anything, "ORDER-1").Return(services.CaptureResult{
			OrderID:     "ORDER-1",
			Status:      "COMPLETED",
			Email:       "buyer@example.com",
			LicenseType: domain.LicenseTypeAgency,
			LicenseKey:  "EVS-1A2B-3C4D-5E6F",
		}, nil)

		rec, body := serve(d.router(), http.MethodPost, "/api/paypal/capture-order", `{"orderId":"ORDER-1"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "COMPLETED", body["status"])
		assert.Equal(t, "buyer@example.com", body["email"])
		assert.Equal(t, "agency", body["licenseType"])
		assert.Equal(t, "EVS-1A2B-3C4D-5E6F", body["licenseKey"])
	})

	t.Run("incomplete", func(t *testing.T) {
		d := newTestDeps()
		d.purchases.On("Available").Return(true)
		d.purchases.On("CaptureOrder", mock.Anything, "ORDER-2").
			Return(services.CaptureResult{}, apierrors.PaymentIncomplete("PAYER_ACTION_REQUIRED"))

		rec, body := serve(d.router(), http.MethodPost, "/api/paypal/capture-order", `{"orderId":"ORDER-2"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, apierrors.MsgPaymentIncomplete, body["error"])
		assert.Equal(t, "PAYER_ACTION_REQUIRED", body["status"])
	})

	t.Run("missing order id", func(t *testing.T) {
		d := newTestDeps()
		d.purchases.On("Available").Return(true)

		rec, _ := serve(d.router(), http.MethodPost, "/api/paypal/capture-order", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		d.purchases.AssertNotCalled(t, "CaptureOrder", mock.Anything, mock.Anything)
	})
}

func TestLicenseHandler_Issue(t *testing.T) {
	tests := []struct {
		name              string
		licenseConfigured bool
		mailConfigured    bool
		wantStatus        int
		wantError         string
	}{
		{"license system unconfigured", false, true, http.StatusServiceUnavailable, apierrors.MsgLicenseUnavailable},
		{"mail unconfigured", true, false, http.StatusServiceUnavailable, apierrors.MsgMailUnavailable},
		{"issued", true, true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.licenseConfigured = tt.licenseConfigured
			d.mailConfigured = tt.mailConfigured
			d.issuer.On("Issue", mock.Anything, services.IssueRequest{
				LicenseType: domain.LicenseTypeAgency,
				Email:       "agency@example.com",
			}, services.SourceManual).Return(services.IssueResult{
				License: domain.License{Key: "EVS-AAAA-BBBB-CCCC", Email: "agency@example.com"},
			}, nil).Maybe()

			rec, body := serve(d.router(), http.MethodPost, "/api/license/issue",
				`{"licenseType":"agency","email":"agency@example.com"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				d.issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			assert.Equal(t, "License issued successfully", body["message"])
			assert.Equal(t, "EVS-AAAA-BBBB-CCCC", body["licenseKey"])
			assert.Equal(t, "agency@example.com", body["email"])
		})
	}
}

func TestLicenseHandler_Validate(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"valid", nil, http.StatusOK, ""},
		{"not found", apierrors.NotFound(apierrors.MsgLicenseNotFound), http.StatusNotFound, apierrors.MsgLicenseNotFound},
		{"mismatch", apierrors.Forbidden(apierrors.MsgEmailMismatch), http.StatusForbidden, apierrors.MsgEmailMismatch},
		{"bad format", apierrors.Validation(apierrors.MsgInvalidKeyFormat), http.StatusBadRequest, apierrors.MsgInvalidKeyFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.gate.On("ValidateAndIssueToken", mock.Anything, "EVS-1A2B-3C4D-5E6F", "Buyer@Example.com").
				Return(services.ValidationGrant{Token: "jwt", LicenseType: domain.LicenseTypeSingle, DownloadCount: 2}, tt.err)

			rec, body := serve(d.router(), http.MethodPost, "/api/license/validate",
				`{"licenseKey":"EVS-1A2B-3C4D-5E6F","email":"Buyer@Example.com"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, "Lizenz erfolgreich validiert", body["message"])
			assert.Equal(t, "jwt", body["token"])
			assert.Equal(t, "single", body["licenseType"])
			assert.Equal(t, float64(2), body["downloadCount"])
		})
	}
}

func TestLicenseHandler_ValidateRateLimited(t *testing.T) {
	d := newTestDeps()
	d.limits.Validate = testLimit("validate", 3)
	d.gate.On("ValidateAndIssueToken", mock.Anything, mock.Anything, mock.Anything).
		Return(services.ValidationGrant{}, apierrors.NotFound(apierrors.MsgLicenseNotFound))
	h := d.router()

	body := `{"licenseKey":"EVS-1A2B-3C4D-5E6F","email":"buyer@example.com"}`
	for i := 0; i < 3; i++ {
		rec, _ := serve(h, http.MethodPost, "/api/license/validate", body)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec, resp := serve(h, http.MethodPost, "/api/license/validate", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ratelimit", resp["reason"])
	d.gate.AssertNumberOfCalls(t, "ValidateAndIssueToken", 3)
}

func TestLicenseHandler_Download(t *testing.T) {
	d := newTestDeps()
	d.gate.On("AuthorizeDownload", mock.Anything, "signed-token", services.ClientInfo{
		IP:        "198.51.100.23",
		UserAgent: "Mozilla/5.0",
	}).Return(services.DownloadGrant{
		DownloadURL: "https://example.com/template.zip",
		LicenseKey:  "EVS-1A2B-3C4D-5E6F",
	}, nil)
	d.gate.On("AuthorizeDownload", mock.Anything, "", mock.Anything).
		Return(services.DownloadGrant{}, apierrors.Validation(apierrors.MsgTokenMissing))

	h := d.router()

	req := httptest.NewRequest(http.MethodGet, "/api/download?token=signed-token", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.23, 10.0.0.1")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Download bereit", body["message"])
	assert.Equal(t, "https://example.com/template.zip", body["downloadUrl"])
	assert.Equal(t, "EVS-1A2B-3C4D-5E6F", body["licenseKey"])
	assert.Equal(t, "Download wird gestartet...", body["note"])

	rec, resp := serve(h, http.MethodGet, "/api/download", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.MsgTokenMissing, resp["error"])
}

func TestContactHandler_Submit(t *testing.T) {
	validBody := `{"name":"Erika","email":"erika@example.de","message":"Hallo zusammen","hp":"","ts":1700000000000}`
	wantForm := services.ContactForm{
		Name:      "Erika",
		Email:     "erika@example.de",
		Message:   "Hallo zusammen",
		Timestamp: 1700000000000,
	}

	tests := []struct {
		name       string
		path       string
		body       string
		mail       bool
		outcome    services.ContactOutcome
		err        error
		wantStatus int
		wantBody   map[string]interface{}
	}{
		{
			name:       "sent",
			path:       "/api/contact",
			body:       validBody,
			mail:       true,
			wantStatus: http.StatusOK,
			wantBody:   map[string]interface{}{"success": true},
		},
		{
			name:       "sent through fallback via relay alias",
			path:       "/api/mail/relay",
			body:       validBody,
			mail:       true,
			outcome:    services.ContactOutcome{Fallback: true},
			wantStatus: http.StatusOK,
			wantBody:   map[string]interface{}{"success": true, "fallback": true},
		},
		{
			name:       "bot submission looks like success",
			path:       "/api/contact",
			body:       validBody,
			mail:       true,
			outcome:    services.ContactOutcome{Dropped: services.GuardHoneypot},
			wantStatus: http.StatusOK,
			wantBody:   map[string]interface{}{"success": true},
		},
		{
			name:       "mail unconfigured",
			path:       "/api/contact",
			body:       validBody,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "rate limited",
			path:       "/api/contact",
			body:       validBody,
			mail:       true,
			err:        apierrors.RateLimited(apierrors.MsgRateLimited),
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "smtp auth failure",
			path:       "/api/contact",
			body:       validBody,
			mail:       true,
			err:        apierrors.Upstream(apierrors.MsgContactFailed, errors.New("535")).WithReason("auth"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.mailConfigured = tt.mail
			d.contact.On("Submit", mock.Anything, wantForm, "203.0.113.5").Return(tt.outcome, tt.err).Maybe()

			rec, body := serve(d.router(), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != nil {
				assert.Equal(t, tt.wantBody, body)
			}
			if tt.err != nil {
				apiErr, _ := apierrors.AsAPIError(tt.err)
				assert.Equal(t, false, body["success"])
				assert.Equal(t, apiErr.Reason, body["reason"])
			}
		})
	}
}

func TestContactHandler_InvalidInput(t *testing.T) {
	d := newTestDeps()

	rec, body := serve(d.router(), http.MethodPost, "/api/contact", `{"name":"E","email":"nope","message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid", body["reason"])
	d.contact.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestHealthHandler(t *testing.T) {
	d := newTestDeps()
	d.health.On("HealthCheck", mock.Anything).Return(services.HealthStatus{
		Status:      "ok",
		Timestamp:   "2025-03-01T10:00:00Z",
		Environment: "production",
		Service:     "evs-frontend",
		Version:     "1.4.1",
	})
	d.health.On("ReadinessCheck", mock.Anything).Return(services.ReadinessStatus{
		Status: services.StatusNotReady,
		Services: map[string]services.ServiceHealth{
			"store": {Status: services.StatusNotReady, Message: "ping failed"},
		},
	})
	h := d.router()

	rec, body := serve(h, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "evs-frontend", body["service"])
	assert.Equal(t, "production", body["environment"])

	rec, body = serve(h, http.MethodGet, "/api/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, services.StatusNotReady, body["status"])
}
