package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Mode = "production"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Telemetry.TraceExporter = "none"
	cfg.Telemetry.MetricExporter = "none"
	cfg.Storage = config.StorageConfig{
		InvoiceDir:    dir + "/invoices",
		LicenseLogDir: dir + "/licenses",
		MailLogDir:    dir + "/mail",
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(context.Background(), cfg, infrastructure.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(a.closeRedis)
	return a
}

func do(h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "198.51.100.7:52000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func TestNew_Unconfigured(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	assert.Nil(t, a.Services.Issuer)
	assert.Nil(t, a.Services.Store)
	assert.False(t, a.Services.Purchase.Available())
	assert.False(t, a.Services.Gate.Available())

	key := license.GenerateKey()
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"create order", http.MethodPost, "/api/paypal/create-order", `{"licenseType":"single","email":"a@b.de"}`, http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE"},
		{"capture order", http.MethodPost, "/api/paypal/capture-order", `{"orderId":"X"}`, http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE"},
		{"issue", http.MethodPost, "/api/license/issue", `{"licenseType":"single","email":"a@b.de"}`, http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE"},
		{"validate", http.MethodPost, "/api/license/validate", `{"licenseKey":"` + key + `","email":"a@b.de"}`, http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE"},
		{"contact", http.MethodPost, "/api/contact", `{"name":"Max","email":"a@b.de","message":"Hallo Welt"}`, http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE"},
		{"mail relay", http.MethodPost, "/api/mail/relay", `{"name":"Max","email":"a@b.de","message":"Hallo Welt"}`, http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE"},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(a.Router, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestNew_HealthRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	rec, body := do(a.Router, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "evs-frontend", body["service"])
	assert.Equal(t, "production", body["environment"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, body = do(a.Router, http.MethodGet, "/api/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	services, ok := body["services"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, services, "payment")
	assert.Contains(t, services, "store")

	rec, _ = do(a.Router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_CORS(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.AllowedOrigins = []string{"https://shop.example"}
	a := newTestApp(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNew_InvalidRateLimitBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RateLimitBackend = "memcached"

	_, err := New(context.Background(), cfg, infrastructure.DiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.URL = "redis://127.0.0.1:1"

	_, err := New(context.Background(), cfg, infrastructure.DiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNew_ValidateAndDownloadWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Security.RateLimitBackend = "redis"
	cfg.License.Salt = testSecret
	cfg.License.JWTSecret = testSecret
	cfg.License.ArtifactURL = "https://cdn.example/evs-basic.zip"
	a := newTestApp(t, cfg)
	require.NotNil(t, a.Services.Store)
	assert.True(t, a.Services.Gate.Available())

	ctx := context.Background()
	key := license.GenerateKey()
	require.NoError(t, a.Services.Store.Store(ctx, key, domain.StoredLicense{
		Email:    "kunde@example.de",
		Type:     domain.LicenseTypeAgency,
		IssuedAt: "2025-03-01",
	}))

	validate := `{"licenseKey":"` + key + `","email":"Kunde@Example.de"}`
	rec, body := do(a.Router, http.MethodPost, "/api/license/validate", validate)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "agency", body["licenseType"])

	rec, body = do(a.Router, http.MethodGet, "/api/download?token="+token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://cdn.example/evs-basic.zip", body["downloadUrl"])
	assert.Equal(t, key, body["licenseKey"])

	stored, err := a.Services.Store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.DownloadCount)

	logs, err := a.Services.Store.DownloadLogs(ctx, key)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "198.51.100.7", logs[0].IP)

	// validate allows three per window and the first was spent above
	for i := 0; i < 2; i++ {
		rec, _ = do(a.Router, http.MethodPost, "/api/license/validate", validate)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, body = do(a.Router, http.MethodPost, "/api/license/validate", validate)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", body["code"])

	rec, body = do(a.Router, http.MethodGet, "/api/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	store := body["services"].(map[string]interface{})["store"].(map[string]interface{})
	assert.Equal(t, "ready", store["status"])
}

func TestNew_RateLimitDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.EnableRateLimit = false
	a := newTestApp(t, cfg)

	for i := 0; i < 5; i++ {
		rec, _ := do(a.Router, http.MethodPost, "/api/license/validate", `{"licenseKey":"bad","email":"a@b.de"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestApplication_createServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 18099
	a := newTestApp(t, cfg)

	assert.Equal(t, ":18099", a.Server.Addr)
	assert.Equal(t, a.Router, a.Server.Handler)
	assert.Equal(t, cfg.Server.ReadTimeout, a.Server.ReadTimeout)
	assert.Equal(t, cfg.Server.WriteTimeout, a.Server.WriteTimeout)
	assert.Equal(t, cfg.Server.IdleTimeout, a.Server.IdleTimeout)
}

func TestApplication_StartStop(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
