package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"EVS_MODE", "SERVER_PORT", "SMTP_HOST", "SMTP_PORT", "SMTP_SECURE", "SMTP_USER", "SMTP_PASS",
	"SMTP_SKIP_TLS_VERIFY",
	"PAYPAL_CLIENT_ID", "PAYPAL_CLIENT_SECRET", "PAYPAL_MODE", "PAYPAL_BASE_URL",
	"LICENSE_SALT", "LICENSE_JWT_SECRET", "JWT_SECRET", "LICENSE_SINGLE_PRICE", "LICENSE_AGENCY_PRICE",
	"REDIS_URL", "ENABLE_RATE_LIMIT", "RATE_LIMIT_BACKEND", "SECURITY_ENABLE_RATE_LIMIT",
	"SECURITY_RATE_LIMIT_BACKEND", "CONTACT_RATE_LIMIT_MAX", "CONTACT_RATE_LIMIT_WINDOW",
	"MAIL_TO", "LICENSE_EMAIL_SENDER", "MAIL_FROM",
}

// clearConfigEnv unsets every variable the tests touch and restores them afterwards
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		if val, ok := os.LookupEnv(name); ok {
			t.Cleanup(func() { os.Setenv(name, val) })
		} else {
			t.Cleanup(func() { os.Unsetenv(name) })
		}
		os.Unsetenv(name)
	}
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "development", cfg.Mode)
				assert.Equal(t, 465, cfg.SMTP.Port)
				assert.True(t, cfg.SMTP.Secure)
				assert.False(t, cfg.SMTP.SkipTLSVerify)
				assert.Equal(t, "sandbox", cfg.PayPal.Mode)
				assert.Equal(t, 29.0, cfg.License.SinglePrice)
				assert.Equal(t, 79.0, cfg.License.AgencyPrice)
				assert.Equal(t, 3, cfg.Contact.RateLimitMax)
				assert.Equal(t, 5*time.Minute, cfg.Contact.RateLimitWindow)
				assert.True(t, cfg.Security.EnableRateLimit)
				assert.Equal(t, "memory", cfg.Security.RateLimitBackend)
				assert.Equal(t, "info@evervibestudios.com", cfg.Mail.To)
				assert.False(t, cfg.PayPalConfigured())
				assert.False(t, cfg.SMTPConfigured())
				assert.False(t, cfg.LicenseConfigured())
			},
		},
		{
			name: "original environment variable names",
			env: map[string]string{
				"SMTP_HOST":                 "mail.example.com",
				"SMTP_PORT":                 "587",
				"SMTP_SECURE":               "false",
				"SMTP_USER":                 "info@example.com",
				"SMTP_PASS":                 "secret",
				"SMTP_SKIP_TLS_VERIFY":      "true",
				"PAYPAL_CLIENT_ID":          "client",
				"PAYPAL_CLIENT_SECRET":      "shh",
				"PAYPAL_MODE":               "LIVE",
				"LICENSE_SALT":              "salt",
				"LICENSE_JWT_SECRET":        "jwt",
				"CONTACT_RATE_LIMIT_WINDOW": "10m",
				"EVS_MODE":                  "production",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mail.example.com", cfg.SMTP.Host)
				assert.Equal(t, 587, cfg.SMTP.Port)
				assert.False(t, cfg.SMTP.Secure)
				assert.True(t, cfg.SMTP.SkipTLSVerify)
				assert.True(t, cfg.SMTPConfigured())
				assert.True(t, cfg.PayPalConfigured())
				assert.True(t, cfg.LicenseConfigured())
				assert.Equal(t, "live", cfg.PayPal.Mode)
				assert.Equal(t, PayPalLiveURL, cfg.PayPalBaseURL())
				assert.Equal(t, 10*time.Minute, cfg.Contact.RateLimitWindow)
				assert.False(t, cfg.IsDevelopment())
			},
		},
		{
			name: "unprefixed rate limit switch",
			env:  map[string]string{"ENABLE_RATE_LIMIT": "false"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Security.EnableRateLimit)
			},
		},
		{
			name: "file values are overridden by env",
			fileContent: `
server:
  port: 9000
license:
  single_price: 39
  agency_price: 99
`,
			env: map[string]string{"LICENSE_AGENCY_PRICE": "109.5"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, 39.0, cfg.License.SinglePrice)
				assert.Equal(t, 109.5, cfg.License.AgencyPrice)
			},
		},
		{
			name:    "invalid paypal mode",
			env:     map[string]string{"PAYPAL_MODE": "staging"},
			wantErr: true,
		},
		{
			name:    "redis rate limit backend without redis",
			env:     map[string]string{"RATE_LIMIT_BACKEND": "redis"},
			wantErr: true,
		},
		{
			name:    "invalid server port",
			env:     map[string]string{"SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "non numeric price",
			env:     map[string]string{"LICENSE_SINGLE_PRICE": "cheap"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			path := ""
			if tt.fileContent != "" {
				path = filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.fileContent), 0o644))
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	clearConfigEnv(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_MailSender(t *testing.T) {
	cfg := Default()
	assert.Equal(t, SupportEmail, cfg.MailSender())

	cfg.License.EmailSender = ""
	cfg.Mail.From = "shop@example.com"
	assert.Equal(t, "shop@example.com", cfg.MailSender())

	cfg.Mail.From = ""
	cfg.SMTP.User = "relay@example.com"
	assert.Equal(t, "relay@example.com", cfg.MailSender())
}

func TestConfig_PayPalBaseURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, PayPalSandboxURL, cfg.PayPalBaseURL())

	cfg.PayPal.BaseURL = "http://127.0.0.1:9999/"
	assert.Equal(t, "http://127.0.0.1:9999", cfg.PayPalBaseURL())
}

func TestConfig_WeakSecrets(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.WeakSecrets())

	cfg.License.Salt = "short"
	cfg.License.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.Equal(t, []string{"LICENSE_SALT"}, cfg.WeakSecrets())
}
