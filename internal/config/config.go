package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
// It is built once at start-up and passed by value or pointer to the components that need it.
type Config struct {
	Mode        string          `yaml:"mode" envconfig:"EVS_MODE"`
	BaseURL     string          `yaml:"base_url" envconfig:"BASE_URL"`
	SMTPLogging bool            `yaml:"smtp_logging" envconfig:"ENABLE_SMTP_LOGGING"`
	Server      ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security    SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging     LoggingConfig   `yaml:"logging" envconfig:"LOG"`
	Telemetry   TelemetryConfig `yaml:"telemetry" envconfig:"OTEL"`
	SMTP        SMTPConfig      `yaml:"smtp" envconfig:"SMTP"`
	Mail        MailConfig      `yaml:"mail" envconfig:"MAIL"`
	PayPal      PayPalConfig    `yaml:"paypal" envconfig:"PAYPAL"`
	License     LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Redis       RedisConfig     `yaml:"redis" envconfig:"REDIS"`
	Contact     ContactConfig   `yaml:"contact" envconfig:"CONTACT"`
	Storage     StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Audit       AuditConfig     `yaml:"audit" envconfig:"AUDIT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	RequestTimeout  time.Duration `yaml:"request_timeout" split_words:"true"`
}

// SecurityConfig contains security-related configuration.
// ENABLE_RATE_LIMIT and RATE_LIMIT_BACKEND are read without the SECURITY_ prefix as well.
type SecurityConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableRateLimit  bool     `yaml:"enable_rate_limit" envconfig:"ENABLE_RATE_LIMIT"`
	RateLimitBackend string   `yaml:"rate_limit_backend" envconfig:"RATE_LIMIT_BACKEND"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true"`
	MetricExporter string  `yaml:"metric_exporter" split_words:"true"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true"`
}

// SMTPConfig describes the outbound mail relay
type SMTPConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secure bool   `yaml:"secure"`
	User   string `yaml:"user"`
	Pass   string `yaml:"-"`
	// SkipTLSVerify accepts relays whose certificate does not match Host
	SkipTLSVerify bool `yaml:"skip_tls_verify" split_words:"true"`
}

// MailConfig contains addressing for operator mail
type MailConfig struct {
	To   string `yaml:"to"`
	From string `yaml:"from"`
}

// PayPalConfig contains payment processor credentials
type PayPalConfig struct {
	ClientID     string `yaml:"client_id" split_words:"true"`
	ClientSecret string `yaml:"-" split_words:"true"`
	Mode         string `yaml:"mode"`
	BaseURL      string `yaml:"base_url" split_words:"true"`
}

// LicenseConfig contains license issuance settings
type LicenseConfig struct {
	Salt        string  `yaml:"-"`
	JWTSecret   string  `yaml:"-" envconfig:"JWT_SECRET"`
	EmailSender string  `yaml:"email_sender" split_words:"true"`
	SinglePrice float64 `yaml:"single_price" split_words:"true"`
	AgencyPrice float64 `yaml:"agency_price" split_words:"true"`
	ArtifactURL string  `yaml:"artifact_url" split_words:"true"`
	PortalURL   string  `yaml:"portal_url" split_words:"true"`
}

// RedisConfig points at the key-value store
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ContactConfig controls the contact form guards
type ContactConfig struct {
	RateLimitMax     int           `yaml:"rate_limit_max" split_words:"true"`
	RateLimitWindow  time.Duration `yaml:"rate_limit_window" split_words:"true"`
	MinMessageLength int           `yaml:"min_message_length" split_words:"true"`
}

// StorageConfig contains file system locations for generated artifacts
type StorageConfig struct {
	InvoiceDir    string `yaml:"invoice_dir" split_words:"true"`
	LicenseLogDir string `yaml:"license_log_dir" split_words:"true"`
	MailLogDir    string `yaml:"mail_log_dir" split_words:"true"`
}

// AuditConfig enables the spreadsheet audit sink
type AuditConfig struct {
	SheetID         string `yaml:"sheet_id" split_words:"true"`
	SheetName       string `yaml:"sheet_name" split_words:"true"`
	CredentialsFile string `yaml:"credentials_file" split_words:"true"`
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration and normalizes enumerations
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	c.PayPal.Mode = strings.ToLower(c.PayPal.Mode)
	if c.PayPal.Mode != "sandbox" && c.PayPal.Mode != "live" {
		return fmt.Errorf("invalid PAYPAL_MODE %q: expected sandbox or live", c.PayPal.Mode)
	}

	if c.License.SinglePrice <= 0 || c.License.AgencyPrice <= 0 {
		return fmt.Errorf("license prices must be positive")
	}

	c.Security.RateLimitBackend = strings.ToLower(c.Security.RateLimitBackend)
	switch c.Security.RateLimitBackend {
	case "memory":
	case "redis":
		if !c.RedisConfigured() {
			return fmt.Errorf("rate limit backend redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("invalid rate limit backend %q", c.Security.RateLimitBackend)
	}

	if c.Contact.RateLimitMax <= 0 || c.Contact.RateLimitWindow <= 0 {
		return fmt.Errorf("contact rate limit must be positive")
	}

	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", c.SMTP.Port)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	return nil
}

// PayPalConfigured reports whether payment credentials are present
func (c *Config) PayPalConfigured() bool {
	return c.PayPal.ClientID != "" && c.PayPal.ClientSecret != ""
}

// SMTPConfigured reports whether the mail relay can be used
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != "" && c.SMTP.Port > 0 && c.SMTP.User != "" && c.SMTP.Pass != ""
}

// LicenseConfigured reports whether license hashing and token signing secrets are present
func (c *Config) LicenseConfigured() bool {
	return c.License.Salt != "" && c.License.JWTSecret != ""
}

// RedisConfigured reports whether a key-value store is configured
func (c *Config) RedisConfigured() bool {
	return c.Redis.URL != ""
}

// AuditSheetConfigured reports whether issuance rows should also go to a spreadsheet
func (c *Config) AuditSheetConfigured() bool {
	return c.Audit.SheetID != "" && c.Audit.CredentialsFile != ""
}

// IsDevelopment reports whether verbose error details may be exposed
func (c *Config) IsDevelopment() bool {
	return c.Mode == "development"
}

// PayPalBaseURL returns the processor endpoint for the configured mode
func (c *Config) PayPalBaseURL() string {
	if c.PayPal.BaseURL != "" {
		return strings.TrimRight(c.PayPal.BaseURL, "/")
	}
	if c.PayPal.Mode == "live" {
		return PayPalLiveURL
	}
	return PayPalSandboxURL
}

// MailSender returns the envelope sender for customer mail
func (c *Config) MailSender() string {
	if c.License.EmailSender != "" {
		return c.License.EmailSender
	}
	if c.Mail.From != "" {
		return c.Mail.From
	}
	return c.SMTP.User
}

// WeakSecrets lists configured secrets shorter than MinSecretLength
func (c *Config) WeakSecrets() []string {
	var weak []string
	if c.License.Salt != "" && len(c.License.Salt) < MinSecretLength {
		weak = append(weak, "LICENSE_SALT")
	}
	if c.License.JWTSecret != "" && len(c.License.JWTSecret) < MinSecretLength {
		weak = append(weak, "LICENSE_JWT_SECRET")
	}
	return weak
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv("EVS_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Mode:    "development",
		BaseURL: SiteURL,
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  45 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins:   []string{SiteURL},
			EnableRateLimit:  true,
			RateLimitBackend: "memory",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		SMTP: SMTPConfig{
			Port:   465,
			Secure: true,
		},
		Mail: MailConfig{
			To: SupportEmail,
		},
		PayPal: PayPalConfig{
			Mode: "sandbox",
		},
		License: LicenseConfig{
			EmailSender: SupportEmail,
			SinglePrice: 29.0,
			AgencyPrice: 79.0,
			ArtifactURL: DefaultArtifactURL,
			PortalURL:   SiteURL,
		},
		Contact: ContactConfig{
			RateLimitMax:     3,
			RateLimitWindow:  5 * time.Minute,
			MinMessageLength: 5,
		},
		Storage: StorageConfig{
			InvoiceDir:    "docs/invoices",
			LicenseLogDir: "logs/licenses",
			MailLogDir:    "logs/mail",
		},
		Audit: AuditConfig{
			SheetName: "Licenses",
		},
	}
}
