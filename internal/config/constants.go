package config

import "time"

// Application constants for the EverVibe Studios storefront
const (
	// Application Info
	AppName   = "EverVibe Studios Storefront"
	AppVendor = "EverVibe Studios"

	// License key format
	LicenseKeyPrefix  = "EVS"
	LicenseKeyPattern = `^EVS-[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{4}$`

	// Invoice numbering
	InvoicePrefix = "EVS"
	Currency      = "EUR"
	ProductName   = "EVS Basic Template"

	// Download tokens
	DownloadTokenTTL = 5 * time.Minute

	// Per-client rate limits, all counted over RateLimitWindow
	RateLimitWindow      = 5 * time.Minute
	CreateOrderRateLimit = 10
	CaptureRateLimit     = 10
	IssueRateLimit       = 5
	ValidateRateLimit    = 3
	DownloadRateLimit    = 3

	// Contact form guards
	ContactMinFillTime      = 3 * time.Second
	ContactNameMinLength    = 2
	ContactNameMaxLength    = 60
	ContactEmailMaxLength   = 120
	ContactMessageMaxLength = 2000

	// Outbound mail
	MailSenderName     = "EverVibe Studios"
	MailFallbackPort   = 587
	MailDialTimeout    = 10 * time.Second
	SupportEmail       = "info@evervibestudios.com"
	SiteURL            = "https://basic.evervibestudios.com"
	CompanyWebsite     = "www.evervibestudios.com"
	DefaultArtifactURL = "https://github.com/evervibe/evs-next-basic-web/archive/refs/heads/main.zip"

	// Issuance audit trail
	AuditTimeout = 10 * time.Second

	// Payment processor
	PayPalSandboxURL = "https://api-m.sandbox.paypal.com"
	PayPalLiveURL    = "https://api-m.paypal.com"
	PayPalTimeout    = 30 * time.Second

	// Minimum recommended secret length
	MinSecretLength = 32
)
