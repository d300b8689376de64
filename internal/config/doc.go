// Package config provides centralized configuration management for the storefront.
// Configuration is built once at process start and handed to every component as an
// explicit value; components ask presence questions instead of catching errors from
// lazy accessors.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority, optionally seeded from a .env file)
//	2. YAML configuration file (config.yaml, configs/config.yaml or $EVS_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// Variable names are unprefixed so existing deployments keep working:
//
//	SMTP_HOST=mail.example.com
//	SMTP_PORT=465
//	PAYPAL_CLIENT_ID=...
//	LICENSE_SALT=...
//	LICENSE_JWT_SECRET=...
//	REDIS_URL=redis://localhost:6379/0
//	ENABLE_RATE_LIMIT=true
//
// # Presence Checks
//
//	cfg.PayPalConfigured()  // order endpoints answer 503 otherwise
//	cfg.SMTPConfigured()    // contact and issuance answer 503 otherwise
//	cfg.LicenseConfigured() // issuance and validation need salt and JWT secret
//	cfg.RedisConfigured()   // license store and shared counters
package config
