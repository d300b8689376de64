// Package http implements the storefront's HTTP handlers. Handlers are a thin
// layer between chi routing and the services package: they decode and
// validate requests, call a service and render the result.
//
// # Endpoints
//
//	POST /api/paypal/create-order   CheckoutHandler.CreateOrder
//	POST /api/paypal/capture-order  CheckoutHandler.CaptureOrder
//	POST /api/license/issue         LicenseHandler.Issue
//	POST /api/license/validate      LicenseHandler.Validate
//	GET  /api/download?token=       LicenseHandler.Download
//	POST /api/contact               ContactHandler.Submit (alias /api/mail/relay)
//	GET  /api/health                HealthHandler.HealthCheck
//	GET  /api/health/ready          HealthHandler.ReadinessCheck
//
// # Error Handling
//
// Every failure is rendered by errors.ErrorHandler as
//
//	{"success": false, "error": "<message>", "code": "<CODE>", "reason": "<reason>"}
//
// Configuration checks run before rate limiting, which runs before input
// validation, so each route answers 503, then 429, then 400.
//
// # Testing
//
// Handlers depend on the small interfaces in service_interfaces.go and are
// tested with httptest and testify mocks.
package http
