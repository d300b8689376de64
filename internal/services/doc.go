// Package services implements the storefront's business logic between the
// HTTP handlers and the infrastructure adapters.
//
// # Services
//
//	- PurchaseService: creates and captures payment orders and starts issuance
//	- LicenseIssuer: the issuance saga (generate, store, invoice, mail, audit)
//	- DownloadGate: license validation, download tokens and download logging
//	- ContactService: the guarded contact form relay
//	- HealthService: liveness and readiness reports
//
// # Error Handling
//
// Services return *errors.APIError values carrying a stable code and a
// customer-facing message; handlers render them unchanged. Infrastructure
// errors are attached as the cause and never reach the response body.
//
// # Testing
//
// Collaborators are consumed through the small interfaces in interfaces.go
// and mocked with testify in tests:
//
//	store := &MockLicenseRepository{}
//	store.On("Validate", mock.Anything, key, email, mock.Anything).Return(result, nil)
package services
