// Package app is the composition root of the storefront server.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, an optional YAML file and the environment
//	2. Initialize logging and OpenTelemetry
//	3. Connect to Redis when REDIS_URL is set
//	4. Build stores, invoice generator, audit sinks, mailer and payment client
//	5. Build the services and the per-route rate limiters
//	6. Mount the HTTP handlers and create the server
//
// Subsystems whose configuration is missing are left out of the graph. Their
// routes answer 503 before any input validation or rate limiting.
//
// # Graceful Shutdown
//
// Run serves until SIGINT or SIGTERM, then drains in-flight requests within
// the configured shutdown timeout, flushes telemetry and closes the Redis client.
// Initialization errors are returned to the caller; the package never calls os.Exit.
package app
