// Package shared holds helpers used across the storefront's packages.
//
// testutil captures slog output so tests can assert on what a component
// logged and, as importantly, on what it never logs (secrets, tokens).
package shared
