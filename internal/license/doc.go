// Package license generates and checks EverVibe Studios license keys and the
// short-lived download tokens bound to them.
//
// # Key format
//
// Keys look like EVS-1A2B-3C4D-5E6F. The twelve hex digits come from a fresh
// random UUID; no collision check is made.
//
// # Integrity
//
// Each license carries a SHA-256 digest over key, type, email, purchase date
// and a server-held salt joined with "|". Codec.ValidateIntegrity recomputes it
// and rejects any license whose fields were edited after issuance.
//
// # Download tokens
//
// Tokens are HS256 JWTs carrying licenseKey and email claims and expire five
// minutes after issuance. They are stateless and may be replayed until they
// expire.
package license
