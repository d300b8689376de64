// Package store persists licenses, download logs and invoice counters.
//
// Licenses live in Redis as JSON strings under LICENSE:<key> with no expiry.
// Download attempts are appended to the list DOWNLOAD:LOG:<key>. Invoice
// numbers come from INVOICE:COUNTER:<year>, or from a file counter when no
// Redis is configured.
package store
