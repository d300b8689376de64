package services

import "errors"

// Service errors
var (
	ErrNoDeliverableAddress = errors.New("captured order carries no usable customer email")
	ErrIssuerUnavailable    = errors.New("license issuance is not configured")
)
