package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Code is a stable, machine readable error category
type Code string

// Error taxonomy shared by every endpoint
const (
	CodeConfigUnavailable  Code = "CONFIG_UNAVAILABLE"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodeUpstreamFailure    Code = "UPSTREAM_FAILURE"
	CodeIntegrityViolation Code = "INTEGRITY_VIOLATION"
	CodePaymentIncomplete  Code = "PAYMENT_INCOMPLETE"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// statusByCode maps each category to its HTTP status
var statusByCode = map[Code]int{
	CodeConfigUnavailable:  http.StatusServiceUnavailable,
	CodeValidation:         http.StatusBadRequest,
	CodeRateLimited:        http.StatusTooManyRequests,
	CodeNotFound:           http.StatusNotFound,
	CodeForbidden:          http.StatusForbidden,
	CodeUpstreamFailure:    http.StatusInternalServerError,
	CodeIntegrityViolation: http.StatusForbidden,
	CodePaymentIncomplete:  http.StatusBadRequest,
	CodeInternal:           http.StatusInternalServerError,
}

// StatusFor returns the HTTP status for a code, 500 for unknown codes
func StatusFor(code Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// APIError represents a structured API error response.
// Message is the localized text shown to customers; Cause is never serialized.
type APIError struct {
	StatusCode int         `json:"-"`
	Code       Code        `json:"code"`
	Message    string      `json:"error"`
	Reason     string      `json:"reason,omitempty"`
	Status     string      `json:"status,omitempty"`
	Details    interface{} `json:"details,omitempty"`
	ErrorType  string      `json:"errorType,omitempty"`
	Cause      error       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError for the given category
func New(code Code, message string) *APIError {
	return &APIError{
		StatusCode: StatusFor(code),
		Code:       code,
		Message:    message,
	}
}

// WithReason sets the machine readable reason and returns e
func (e *APIError) WithReason(reason string) *APIError {
	e.Reason = reason
	return e
}

// WithCause attaches the internal cause and returns e
func (e *APIError) WithCause(err error) *APIError {
	e.Cause = err
	return e
}

// WithDetails attaches structured details and returns e
func (e *APIError) WithDetails(details interface{}) *APIError {
	e.Details = details
	return e
}

// ValidationError represents one failed field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConfigUnavailable reports that an external collaborator has no usable credentials
func ConfigUnavailable(message string) *APIError {
	return New(CodeConfigUnavailable, message).WithReason("unavailable")
}

// Validation reports malformed input
func Validation(message string) *APIError {
	return New(CodeValidation, message).WithReason("invalid")
}

// ValidationFields reports malformed input with per-field details
func ValidationFields(message string, fields []ValidationError) *APIError {
	return Validation(message).WithDetails(fields)
}

// RateLimited reports an exhausted per-client budget
func RateLimited(message string) *APIError {
	return New(CodeRateLimited, message).WithReason("ratelimit")
}

// NotFound reports a failed lookup
func NotFound(message string) *APIError {
	return New(CodeNotFound, message)
}

// Forbidden reports a failed authorization
func Forbidden(message string) *APIError {
	return New(CodeForbidden, message)
}

// Upstream reports a payment processor or mail transport failure
func Upstream(message string, cause error) *APIError {
	return New(CodeUpstreamFailure, message).WithCause(cause)
}

// Integrity reports a license whose digest does not match its fields
func Integrity(message string) *APIError {
	return New(CodeIntegrityViolation, message)
}

// PaymentIncomplete reports a capture that did not complete
func PaymentIncomplete(processorStatus string) *APIError {
	e := New(CodePaymentIncomplete, MsgPaymentIncomplete)
	e.Status = processorStatus
	return e
}

// Internal wraps an unexpected failure
func Internal(message string, cause error) *APIError {
	return New(CodeInternal, message).WithCause(cause)
}

// ErrorResponse is the JSON envelope for failures
type ErrorResponse struct {
	Success bool `json:"success"`
	*APIError
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{Success: false, APIError: err}
}

// Render implements the render.Renderer interface
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.APIError.Render(w, r)
}

// AsAPIError extracts an *APIError from err's chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
