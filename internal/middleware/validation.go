package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
)

// DefaultMaxBodySize bounds JSON request bodies
const DefaultMaxBodySize = 64 * 1024

var licenseKeyRe = regexp.MustCompile(config.LicenseKeyPattern)

// Validator decodes and validates JSON request bodies using struct tags
type Validator struct {
	validator   *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	_ = v.RegisterValidation("licensekey", isLicenseKey)
	_ = v.RegisterValidation("licensetype", isLicenseType)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validator:   v,
		logger:      logger.With(slog.String("component", "validator")),
		maxBodySize: DefaultMaxBodySize,
	}
}

// Decode reads r's JSON body into dst and validates it. Failures are
// returned as VALIDATION_ERROR with message as the user-facing text.
func (v *Validator) Decode(r *http.Request, dst interface{}, message string) error {
	if r.Body == nil {
		return apierrors.Validation(message)
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, v.maxBodySize))
	if err := dec.Decode(dst); err != nil {
		v.logger.DebugContext(r.Context(), "request body rejected",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		return apierrors.Validation(message).WithCause(err)
	}

	return v.Struct(dst, message)
}

// Struct validates a decoded value
func (v *Validator) Struct(s interface{}, message string) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.Validation(message).WithCause(err)
	}

	fields := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.ValidationFields(message, fields)
}

// ContentTypeValidator rejects bodies that are not of the given content types
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errorHandler.HandleError(w, r, apierrors.Validation(apierrors.MsgInvalidRequest).
				WithDetails(map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				}))
		})
	}
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof", "licensetype":
		return fmt.Sprintf("%s must be one of: single, agency", field)
	case "licensekey":
		return fmt.Sprintf("%s must match EVS-XXXX-XXXX-XXXX", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isLicenseKey validates the EVS-XXXX-XXXX-XXXX key format
func isLicenseKey(fl validator.FieldLevel) bool {
	return licenseKeyRe.MatchString(fl.Field().String())
}

// isLicenseType validates a purchasable license type
func isLicenseType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "single", "agency":
		return true
	}
	return false
}
