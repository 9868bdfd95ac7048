package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind is the category of a pipeline failure.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindInferenceFailure     Kind = "inference_failure"
	KindParseFailure         Kind = "parse_failure"
	KindStartupConfiguration Kind = "startup_configuration"
	KindInternal             Kind = "internal"
)

// ErrMissingFields is the cause of a validation error whose Fields are absent
// from the request, as opposed to present but invalid.
var ErrMissingFields = stderrors.New("missing required fields")

// AppError is the structured error passed between pipeline stages and the
// HTTP layer. Detail is for operators only and never rendered to clients.
type AppError struct {
	Kind       Kind     `json:"kind"`
	Message    string   `json:"message"`
	Detail     string   `json:"-"`
	Fields     []string `json:"fields,omitempty"`
	StatusCode int      `json:"-"`
	Cause      error    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError reports a malformed or incomplete inbound request.
// fields lists the offending request fields, if any.
func NewValidationError(message string, fields []string, cause error) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Message:    message,
		Fields:     fields,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewInferenceFailure reports that the inference service could not be reached
// or answered with an error. upstream is the service's own message.
func NewInferenceFailure(upstream string, cause error) *AppError {
	return &AppError{
		Kind:       KindInferenceFailure,
		Message:    "inference call failed",
		Detail:     upstream,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewParseFailure reports a reply that could not be read as the required
// structure. raw is kept verbatim for prompt tuning.
func NewParseFailure(message, raw string, cause error) *AppError {
	return &AppError{
		Kind:       KindParseFailure,
		Message:    message,
		Detail:     raw,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewStartupConfigurationError reports missing or invalid settings at boot.
func NewStartupConfigurationError(message string, fields []string) *AppError {
	return &AppError{
		Kind:       KindStartupConfiguration,
		Message:    message,
		Fields:     fields,
		StatusCode: http.StatusInternalServerError,
	}
}

// As unwraps err down to the first *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind checks if err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	if appErr, ok := As(err); ok {
		return appErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// GetStatusCode extracts the HTTP status code from an error.
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
