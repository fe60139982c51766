package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "record not found"
)

// Kind classifies an AppError for callers that branch on failure type.
type Kind string

const (
	KindSystem             Kind = "system"
	KindConfiguration      Kind = "configuration"
	KindInference          Kind = "inference"
	KindMissingDependency  Kind = "missing_dependency"
	KindInvalidPreferences Kind = "invalid_preferences"
	KindStorage            Kind = "storage"
	KindNotFound           Kind = "not_found"
)

// Cause values carried by inference failures.
const (
	CauseTransport   = "transport"
	CauseRateLimited = "rate_limited"
	CauseTimeout     = "timeout"
	CauseUpstream    = "upstream"
	CauseCancelled   = "cancelled"
)

// Sentinels matched by errors.Is against any AppError of the same kind.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrInferenceFailure   = errors.New("inference failure")
	ErrMissingDependency  = errors.New("missing dependency")
	ErrInvalidPreferences = errors.New("invalid preferences")
	ErrNotFound           = errors.New("not found")
)

var kindSentinels = map[Kind]error{
	KindConfiguration:      ErrConfiguration,
	KindInference:          ErrInferenceFailure,
	KindMissingDependency:  ErrMissingDependency,
	KindInvalidPreferences: ErrInvalidPreferences,
	KindNotFound:           ErrNotFound,
}

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string

	// Cause is set for inference failures (timeout, rate_limited, ...).
	Cause string
	// Attempts counts backend calls made before the error surfaced.
	Attempts int
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Cause != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Cause)
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Kind:    KindSystem,
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Configuration reports missing or rejected credentials and invalid model options.
// It is never retried.
func Configuration(err error, message string) *AppError {
	return &AppError{
		Kind:    KindConfiguration,
		Err:     err,
		Status:  http.StatusInternalServerError,
		Message: message,
	}
}

// Inference reports a failed call to the hosted model after retries were spent.
func Inference(err error, cause string, attempts int) *AppError {
	status := http.StatusBadGateway
	if cause == CauseTimeout {
		status = http.StatusGatewayTimeout
	}
	return &AppError{
		Kind:     KindInference,
		Err:      err,
		Status:   status,
		Message:  "inference request failed",
		Cause:    cause,
		Attempts: attempts,
	}
}

// MissingDependency reports a prompt built without its required prior stage.
func MissingDependency(stage, requires string) *AppError {
	return &AppError{
		Kind:    KindMissingDependency,
		Err:     fmt.Errorf("stage %q requires a succeeded %q result", stage, requires),
		Status:  http.StatusInternalServerError,
		Message: "missing stage dependency",
	}
}

// InvalidPreferences reports user input that fails validation.
func InvalidPreferences(err error) *AppError {
	return &AppError{
		Kind:    KindInvalidPreferences,
		Err:     err,
		Status:  http.StatusBadRequest,
		Message: "invalid travel preferences",
	}
}

// NotFound reports a missing stored record.
func NotFound(err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Err:     err,
		Status:  http.StatusNotFound,
		Message: RedisNotFoundMessage,
	}
}

// Is reports whether the target matches the underlying error or the kind sentinel.
func (e *AppError) Is(target error) bool {
	if s, ok := kindSentinels[e.Kind]; ok && s == target {
		return true
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindSystem
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
