package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common sentinel errors for quick checks
var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable is returned when a required service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTooManyRequests is returned when rate limit is exceeded.
	ErrTooManyRequests = errors.New("too many requests")
)

// Error is the base interface for all custom errors in the system.
type Error interface {
	error
	Code() string
	Message() string
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

func newBase(code, message string, cause error) *BaseError {
	return &BaseError{
		code:    code,
		message: message,
		cause:   cause,
		stack:   captureStack(2),
	}
}

// ValidationError represents an input validation error.
type ValidationError struct {
	*BaseError
	Field string
	Value interface{}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		BaseError: newBase(CodeValidation, message, nil),
		Field:     field,
		Value:     value,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	*BaseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		BaseError: newBase(CodeNotFound, fmt.Sprintf("%s not found", resource), nil),
		Resource:  resource,
		ID:        id,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// WalletUnavailableError is returned when there is no wallet to talk to, or the session is not connected.
type WalletUnavailableError struct {
	*BaseError
}

// NewWalletUnavailableError creates a new wallet unavailable error.
func NewWalletUnavailableError(message string) *WalletUnavailableError {
	if message == "" {
		message = "no wallet available"
	}
	return &WalletUnavailableError{BaseError: newBase(CodeWalletUnavailable, message, nil)}
}

// WalletRejectedError is returned when the user declines a connection or signing request.
type WalletRejectedError struct {
	*BaseError
	Action string
}

// NewWalletRejectedError creates a new wallet rejected error.
func NewWalletRejectedError(action string, cause error) *WalletRejectedError {
	message := "request rejected by user"
	if action != "" {
		message = fmt.Sprintf("%s rejected by user", action)
	}
	return &WalletRejectedError{
		BaseError: newBase(CodeWalletRejected, message, cause),
		Action:    action,
	}
}

// NetworkMismatchError is returned when the wallet is on the wrong chain and refused to switch.
type NetworkMismatchError struct {
	*BaseError
	Want string
	Got  string
}

// NewNetworkMismatchError creates a new network mismatch error.
func NewNetworkMismatchError(want, got string, cause error) *NetworkMismatchError {
	return &NetworkMismatchError{
		BaseError: newBase(CodeNetworkMismatch, fmt.Sprintf("wallet is on chain %s, expected %s", got, want), cause),
		Want:      want,
		Got:       got,
	}
}

// InsufficientFundsError is returned when the account balance cannot cover gas.
type InsufficientFundsError struct {
	*BaseError
}

// NewInsufficientFundsError creates a new insufficient funds error.
func NewInsufficientFundsError(cause error) *InsufficientFundsError {
	return &InsufficientFundsError{BaseError: newBase(CodeInsufficientFunds, "insufficient funds for gas", cause)}
}

// RegistrationFailedError is returned when the registry call fails or reverts.
type RegistrationFailedError struct {
	*BaseError
	TxHash string
}

// NewRegistrationFailedError creates a new registration failed error.
func NewRegistrationFailedError(message string, cause error) *RegistrationFailedError {
	if message == "" {
		message = "registration failed"
	}
	return &RegistrationFailedError{BaseError: newBase(CodeRegistrationFailed, message, cause)}
}

// WithTxHash records the transaction that failed.
func (e *RegistrationFailedError) WithTxHash(hash string) *RegistrationFailedError {
	e.TxHash = hash
	return e
}

// UploadFailedError is returned when the blob store answers with a non-success status.
type UploadFailedError struct {
	*BaseError
	Reason     string
	StatusCode int
}

// NewUploadFailedError creates a new upload failed error.
func NewUploadFailedError(reason string, statusCode int) *UploadFailedError {
	return &UploadFailedError{
		BaseError:  newBase(CodeUploadFailed, fmt.Sprintf("upload failed: %s", reason), nil),
		Reason:     reason,
		StatusCode: statusCode,
	}
}

// SizeExceededError is returned before any network call when a file is over the limit.
type SizeExceededError struct {
	*BaseError
	Size  int64
	Limit int64
}

// NewSizeExceededError creates a new size exceeded error.
func NewSizeExceededError(size, limit int64) *SizeExceededError {
	return &SizeExceededError{
		BaseError: newBase(CodeSizeExceeded, fmt.Sprintf("file too large: %d bytes exceeds the %d byte limit", size, limit), nil),
		Size:      size,
		Limit:     limit,
	}
}

// ServiceError represents a downstream service error.
type ServiceError struct {
	*BaseError
	Service    string
	StatusCode int
}

// NewServiceError creates a new service error.
func NewServiceError(service, message string, statusCode int, cause error) *ServiceError {
	if message == "" {
		message = fmt.Sprintf("%s service error", service)
	}
	return &ServiceError{
		BaseError:  newBase(CodeServiceUnavailable, message, cause),
		Service:    service,
		StatusCode: statusCode,
	}
}

// RateLimitError represents a rate limiting error.
type RateLimitError struct {
	*BaseError
	RetryAfter int
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(retryAfter int) *RateLimitError {
	return &RateLimitError{
		BaseError:  newBase(CodeRateLimit, "rate limit exceeded", nil),
		RetryAfter: retryAfter,
	}
}

// Wrap wraps an error with additional context, keeping the code of a typed cause.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return &BaseError{
			code:    customErr.Code(),
			message: message,
			cause:   err,
			stack:   captureStack(1),
		}
	}

	return &BaseError{
		code:    CodeInternal,
		message: message,
		cause:   err,
		stack:   captureStack(1),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
