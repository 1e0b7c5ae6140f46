package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for chat client operations.
type ErrorCode string

const (
	// ErrCodeDuplicateSuppressed indicates a dispatch was dropped by the fingerprint guard.
	ErrCodeDuplicateSuppressed ErrorCode = "DUPLICATE_SUPPRESSED"
	// ErrCodeTransportFailed indicates the chat endpoint was unreachable or returned a failure.
	ErrCodeTransportFailed ErrorCode = "TRANSPORT_FAILED"
	// ErrCodeBootstrapFailed indicates session bootstrap could not complete.
	ErrCodeBootstrapFailed ErrorCode = "BOOTSTRAP_FAILED"
	// ErrCodeMalformedResponse indicates the response envelope could not be decoded.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeRecognizerBusy indicates a speech recognition session is already active.
	ErrCodeRecognizerBusy ErrorCode = "RECOGNIZER_BUSY"
	// ErrCodeStoreFailed indicates the device-scoped key-value store failed.
	ErrCodeStoreFailed ErrorCode = "STORE_FAILED"
)

// ClientError represents a structured error for chat client operations.
type ClientError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *ClientError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types. Duplicate suppression
// never surfaces as an error value; its code appears in guard logs only.

// TransportFailed creates a transport failure error.
func TransportFailed(msg string, cause error) *ClientError {
	return &ClientError{Code: ErrCodeTransportFailed, Message: msg, Cause: cause}
}

// BootstrapFailed creates a bootstrap failure error.
func BootstrapFailed(msg string, cause error) *ClientError {
	return &ClientError{Code: ErrCodeBootstrapFailed, Message: msg, Cause: cause}
}

// MalformedResponse creates a malformed response error.
func MalformedResponse(msg string, cause error) *ClientError {
	return &ClientError{Code: ErrCodeMalformedResponse, Message: msg, Cause: cause}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *ClientError {
	return &ClientError{Code: ErrCodeInvalidArgument, Message: msg}
}

// RecognizerBusy creates a recognizer busy error.
func RecognizerBusy(msg string) *ClientError {
	return &ClientError{Code: ErrCodeRecognizerBusy, Message: msg}
}

// StoreFailed creates a store failure error.
func StoreFailed(msg string, cause error) *ClientError {
	return &ClientError{Code: ErrCodeStoreFailed, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *ClientError {
	return &ClientError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if cerr, ok := err.(*ClientError); ok {
		return cerr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a ClientError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if cerr, ok := err.(*ClientError); ok {
		return cerr.Code
	}
	return defaultCode
}
