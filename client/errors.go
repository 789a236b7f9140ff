package client

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed error taxonomy carried on every error the
// client raises. Callers branch on the code, never on message text.
type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeSecurity   ErrorCode = "SECURITY_ERROR"
	ErrCodeDiscovery  ErrorCode = "DISCOVERY_ERROR"
	ErrCodeProtocol   ErrorCode = "PROTOCOL_ERROR"
	ErrCodeServer     ErrorCode = "SERVER_ERROR"
	ErrCodeClient     ErrorCode = "CLIENT_ERROR"
)

// Sentinel errors for common misuse conditions, matchable with errors.Is.
var (
	ErrClientClosed  = errors.New("client is closed")
	ErrReentrantCall = errors.New("reentrant call")
)

// Error is the typed failure returned by every client operation.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a typed client error.
func NewError(code ErrorCode, message string, details map[string]any, cause error) *Error {
	return &Error{Code: code, Message: message, Details: details, Cause: cause}
}

// AsError extracts the typed error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// wrapUnexpected turns anything that is not already a typed Error into a
// CLIENT_ERROR, preserving the original error's type name in the details.
func wrapUnexpected(err error, message string) *Error {
	if e, ok := AsError(err); ok {
		return e
	}
	return &Error{
		Code:    ErrCodeClient,
		Message: message,
		Details: map[string]any{"cause_type": fmt.Sprintf("%T", err)},
		Cause:   err,
	}
}

func hasCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsValidationError reports whether the request was rejected before
// sanitization.
func IsValidationError(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsSecurityError reports whether the sanitization policy rejected the
// request.
func IsSecurityError(err error) bool { return hasCode(err, ErrCodeSecurity) }

// IsDiscoveryError reports whether no eligible server was available.
func IsDiscoveryError(err error) bool { return hasCode(err, ErrCodeDiscovery) }

// IsProtocolError reports whether a response failed to parse.
func IsProtocolError(err error) bool { return hasCode(err, ErrCodeProtocol) }

// IsServerError reports whether the server answered with an error status.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsClientError reports any remaining failure class, including transport
// exhaustion and reentrancy misuse.
func IsClientError(err error) bool { return hasCode(err, ErrCodeClient) }
