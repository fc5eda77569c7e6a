package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	// ErrCodeExternalService indicates a remote service answered with a
	// server-side failure.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Request errors
const (
	// ErrCodeInvalidParam indicates a caller-supplied value is unusable.
	ErrCodeInvalidParam ErrorCode = "INVALID_PARAM"
	// ErrCodeForbiddenAddress indicates a destination resolves into a
	// denied address range.
	ErrCodeForbiddenAddress ErrorCode = "FORBIDDEN_ADDRESS"
	// ErrCodeMalformedRule indicates a push rule produced contradictory actions.
	ErrCodeMalformedRule ErrorCode = "MALFORMED_RULE"
	// ErrCodeRejected indicates a remote service refused the request permanently.
	ErrCodeRejected ErrorCode = "REJECTED"
)

// Internal errors
const (
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
