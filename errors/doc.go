// Package errors provides structured application errors with machine-readable
// codes, HTTP status mapping and retryable detection.
package errors
