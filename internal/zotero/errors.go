package zotero

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the Zotero client.
var (
	// ErrNotFound indicates the item or library was not found.
	ErrNotFound = errors.New("not found in Zotero")

	// ErrAuthError indicates a missing, invalid or under-privileged API key.
	ErrAuthError = errors.New("Zotero authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("Zotero rate limit exceeded")

	// ErrPreconditionFailed indicates the item or library changed since the
	// version sent in If-Unmodified-Since-Version.
	ErrPreconditionFailed = errors.New("Zotero precondition failed: object changed remotely")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Zotero")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from Zotero")
)

// APIError represents an error status from the Zotero Web API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Zotero API error (%s %s, status %d): %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("Zotero API error (%s %s, status %d)", e.Method, e.Path, e.StatusCode)
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsPreconditionFailed returns true if a write was rejected because the
// object changed remotely.
func IsPreconditionFailed(err error) bool {
	if errors.Is(err, ErrPreconditionFailed) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusPreconditionFailed
	}
	return false
}

// retryable reports whether a GET that failed with err may be sent again.
func retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetworkError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusServiceUnavailable || apiErr.StatusCode == http.StatusBadGateway
	}
	return false
}
