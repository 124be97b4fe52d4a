package search

import "errors"

// Error definitions for search index operations.
var (
	// ErrBadRequest is returned when the index rejects the request (HTTP 400).
	ErrBadRequest = errors.New("search bad request")

	// ErrServerError is returned for index internal errors (HTTP 5xx) and throttling (HTTP 429).
	ErrServerError = errors.New("search server error")

	// ErrClientDisabled is returned when operations are attempted on a disabled client.
	ErrClientDisabled = errors.New("search client disabled")

	// ErrUnknownIndex is returned for an item type without a configured index.
	ErrUnknownIndex = errors.New("search index not configured")
)
