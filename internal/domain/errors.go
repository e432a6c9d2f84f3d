package domain

import "errors"

var (
	// ErrCatalogUnavailable indicates the hoardbooru catalog service is unavailable
	ErrCatalogUnavailable = errors.New("catalog service unavailable")

	// ErrInvalidRequest indicates an invalid request was made (4xx client errors)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound indicates the requested catalog resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates a concurrent modification to a catalog resource.
	// Writes are not retried automatically; the failed operation is surfaced as-is.
	ErrVersionConflict = errors.New("version conflict")

	// ErrSessionInvalid indicates the hidden session state is absent or incomplete.
	// Handlers decline to act on it rather than reporting to the operator.
	ErrSessionInvalid = errors.New("session state invalid")

	// ErrDeliveryFailed indicates the chat platform rejected a media delivery
	ErrDeliveryFailed = errors.New("media delivery failed")
)
