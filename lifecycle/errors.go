package lifecycle

import "errors"

// Domain errors returned as typed results so the HTTP layer can answer each
// one differently: an invalid table token tells the diner to rescan the QR
// code, an unavailable item tells them to pick something else, and neither
// must ever be conflated with a transient store failure.
var (
	ErrInvalidTableToken = errors.New("invalid table token")
	ErrItemUnavailable   = errors.New("item unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("principal lacks venue scope")
	ErrNotFound          = errors.New("record not found")
	ErrMalformedRequest  = errors.New("malformed request")

	// ErrStoreUnavailable wraps transient store failures. Retryable by the
	// client, never a domain outcome.
	ErrStoreUnavailable = errors.New("store unavailable")
)
