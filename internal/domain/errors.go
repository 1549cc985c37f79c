package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist. Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. coordinates out of range, duplicate stop order).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a write loses a race against another writer on
// the same trip: a serialization failure, a deadlock, or a unique violation
// detected at commit. The operation left no visible state and may be retried.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller lacks the share permission needed
// for the requested operation. Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrUpstreamUnavailable marks a failed call to the external places provider.
// It never aborts a request: the place gateway carries it inside its result
// value so callers can tell "no results" from "provider failed".
var ErrUpstreamUnavailable = errors.New("upstream unavailable")
