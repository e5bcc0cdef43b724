// Package errs holds the error taxonomy shared by the store, engines
// and gateway. All errors cross package boundaries as values; nothing
// panics across the store boundary and nothing is retried internally.
package errs

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound covers absent rooms, message ids and poll option ids.
	ErrNotFound = errors.New("not found")
	// ErrForbidden covers failed permission checks and edits of
	// call-summary messages.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation covers malformed poll specs and vote payloads.
	ErrValidation = errors.New("validation failed")
	// ErrPollClosed is returned for any vote after closesAt has passed.
	ErrPollClosed = errors.New("poll closed")
	// ErrVoteChange is returned when allowVoteChange is false and the
	// caller tries to replace an existing, different ballot.
	ErrVoteChange = errors.New("vote change disallowed")
	// ErrSelectionLimit is returned when a multi-select request exceeds
	// the poll's selection cap. The request is rejected wholesale.
	ErrSelectionLimit = errors.New("selection limit exceeded")
	// ErrRateLimited is returned when the creation rate limiter denies.
	ErrRateLimited = errors.New("rate limited")
	// ErrCorruptStore means the store blob exists but decodes neither as
	// ciphertext nor as legacy plaintext JSON. This is surfaced loudly
	// instead of resetting to an empty store.
	ErrCorruptStore = errors.New("corrupt store")
)

// HTTPStatus maps a taxonomy error to an HTTP status code. Unknown
// errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrSelectionLimit):
		return http.StatusBadRequest
	case errors.Is(err, ErrPollClosed),
		errors.Is(err, ErrVoteChange):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
