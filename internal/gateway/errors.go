package gateway

import (
	"errors"

	"github.com/examind/examtaker/internal/response"
)

// Sentinel errors forming the engine-facing taxonomy. Callers branch with
// errors.Is; the concrete wire detail stays wrapped underneath.
var (
	// ErrTokenMissing is a precondition failure: no network call was made.
	ErrTokenMissing = errors.New("session token is required")

	// ErrSessionNotFound and ErrSessionInvalid are terminal resolution
	// errors. The candidate is directed to a human operator; no retry.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInvalid  = errors.New("session is invalid")

	// ErrNotStarted is returned by the question fetch when the session is
	// still WAITING.
	ErrNotStarted = errors.New("session has not started")

	// ErrAlreadySubmitted guards re-submission of a closed session.
	ErrAlreadySubmitted = errors.New("session already submitted")

	// ErrUnavailable covers transport failures and malformed replies.
	// Whether it blocks depends on the operation: loads block, autosaves
	// are swallowed, submits are retryable.
	ErrUnavailable = errors.New("gateway unavailable")
)

// errFromCode maps a wire error code onto the sentinel taxonomy.
func errFromCode(code response.ErrCode) error {
	switch code {
	case response.ErrTokenRequired:
		return ErrTokenMissing
	case response.ErrTokenInvalid, response.ErrSessionInvalid:
		return ErrSessionInvalid
	case response.ErrSessionNotFound:
		return ErrSessionNotFound
	case response.ErrSessionNotStarted:
		return ErrNotStarted
	case response.ErrAlreadySubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrUnavailable
	}
}

// Terminal reports whether err is a dead-token resolution error that must
// not be retried against the gateway.
func Terminal(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionInvalid)
}
