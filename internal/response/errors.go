package response

// ErrCode is a typed error code enum for consistent API error identification.
// The gateway client maps these codes onto the engine's error taxonomy, so
// the set here is the full vocabulary of the four external operations.
type ErrCode string

const (
	// ─── Token / resolution ────────────────────────────────────────────
	ErrTokenRequired   ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid    ErrCode = "TOKEN_INVALID"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrSessionInvalid  ErrCode = "SESSION_INVALID"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrSessionNotStarted ErrCode = "SESSION_NOT_STARTED"
	ErrAlreadySubmitted  ErrCode = "SESSION_ALREADY_SUBMITTED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "A session token is required."
	case ErrTokenInvalid:
		return "The session token is not valid."
	case ErrSessionNotFound:
		return "No session exists for this token."
	case ErrSessionInvalid:
		return "This session is no longer valid. Please contact the invigilator."
	case ErrSessionNotStarted:
		return "The exam has not started yet."
	case ErrAlreadySubmitted:
		return "This exam has already been submitted."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is not valid."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
