package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrSubscriptionRequired ErrCode = "SUBSCRIPTION_REQUIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Attempt-specific ──────────────────────────────────────────────
	ErrNoQuestions          ErrCode = "NO_QUESTIONS"
	ErrAttemptCompleted     ErrCode = "ATTEMPT_COMPLETED"
	ErrAttemptNotCompleted  ErrCode = "ATTEMPT_NOT_COMPLETED"
	ErrInvalidQuestionIndex ErrCode = "INVALID_QUESTION_INDEX"
	ErrInvalidChoice        ErrCode = "INVALID_CHOICE"
	ErrTimeExpired          ErrCode = "TIME_EXPIRED"
	ErrSubmitInProgress     ErrCode = "SUBMIT_IN_PROGRESS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrSubscriptionRequired:
		return "This reviewer requires a premium subscription."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Attempt-specific ──────────────────────────────────────────────
	case ErrNoQuestions:
		return "This reviewer has no questions yet."
	case ErrAttemptCompleted:
		return "This attempt has already been submitted."
	case ErrAttemptNotCompleted:
		return "This attempt has not been submitted yet."
	case ErrInvalidQuestionIndex:
		return "Question index is out of range."
	case ErrInvalidChoice:
		return "Choice must be one of A, B, C or D."
	case ErrTimeExpired:
		return "Time is up for this attempt."
	case ErrSubmitInProgress:
		return "This attempt is being graded. Try again in a moment."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
