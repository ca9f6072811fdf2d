package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrStudentNotFound    ErrCode = "STUDENT_NOT_FOUND"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrReadOnly         ErrCode = "READ_ONLY_SESSION"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Grade records ─────────────────────────────────────────────────
	ErrRecordNotFound  ErrCode = "RECORD_NOT_FOUND"
	ErrAmbiguousRecord ErrCode = "AMBIGUOUS_RECORD"
	ErrInvalidField    ErrCode = "INVALID_FIELD"
	ErrOutOfRange      ErrCode = "OUT_OF_RANGE"
	ErrInvalidValue    ErrCode = "INVALID_VALUE"
	ErrStaleRecord     ErrCode = "STALE_RECORD"
	ErrWriteFailed     ErrCode = "WRITE_FAILED"
	ErrRecordExists    ErrCode = "RECORD_EXISTS"
	ErrUnknownTeacher  ErrCode = "UNKNOWN_TEACHER"

	// ─── Sheet ─────────────────────────────────────────────────────────
	ErrSchema           ErrCode = "SCHEMA_ERROR"
	ErrSheetUnavailable ErrCode = "SHEET_UNAVAILABLE"
	ErrSheetReadOnly    ErrCode = "SHEET_CANNOT_APPEND"

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
		return "Email or access code is not recognised."
	case ErrStudentNotFound:
		return "No grades are recorded for that student."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have access to these grade records."
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrReadOnly:
		return "This session can view grades but not change them."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Grade records ─────────────────────────────────────────────────
	case ErrRecordNotFound:
		return "No grade record matches the selection."
	case ErrAmbiguousRecord:
		return "More than one grade record matches. Narrow the selection."
	case ErrInvalidField:
		return "Only Grade, ConductCode and CommentText can be changed."
	case ErrOutOfRange:
		return "Grade must be a whole number from 0 to 100."
	case ErrInvalidValue:
		return "A field value is not valid."
	case ErrStaleRecord:
		return "The record changed since it was loaded. Reload and try again."
	case ErrWriteFailed:
		return "The sheet rejected a write. Some fields may not have been saved."
	case ErrRecordExists:
		return "A grade record for that student, subject, assessment and term already exists."
	case ErrUnknownTeacher:
		return "That teacher is not on the roster."

	// ─── Sheet ─────────────────────────────────────────────────────────
	case ErrSchema:
		return "The grades sheet is missing required columns."
	case ErrSheetUnavailable:
		return "The grades sheet could not be read."
	case ErrSheetReadOnly:
		return "The configured sheet store cannot add new records."

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
