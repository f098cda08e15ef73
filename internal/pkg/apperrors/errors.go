package apperrors

import "errors"

// Kind classifies an application error independent of transport.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindConflict        Kind = "CONFLICT"
	KindInternal        Kind = "INTERNAL"
)

// Common errors, one per kind
var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrConflict         = errors.New("conflict")
	ErrInternal         = errors.New("internal error")
)

// Domain errors
var (
	ErrUserNotFound        = NewCustomError(ErrNotFound, "user not found")
	ErrCommunityNotFound   = NewCustomError(ErrNotFound, "community not found")
	ErrPostNotFound        = NewCustomError(ErrNotFound, "post not found")
	ErrEventNotFound       = NewCustomError(ErrNotFound, "event not found")
	ErrMembershipNotFound  = NewCustomError(ErrNotFound, "user is not a member of this community")
	ErrJoinRequestMissing  = NewCustomError(ErrNotFound, "join request not found")
	ErrPinnedPostNotFound  = NewCustomError(ErrNotFound, "pinned post not found")
	ErrAchievementNotFound = NewCustomError(ErrNotFound, "achievement not found")

	ErrNotCommunityOwner = NewCustomError(ErrPermissionDenied, "only the community owner can perform this action")
	ErrNotCommunityStaff = NewCustomError(ErrPermissionDenied, "you must be a Leader or Event Manager in this community")
	ErrNotMember         = NewCustomError(ErrPermissionDenied, "you must be a member of the community")

	ErrAlreadyMember    = NewCustomError(ErrConflict, "already a member of this community")
	ErrAlreadyRequested = NewCustomError(ErrConflict, "already requested to join this community")
	ErrAlreadyPinned    = NewCustomError(ErrConflict, "post is already pinned")
	ErrPinLimitReached  = NewCustomError(ErrConflict, "a community can have at most 3 pinned posts")
	ErrEventAtCapacity  = NewCustomError(ErrConflict, "event has reached maximum capacity")
	ErrAlreadyFollowing = NewCustomError(ErrConflict, "already following this user")

	ErrInvalidCredentials = NewCustomError(ErrUnauthenticated, "invalid email or password")
	ErrTokenExpired       = NewCustomError(ErrUnauthenticated, "token expired")
	ErrTokenInvalid       = NewCustomError(ErrUnauthenticated, "invalid token")
	ErrEmailAlreadyExists = NewCustomError(ErrConflict, "email already exists")

	ErrInvalidRole       = NewCustomError(ErrInvalidArgument, "invalid role")
	ErrInvalidRSVPStatus = NewCustomError(ErrInvalidArgument, "invalid RSVP status")
	ErrGlobalCommunity   = NewCustomError(ErrInvalidArgument, "the global community cannot be left")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for invalid input with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrInvalidArgument,
		Message: message,
	}
}

// NewInternalError wraps a store or infrastructure failure
func NewInternalError(message string, cause error) error {
	return &CustomError{
		Err:     ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// KindOf reports the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrPermissionDenied):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Cause   error
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *CustomError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}
