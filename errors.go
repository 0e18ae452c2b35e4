package grantkit

import (
	"errors"
	"fmt"

	"github.com/fernandezvara/dbkit"
)

// Sentinel errors for GrantKit operations.
var (
	// ErrRoleNotFound is returned when a role is not defined in the catalog.
	ErrRoleNotFound = errors.New("grantkit: role not found")

	// ErrRoleDisabled is returned when assigning a role that has been soft-disabled.
	ErrRoleDisabled = errors.New("grantkit: role disabled")

	// ErrPermissionNotFound is returned when a permission is not defined in the catalog.
	ErrPermissionNotFound = errors.New("grantkit: permission not found")

	// ErrInvalidCatalogReference is returned when a role's permission set names a
	// permission that does not exist. It blocks the administrative write entirely.
	ErrInvalidCatalogReference = errors.New("grantkit: invalid catalog reference")

	// ErrInvalidPermission is returned when a permission name is malformed.
	ErrInvalidPermission = errors.New("grantkit: invalid permission")

	// ErrDuplicateAssignment is returned when assigning a role the user already
	// actively holds.
	ErrDuplicateAssignment = errors.New("grantkit: role already assigned")

	// ErrAssignmentNotFound is returned when removing a role the user does not
	// actively hold.
	ErrAssignmentNotFound = errors.New("grantkit: assignment not found")

	// ErrRoleNotAssigned is returned when switching context into a role outside
	// the user's active set. Its message is deliberately no more informative
	// than ErrRoleNotFound, so callers cannot probe which roles exist.
	ErrRoleNotAssigned = errors.New("grantkit: role not assigned")

	// ErrPermissionDenied is returned by RequirePermission. Never downgraded to
	// an allow, never retried.
	ErrPermissionDenied = errors.New("grantkit: permission denied")

	// ErrNoActorID is returned when no acting principal was supplied for a
	// mutation, either explicitly or via the context.
	ErrNoActorID = errors.New("grantkit: no actor ID")

	// ErrNoUserID is returned when user ID is not found in context.
	ErrNoUserID = errors.New("grantkit: no user ID in context")

	// ErrStorageUnavailable is returned when the transactional backend fails or
	// times out. The whole operation is safe to retry: mutators either take
	// effect once or surface their business error on the retry.
	ErrStorageUnavailable = errors.New("grantkit: storage unavailable")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	UserID     string // Target user (if applicable)
	ActorID    string // Acting principal (if applicable)
	Role       string // Role involved (if applicable)
	Permission string // Permission involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithUser adds target user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithActor adds acting principal information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(permission string) *Error {
	e.Permission = permission
	return e
}

// IsPermissionDenied checks if an error is an authorization failure.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsNotFound checks if an error is any catalog or assignment miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoleNotFound) ||
		errors.Is(err, ErrPermissionNotFound) ||
		errors.Is(err, ErrAssignmentNotFound)
}

// IsDuplicateAssignment checks if an error is a duplicate active assignment.
func IsDuplicateAssignment(err error) bool {
	return errors.Is(err, ErrDuplicateAssignment)
}

// IsStorageUnavailable checks if an error is a retryable backend failure.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// storageError maps a database error onto the GrantKit taxonomy. Unique
// violations become ErrDuplicateAssignment, everything else is a retryable
// ErrStorageUnavailable carrying the operation name and the driver message.
func storageError(err error, op string) *Error {
	if dbkit.IsDuplicate(err) {
		return NewError(ErrDuplicateAssignment, op)
	}
	return NewError(ErrStorageUnavailable, fmt.Sprintf("%s: %v", op, err))
}
