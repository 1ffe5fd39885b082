package lifecycle

import (
	"errors"
	"fmt"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

var (
	// ErrUnauthenticated means the requester does not resolve to an existing user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the caller lacks admin privileges.
	ErrForbidden = errors.New("admin privileges required")
	// ErrNotFound covers absent services and services owned by someone else.
	ErrNotFound = errors.New("service not found")
	// ErrInvalidTransition matches every *TransitionError.
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// ValidationError names the input field that made a request inadmissible.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransitionError reports a status change the review workflow does not allow.
type TransitionError struct {
	From models.ServiceStatus
	To   models.ServiceStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move service from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// DependencyError wraps a failure of an external collaborator.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
