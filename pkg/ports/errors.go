package ports

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across port implementations.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert violates a uniqueness rule,
	// e.g. a duplicate loan vote or duplicate active vouch.
	ErrConflict = errors.New("conflict")

	// ErrLLMInvalidResponse is returned when the language model answered
	// but the payload cannot be used. Not retriable.
	ErrLLMInvalidResponse = errors.New("llm returned an unusable response")
)

// DependencyError wraps a failure of an external collaborator (store,
// payment gateway, language model, chain relayer). Callers treat it as
// retriable and the HTTP layer maps it to 502.
type DependencyError struct {
	Name string
	Err  error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %v", e.Name, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// NewDependencyError wraps err as a failure of the named dependency.
func NewDependencyError(name string, err error) *DependencyError {
	return &DependencyError{Name: name, Err: err}
}

// IsRetriable reports whether an operation that failed with err is worth
// retrying. Dependency failures are; domain and validation errors are not.
func IsRetriable(err error) bool {
	var dep *DependencyError
	return errors.As(err, &dep)
}
