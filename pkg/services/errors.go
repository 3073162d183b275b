package services

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyVouched is returned when the voucher already has an active
	// vouch on the same member.
	ErrAlreadyVouched = errors.New("active vouch already exists for this member")

	// ErrAlreadyVoted is returned on a duplicate vote by the same voter.
	ErrAlreadyVoted = errors.New("vote already recorded for this voter")

	// ErrLoanNotVotable is returned when a vote targets a loan outside the
	// voting stage.
	ErrLoanNotVotable = errors.New("loan is not open for voting")

	// ErrLoanNotDisbursable is returned when disbursal targets a loan that
	// is not approved.
	ErrLoanNotDisbursable = errors.New("loan is not approved for disbursal")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
