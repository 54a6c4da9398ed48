package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced appointment does not exist.
	ErrNotFound = errors.New("appointment not found")

	// ErrNotOwner is returned when an actor mutates an appointment they do not own.
	ErrNotOwner = errors.New("appointment belongs to another user")

	// ErrPaymentInitiation is returned when a payment provider rejected or was
	// unreachable while initiating a payment. The just-created appointment is
	// cancelled before this error surfaces.
	ErrPaymentInitiation = errors.New("failed to initiate payment")
)

// ValidationError reports a malformed or missing input field. It is raised
// before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
