package errors

import (
	"errors"
	"fmt"
)

// Common error types for the store client
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")

	// Storage errors
	ErrNotFound = errors.New("not found")

	// Equipment working set errors
	ErrUnknownItem      = errors.New("item not in current equipment list")
	ErrNegativeQuantity = errors.New("quantity must not be negative")

	// Cascade errors
	ErrNoEquipment         = errors.New("no equipment list loaded")
	ErrIncompleteSelection = errors.New("school, grade and equipment must be selected")
	ErrNothingSelected     = errors.New("no equipment items selected")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
