package service

import "errors"

// ValidationError reports caller input that cannot be turned into a checkout.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

var (
	// ErrNoItems is returned when a checkout is requested for an empty cart.
	ErrNoItems = &ValidationError{Field: "items", Message: "no items provided"}

	ErrProviderUnavailable = errors.New("payment provider is not configured")
	ErrMissingPaymentID    = errors.New("payment notification has no payment id")
	ErrInvalidSignature    = errors.New("payment notification signature is invalid")
)

// IsValidationError reports whether err is caused by invalid caller input.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
