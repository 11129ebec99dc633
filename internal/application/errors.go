package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute such as an email is taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when login data does not match an account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned for tokens past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for tokens that were logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// Field error codes. Transports translate them into user-facing text.
const (
	CodeRequired     = "required"
	CodeInvalid      = "invalid"
	CodeTooShort     = "too_short"
	CodeBeforeStart  = "before_start"
	CodeTooLarge     = "too_large"
	CodeOutsideRange = "outside_range"
)

// ValidationError captures field level validation issues that callers can surface to users.
// FieldErrors maps a field name to one of the Code constants.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first code recorded for a field wins.
func (v *ValidationError) add(field, code string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = code
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, code := range other.FieldErrors {
		v.add(field, code)
	}
}

func fieldError(field, code string) *ValidationError {
	v := &ValidationError{}
	v.add(field, code)
	return v
}
