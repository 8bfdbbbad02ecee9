package domain

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist or is
	// not owned by the requester; the two cases are indistinguishable.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates a failed login. The same error is
	// produced for an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when registering a taken username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidToken covers malformed, tampered, and expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidInput marks a request rejected by input validation.
	// Validation failures wrap it so handlers can map them to 400
	// without string matching.
	ErrInvalidInput = errors.New("invalid input")
)

// Invalid returns a validation error carrying the given user-facing
// message. errors.Is(err, ErrInvalidInput) reports true for it.
func Invalid(msg string) error {
	return &invalidInputError{msg: msg}
}

type invalidInputError struct {
	msg string
}

func (e *invalidInputError) Error() string { return e.msg }

func (e *invalidInputError) Is(target error) bool { return target == ErrInvalidInput }
