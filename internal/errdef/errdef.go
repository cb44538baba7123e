package errdef

import (
	"errors"
	"fmt"
)

// NewInvalidInput creates an error for input that cannot be interpreted,
// such as an unparseable reference month or a required timestamp.
func NewInvalidInput(format string, a ...any) error {
	return invalidInput{fmt.Errorf(format, a...)}
}

type invalidInput struct{ error }

func (e invalidInput) Unwrap() error { return e.error }

// IsInvalidInput returns true if err is an error representing invalid input and false otherwise.
func IsInvalidInput(err error) bool {
	var e invalidInput
	return errors.As(err, &e)
}

// NewNotFound creates an error representing a resource the backend could not find.
func NewNotFound(format string, a ...any) error {
	return notFound{fmt.Errorf(format, a...)}
}

type notFound struct{ error }

func (e notFound) Unwrap() error { return e.error }

// IsNotFound returns true if err is an error representing a resource that could not be found and false otherwise.
func IsNotFound(err error) bool {
	var e notFound
	return errors.As(err, &e)
}

// NewUnauthorized creates an error for a missing or rejected session token.
func NewUnauthorized(format string, a ...any) error {
	return unauthorized{fmt.Errorf(format, a...)}
}

type unauthorized struct{ error }

func (e unauthorized) Unwrap() error { return e.error }

// IsUnauthorized returns true if err is an error representing a rejected session and false otherwise.
func IsUnauthorized(err error) bool {
	var e unauthorized
	return errors.As(err, &e)
}

// NewUpstream creates an error for a failed backend call (network error or
// unexpected status) that no cached copy could cover.
func NewUpstream(format string, a ...any) error {
	return upstream{fmt.Errorf(format, a...)}
}

type upstream struct{ error }

func (e upstream) Unwrap() error { return e.error }

// IsUpstream returns true if err is an error representing a failed backend call and false otherwise.
func IsUpstream(err error) bool {
	var e upstream
	return errors.As(err, &e)
}
