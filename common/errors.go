// Package common holds the error kinds shared by the services and the HTTP layer.
//
// Services wrap one of these kinds with a user-facing message:
//
//	ErrRecipeNotFound = fmt.Errorf("recipe not found: %w", common.ErrNotFound)
//
// and the HTTP layer maps the kind to a status code with errors.Is.
package common

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
	ErrInternal     = errors.New("internal error")
)

// Message returns the user-facing part of a wrapped kind error, i.e. the
// text before the trailing ": <kind>".
func Message(err error) string {
	msg := err.Error()
	for _, kind := range []error{ErrNotFound, ErrForbidden, ErrConflict, ErrUnauthorized, ErrValidation, ErrInternal} {
		suffix := ": " + kind.Error()
		if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
			return msg[:len(msg)-len(suffix)]
		}
	}
	return msg
}
