// file: service/errors.go

package service

import "errors"

var (
	// ErrDuplicateAccount is returned by Signup when the email is taken.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrAccessDenied is the single rejection for signin and refresh. It never
	// says which check failed.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnauthenticated is returned by token guards before the service runs.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrHashFormat means a stored hash could not be parsed. It is not retried.
	ErrHashFormat = errors.New("malformed stored hash")

	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenExpired   = errors.New("token has expired")
	ErrInvalidSecrets = errors.New("access and refresh secrets must be non-empty and distinct")
)
