// file: repository/repository.go

package repository

import (
	"context"
	"errors"

	"go-auth-api/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// IUserRepository is the credential store contract consumed by the auth service.
// Implementations must serialize writes per user so that at most one
// refresh token hash is committed for a user at any instant.
type IUserRepository interface {
	// CreateUser inserts a user and returns it with its generated id.
	// It returns ErrDuplicateEmail when the email is already taken.
	CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error)

	// FindUserByEmail returns ErrUserNotFound when no user has that email.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)

	// FindUserByID returns ErrUserNotFound when no user has that id.
	FindUserByID(ctx context.Context, id string) (*model.User, error)

	// UpdateRefreshHash sets the user's refresh token hash, or clears it when
	// hash is nil. Clearing an already empty hash or an unknown user is a no-op;
	// setting a hash on an unknown user returns ErrUserNotFound.
	UpdateRefreshHash(ctx context.Context, id string, hash *string) error

	// SwapRefreshHash replaces the stored hash with next only if it still equals
	// expected. It reports whether the swap happened.
	SwapRefreshHash(ctx context.Context, id, expected, next string) (bool, error)
}
