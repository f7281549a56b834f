package users

import (
	"context"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
)

var (
	ErrUserNotFound  = errors.ErrUserNotFound
	ErrUsernameTaken = errors.ErrUsernameTaken
)

// Directory is the read-only view of the user directory the limiter depends on.
type Directory interface {
	// GetByID returns the user or ErrUserNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// Roles returns every role known to the directory.
	Roles(ctx context.Context) ([]Role, error)
}

// UserRepo is the writable directory used by the host application.
type UserRepo interface {
	Directory
	// Upsert creates or replaces user. A username held by another user returns ErrUsernameTaken.
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

// Authenticate checks username and password against repo.
// Unknown users, blocked users and wrong passwords all return ErrInvalidCredentials.
func Authenticate(ctx context.Context, repo UserRepo, username, password string) (*User, error) {
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Blocked || !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

var ErrInvalidCredentials = errors.ErrInvalidCredentials
