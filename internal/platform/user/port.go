package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for user accounts.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Exists reports whether a user with the given email is registered.
	Exists(ctx context.Context, email string) (bool, error)
}
