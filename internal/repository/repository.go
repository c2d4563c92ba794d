// Package repository declares the storage contract the auth service depends on.
// Implementations live in the sqlite and mongo sub-packages.
package repository

import (
	"context"

	"github.com/sakif/auth-backend/internal/model"
)

// UserRepository persists users behind unique indexes on email and username.
//
// Uniqueness is the store's job: concurrent writers racing on the same email
// or username must see exactly one success, and every loser gets an
// apperror.ErrConflict whose Field is "email" or "username".
type UserRepository interface {
	// FindByEmail returns apperror.ErrNotFound when no user has that email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// Save inserts user when user.ID is empty and fills in ID and timestamps.
	// Otherwise it rewrites the public fields of the existing record and
	// leaves the stored password untouched.
	Save(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
}
