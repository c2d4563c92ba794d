package service

import (
	"context"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sakif/auth-backend/internal/repository"
)

// usernameSuffixLength is the length of the random tail appended when the
// email's local part is already taken.
const usernameSuffixLength = 5

// UsernameAllocator derives a handle from an email address.
//
// The check is not atomic with the later insert: two signups may both see a
// name as free. The users table's unique index on username catches that race
// and the loser gets a conflict.
type UsernameAllocator struct {
	users  repository.UserRepository
	suffix func() (string, error)
}

func NewUsernameAllocator(users repository.UserRepository) *UsernameAllocator {
	return &UsernameAllocator{
		users: users,
		suffix: func() (string, error) {
			// Default nanoid alphabet: A-Za-z0-9_-
			return gonanoid.New(usernameSuffixLength)
		},
	}
}

// Allocate returns the part of email before the first "@", plus a random
// 5-character suffix if a user already has that exact username.
func (a *UsernameAllocator) Allocate(ctx context.Context, email string) (string, error) {
	candidate, _, _ := strings.Cut(email, "@")

	taken, err := a.users.UsernameExists(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("checking username %q: %w", candidate, err)
	}
	if !taken {
		return candidate, nil
	}

	suffix, err := a.suffix()
	if err != nil {
		return "", fmt.Errorf("generating username suffix: %w", err)
	}
	return candidate + suffix, nil
}
