package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/model"
)

// =========================================================================
// FAKE REPOSITORY
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository that enforces the
// same unique indexes as the real stores.
type fakeUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.User
	nextID int

	saves int

	// set to a non-nil error to simulate a storage failure
	findErr   error
	existsErr error
	saveErr   error

	// hideUsernames makes UsernameExists always answer false, simulating a
	// concurrent signup that claimed the name after the check.
	hideUsernames bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*model.User)}
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.byID {
		if u.PersonalInfo.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("email", "Email not found")
}

func (f *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.hideUsernames {
		return false, nil
	}
	for _, u := range f.byID {
		if u.PersonalInfo.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) Save(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++

	for id, u := range f.byID {
		if id == user.ID {
			continue
		}
		if u.PersonalInfo.Email == user.PersonalInfo.Email {
			return apperror.Conflict("email", user.PersonalInfo.Email)
		}
		if u.PersonalInfo.Username == user.PersonalInfo.Username {
			return apperror.Conflict("username", user.PersonalInfo.Username)
		}
	}

	if user.ID == "" {
		f.nextID++
		user.ID = fmt.Sprintf("user-%d", f.nextID)
		stored := *user
		f.byID[user.ID] = &stored
		return nil
	}

	existing, ok := f.byID[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	password := existing.PersonalInfo.Password
	*existing = *user
	existing.PersonalInfo.Password = password
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// =========================================================================
// FAKE VERIFIER
// =========================================================================

// fakeVerifier maps raw tokens to claims; unknown tokens fail verification.
type fakeVerifier struct {
	tokens map[string]auth.FederatedClaims
}

func (v *fakeVerifier) Verify(_ context.Context, idToken string) (*auth.FederatedClaims, error) {
	c, ok := v.tokens[idToken]
	if !ok {
		return nil, fmt.Errorf("auth: verifying ID token: unknown token %q", idToken)
	}
	return &c, nil
}

// =========================================================================
// SERVICE HELPER
// =========================================================================

const testSecret = "test-secret-at-least-16-chars!!"

func newTestAuthService(t *testing.T, repo *fakeUserRepo, verifier auth.IdentityVerifier) (*AuthService, *auth.TokenService) {
	t.Helper()

	tokens, err := auth.NewTokenService(testSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	if verifier == nil {
		verifier = &fakeVerifier{}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	svc := NewAuthService(repo, auth.NewPasswordService(bcrypt.MinCost), tokens, verifier, logger)
	return svc, tokens
}
