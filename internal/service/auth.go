// Package service — identity resolution and credential issuance.
//
// AuthService turns a request (raw credentials or a federated ID token) into a
// durable user identity and then into a bearer token plus public profile:
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ PasswordService (bcrypt)
//	                               ↘ TokenService (JWT)
//	                               ↘ IdentityVerifier (Firebase)
//
// Every error it returns is an *apperror.AppError from a closed set, so the
// HTTP layer can map it to a status without knowing how the flow failed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/repository"
)

// Google serves profile photos at a size encoded in the URL; swap the
// 96px crop for a 384px one.
const (
	lowResPictureMarker  = "s96-c"
	highResPictureMarker = "s384-c"
)

var (
	ErrEmailExists       = apperror.Conflict("email", "").WithMessage("Email already exists")
	ErrUsernameExists    = apperror.Conflict("username", "").WithMessage("Username already exists")
	ErrEmailNotFound     = apperror.NotFound("email", "Email not found")
	ErrIncorrectPassword = apperror.CredentialMismatch("Incorrect password")
	ErrFederatedAccount  = apperror.CredentialMismatch("Account was created using google. Try logging in with google.")
	ErrTokenInvalid      = apperror.FederatedVerification(
		"Failed to authenticate you with Google. Try with another Google account.", nil)
)

// AuthService orchestrates signup, signin and federated sign-in.
// It holds no mutable state; all fields are read-only after construction.
type AuthService struct {
	users     repository.UserRepository
	usernames *UsernameAllocator
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	verifier  auth.IdentityVerifier
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	verifier auth.IdentityVerifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		usernames: NewUsernameAllocator(users),
		passwords: passwords,
		tokens:    tokens,
		verifier:  verifier,
		logger:    logger,
	}
}

// Signup validates input, stores a new credential account and signs it in.
// Nothing is written unless validation and hashing both succeed.
func (s *AuthService) Signup(ctx context.Context, fullname, email, password string) (*AuthResponse, error) {
	if err := ValidateSignup(fullname, email, password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, s.internal("hashing password", err)
	}

	username, err := s.usernames.Allocate(ctx, email)
	if err != nil {
		return nil, s.internal("allocating username", err)
	}

	user := &model.User{
		PersonalInfo: model.PersonalInfo{
			Fullname: fullname,
			Email:    email,
			Password: hash,
			Username: username,
		},
		GoogleAuth: false,
	}

	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, conflictError(err)
		}
		return nil, s.internal("saving new user", err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.PersonalInfo.Username),
	)

	return s.respond(user)
}

// Signin checks an email/password pair against the stored hash.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, s.internal("looking up user", err)
	}

	if !user.HasPassword() {
		return nil, ErrFederatedAccount
	}

	if err := s.passwords.Verify(user.PersonalInfo.Password, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrIncorrectPassword
		}
		return nil, s.internal("verifying password", err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))

	return s.respond(user)
}

// GoogleAuth verifies a federated ID token and signs in the matching user,
// creating a federated-only account on first sight of the email.
//
// The record is saved on every call: a new user is inserted, an existing one
// is rewritten with its own public fields, which leaves it unchanged.
func (s *AuthService) GoogleAuth(ctx context.Context, idToken string) (*AuthResponse, error) {
	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.logger.Warn("federated token rejected", slog.String("error", err.Error()))
		return nil, apperror.FederatedVerification(ErrTokenInvalid.Message, err)
	}

	picture := NormalizePictureURL(claims.Picture)

	username, err := s.usernames.Allocate(ctx, claims.Email)
	if err != nil {
		return nil, s.internal("allocating username", err)
	}

	var user *model.User
	found, err := s.users.FindByEmail(ctx, claims.Email)
	switch {
	case err == nil:
		// Only public fields travel further.
		user = found.Public()
	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{
			PersonalInfo: model.PersonalInfo{
				Fullname:   claims.Name,
				Email:      claims.Email,
				Username:   username,
				ProfileImg: picture,
			},
			GoogleAuth: true,
		}
	default:
		return nil, s.internal("looking up federated user", err)
	}

	isNew := user.ID == ""
	if err := s.users.Save(ctx, user); err != nil {
		return nil, s.internal("saving federated user", err)
	}

	if isNew {
		s.logger.Info("federated user created",
			slog.String("userID", user.ID),
			slog.String("username", user.PersonalInfo.Username),
		)
	} else {
		s.logger.Info("federated user signed in", slog.String("userID", user.ID))
	}

	return s.respond(user)
}

// Profile returns the public profile of the user a bearer token names.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, s.internal("loading profile", err)
	}

	return &model.Profile{
		Fullname:   user.PersonalInfo.Fullname,
		Username:   user.PersonalInfo.Username,
		ProfileImg: user.PersonalInfo.ProfileImg,
		GoogleAuth: user.GoogleAuth,
	}, nil
}

// NormalizePictureURL swaps Google's low-resolution size marker for a
// high-resolution one. URLs without the marker are returned unchanged.
func NormalizePictureURL(picture string) string {
	return strings.Replace(picture, lowResPictureMarker, highResPictureMarker, 1)
}

func (s *AuthService) respond(user *model.User) (*AuthResponse, error) {
	resp, err := s.format(user)
	if err != nil {
		return nil, s.internal("formatting response", err)
	}
	return resp, nil
}

func (s *AuthService) internal(op string, err error) *apperror.AppError {
	s.logger.Error("auth flow failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.Internal(err)
}

func conflictError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field == "username" {
		return ErrUsernameExists
	}
	return ErrEmailExists
}
