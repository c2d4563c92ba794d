package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/service"
)

// AuthService is the part of *service.AuthService the HTTP layer needs.
// Handlers depend on this interface so tests can substitute a fake.
type AuthService interface {
	Signup(ctx context.Context, fullname, email, password string) (*service.AuthResponse, error)
	Signin(ctx context.Context, email, password string) (*service.AuthResponse, error)
	GoogleAuth(ctx context.Context, idToken string) (*service.AuthResponse, error)
	Profile(ctx context.Context, userID string) (*model.Profile, error)
}

// AuthHandler exposes the signup, signin and federated sign-in flows.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup     → create a credential account and sign it in
//   - HandleSignin     → check email/password and issue a token
//   - HandleGoogleAuth → exchange a Firebase ID token for our token
//   - HandleMe         → return the profile behind a bearer token
//
// The handler only decodes requests and encodes responses. Every decision
// about identities is made by the service.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger}
}

// maxBodyBytes caps auth request bodies. Firebase ID tokens are the largest
// field at a little over 1 KB.
const maxBodyBytes = 8 << 10

type signupRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleAuthRequest struct {
	AccessToken string `json:"access_token"`
}

// HandleSignup registers a new user.
//
// HTTP: POST /signup
// REQUEST BODY: {"fullname": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.auth.Signup(r.Context(), req.Fullname, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSignin authenticates an existing credential account.
//
// HTTP: POST /signin
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.auth.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGoogleAuth signs in with a Firebase-issued Google ID token.
//
// HTTP: POST /google-auth
// REQUEST BODY: {"access_token": "<firebase id token>"}
//
// The field is named access_token for client compatibility, but it carries
// an ID token.
func (h *AuthHandler) HandleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req googleAuthRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.auth.GoogleAuth(r.Context(), req.AccessToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMe returns the public profile of the authenticated user.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets userID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "No access token"})
		return
	}

	profile, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		h.logger.Warn("profile lookup failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// decode reads a JSON body of at most maxBodyBytes into dst. On failure it
// answers 400 and returns false.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("invalid request JSON",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON body"})
		return false
	}
	return true
}
