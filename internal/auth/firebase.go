package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2/google"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	firebaseJWKSURL      = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	firebaseScope        = "https://www.googleapis.com/auth/firebase"
)

// FederatedClaims is what the auth service needs from a verified ID token.
type FederatedClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// IdentityVerifier checks an opaque federated ID token and returns its claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*FederatedClaims, error)
}

// FirebaseVerifier verifies Firebase Authentication ID tokens (Google sign-in).
//
// A Firebase ID token is an RS256 JWT whose issuer is
// https://securetoken.google.com/<project-id> and whose audience is the
// project ID. Signing keys are published as a JWKS document; go-oidc fetches
// and caches them, refreshing when it sees an unknown key ID.
type FirebaseVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewFirebaseVerifier builds a verifier for projectID that checks signatures
// against keys.
func NewFirebaseVerifier(projectID string, keys oidc.KeySet) *FirebaseVerifier {
	return &FirebaseVerifier{
		verifier: oidc.NewVerifier(firebaseIssuerPrefix+projectID, keys, &oidc.Config{
			ClientID: projectID,
		}),
	}
}

// NewRemoteFirebaseVerifier uses Google's published securetoken JWKS.
// ctx must outlive the verifier: go-oidc uses it for background key fetches.
func NewRemoteFirebaseVerifier(ctx context.Context, projectID string) *FirebaseVerifier {
	return NewFirebaseVerifier(projectID, oidc.NewRemoteKeySet(ctx, firebaseJWKSURL))
}

func (f *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*FederatedClaims, error) {
	tok, err := f.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("auth: verifying ID token: %w", err)
	}

	var c FederatedClaims
	if err := tok.Claims(&c); err != nil {
		return nil, fmt.Errorf("auth: decoding ID token claims: %w", err)
	}
	if c.Email == "" {
		return nil, errors.New("auth: ID token has no email claim")
	}

	return &c, nil
}

// ProjectIDFromServiceAccount reads a Google service-account key file and
// returns its project_id.
func ProjectIDFromServiceAccount(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("auth: reading service account %s: %w", path, err)
	}

	creds, err := google.CredentialsFromJSONWithParams(ctx, data, google.CredentialsParams{
		Scopes: []string{firebaseScope},
	})
	if err != nil {
		return "", fmt.Errorf("auth: parsing service account %s: %w", path, err)
	}
	if creds.ProjectID == "" {
		return "", fmt.Errorf("auth: service account %s has no project_id", path)
	}

	return creds.ProjectID, nil
}

// DisabledVerifier rejects every token. It stands in when no federated
// provider is configured.
func DisabledVerifier() IdentityVerifier {
	return disabledVerifier{}
}

type disabledVerifier struct{}

func (disabledVerifier) Verify(context.Context, string) (*FederatedClaims, error) {
	return nil, errors.New("auth: federated sign-in is not configured")
}
