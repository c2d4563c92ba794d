package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProjectID = "blog-test-project"

type idTokenClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, c idTokenClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(key)
	require.NoError(t, err)
	return signed
}

func validIDClaims() idTokenClaims {
	now := time.Now()
	return idTokenClaims{
		Email:   "grace@example.com",
		Name:    "Grace Hopper",
		Picture: "https://lh3.googleusercontent.com/a/photo=s96-c",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    firebaseIssuerPrefix + testProjectID,
			Audience:  jwt.ClaimStrings{testProjectID},
			Subject:   "firebase-uid-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestFirebaseVerifier(t *testing.T) {
	key := newRSAKey(t)
	otherKey := newRSAKey(t)
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := NewFirebaseVerifier(testProjectID, keys)

	t.Run("valid token", func(t *testing.T) {
		c, err := v.Verify(context.Background(), signIDToken(t, key, validIDClaims()))
		require.NoError(t, err)
		assert.Equal(t, "grace@example.com", c.Email)
		assert.Equal(t, "Grace Hopper", c.Name)
		assert.Equal(t, "https://lh3.googleusercontent.com/a/photo=s96-c", c.Picture)
	})

	failures := map[string]func(*idTokenClaims){
		"wrong project audience": func(c *idTokenClaims) { c.Audience = jwt.ClaimStrings{"other-project"} },
		"wrong issuer":           func(c *idTokenClaims) { c.Issuer = "https://accounts.example.com" },
		"expired": func(c *idTokenClaims) {
			c.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		},
		"missing email": func(c *idTokenClaims) { c.Email = "" },
	}
	for name, mutate := range failures {
		t.Run(name, func(t *testing.T) {
			c := validIDClaims()
			mutate(&c)
			_, err := v.Verify(context.Background(), signIDToken(t, key, c))
			assert.Error(t, err)
		})
	}

	t.Run("signed by unknown key", func(t *testing.T) {
		_, err := v.Verify(context.Background(), signIDToken(t, otherKey, validIDClaims()))
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "not-a-token")
		assert.Error(t, err)
	})
}

func TestDisabledVerifier(t *testing.T) {
	_, err := DisabledVerifier().Verify(context.Background(), "anything")
	assert.Error(t, err)
}

func TestProjectIDFromServiceAccount(t *testing.T) {
	key := newRSAKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	account, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     testProjectID,
		"private_key_id": "abc123",
		"private_key":    string(keyPEM),
		"client_email":   "firebase-adminsdk@" + testProjectID + ".iam.gserviceaccount.com",
		"client_id":      "1234567890",
		"token_uri":      "https://oauth2.googleapis.com/token",
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "service-account.json")
	require.NoError(t, os.WriteFile(path, account, 0o600))

	got, err := ProjectIDFromServiceAccount(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, testProjectID, got)

	_, err = ProjectIDFromServiceAccount(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
