package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/config"
)

type stubVerifier map[string]auth.FederatedClaims

func (v stubVerifier) Verify(_ context.Context, idToken string) (*auth.FederatedClaims, error) {
	c, ok := v[idToken]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &c, nil
}

func testConfig(dbLocation string) config.Config {
	return config.Config{
		Port:               3000,
		DBLocation:         dbLocation,
		SecretAccessKey:    "server-test-secret-0123456789",
		BcryptCost:         bcrypt.MinCost,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		LogLevel:           "error",
		LogFormat:          "text",
	}
}

func newTestServer(t *testing.T, verifier auth.IdentityVerifier) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))

	s, err := New(testConfig(":memory:"), logger, verifier)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path, body string) (int, map[string]string) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServer_CredentialFlow(t *testing.T) {
	ts := newTestServer(t, auth.DisabledVerifier())

	status, body := postJSON(t, ts, "/signup",
		`{"fullname":"Alice Liddell","email":"alice@example.com","password":"Strong1x"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "alice", body["username"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotContains(t, body, "password")

	status, body = postJSON(t, ts, "/signup",
		`{"fullname":"Alice Liddell","email":"alice@example.com","password":"Strong1x"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Email already exists", body["error"])

	status, body = postJSON(t, ts, "/signup", `{"fullname":"Al","email":"al@example.com","password":"Strong1x"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Fullname must be at least 3 letters long", body["error"])

	status, body = postJSON(t, ts, "/signin", `{"email":"alice@example.com","password":"Wrong1xx"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Incorrect password", body["error"])

	status, body = postJSON(t, ts, "/signin", `{"email":"alice@example.com","password":"Strong1x"}`)
	require.Equal(t, http.StatusOK, status)
	token := body["access_token"]

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var profile map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "Alice Liddell", profile["fullname"])
	assert.Equal(t, false, profile["google_auth"])
}

func TestServer_GoogleAuth(t *testing.T) {
	ts := newTestServer(t, stubVerifier{
		"good": {Email: "grace@example.com", Name: "Grace Hopper", Picture: "https://x/a=s96-c"},
	})

	status, body := postJSON(t, ts, "/google-auth", `{"access_token":"good"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "https://x/a=s384-c", body["profile_img"])

	status, body = postJSON(t, ts, "/google-auth", `{"access_token":"bad"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to authenticate you with Google. Try with another Google account.", body["error"])

	status, body = postJSON(t, ts, "/signin", `{"email":"grace@example.com","password":"Strong1x"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Account was created using google. Try logging in with google.", body["error"])
}

func TestServer_DisabledVerifier(t *testing.T) {
	ts := newTestServer(t, auth.DisabledVerifier())

	status, _ := postJSON(t, ts, "/google-auth", `{"access_token":"anything"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestServer_MalformedBody(t *testing.T) {
	ts := newTestServer(t, auth.DisabledVerifier())

	status, _ := postJSON(t, ts, "/signin", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_MeRequiresToken(t *testing.T) {
	ts := newTestServer(t, auth.DisabledVerifier())

	for _, header := range []string{"", "Bearer", "Bearer not-a-jwt", "Basic abc"} {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestServer_HealthAndCORS(t *testing.T) {
	ts := newTestServer(t, auth.DisabledVerifier())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/signin", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// Browsers send preflight header names lowercased.
	req.Header.Set("Access-Control-Request-Headers", "content-type,authorization")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	allowed := strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Contains(t, allowed, "content-type")
	assert.Contains(t, allowed, "authorization")

	req, _ = http.NewRequest(http.MethodOptions, ts.URL+"/signin", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOpenStore_CreatesSqliteDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.db")

	store, err := openStore(context.Background(), testConfig(path))
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
