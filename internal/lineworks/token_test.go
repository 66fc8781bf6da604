package lineworks

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/config"
)

// writeTestKey generates an RSA key pair and writes the private key PEM
// to a temp file, returning the path and the public key for verifying
// the assertion.
func writeTestKey(t *testing.T) (string, *rsa.PublicKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	path := filepath.Join(t.TempDir(), "private.key")
	require.NoError(t, os.WriteFile(path, pemData, 0o600))
	return path, &key.PublicKey
}

func TestToken(t *testing.T) {
	keyPath, pubKey := writeTestKey(t)

	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type":    r.PostFormValue("grant_type"),
			"client_id":     r.PostFormValue("client_id"),
			"client_secret": r.PostFormValue("client_secret"),
			"scope":         r.PostFormValue("scope"),
			"assertion":     r.PostFormValue("assertion"),
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "access-123", "expires_in": "3600"}`))
	}))
	t.Cleanup(srv.Close)

	src := NewTokenSource(config.LineWorksConfig{
		AuthURL:        srv.URL,
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		ServiceAccount: "svc@example",
		PrivateKeyPath: keyPath,
	})

	token, err := src.Token(context.Background(), "calendar")
	require.NoError(t, err)
	assert.Equal(t, "access-123", token)

	assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", gotForm["grant_type"])
	assert.Equal(t, "client-id", gotForm["client_id"])
	assert.Equal(t, "client-secret", gotForm["client_secret"])
	assert.Equal(t, "calendar", gotForm["scope"])

	// The assertion is a valid RS256 JWT with the expected claims.
	parsed, err := jwt.Parse(gotForm["assertion"], func(tok *jwt.Token) (any, error) {
		require.Equal(t, "RS256", tok.Method.Alg())
		return pubKey, nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "client-id", claims["iss"])
	assert.Equal(t, "svc@example", claims["sub"])
	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	assert.Equal(t, int64(3600), exp-iat)
}

func TestTokenExchangeFailure(t *testing.T) {
	keyPath, _ := writeTestKey(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	src := NewTokenSource(config.LineWorksConfig{
		AuthURL:        srv.URL,
		PrivateKeyPath: keyPath,
	})

	_, err := src.Token(context.Background(), "calendar")
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "invalid_client")
}

func TestTokenMissingKeyFile(t *testing.T) {
	src := NewTokenSource(config.LineWorksConfig{
		AuthURL:        "http://127.0.0.1:0",
		PrivateKeyPath: filepath.Join(t.TempDir(), "no-such.key"),
	})

	_, err := src.Token(context.Background(), "calendar")
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestTokenMissingAccessTokenInResponse(t *testing.T) {
	keyPath, _ := writeTestKey(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type": "Bearer"}`))
	}))
	t.Cleanup(srv.Close)

	src := NewTokenSource(config.LineWorksConfig{
		AuthURL:        srv.URL,
		PrivateKeyPath: keyPath,
	})

	_, err := src.Token(context.Background(), "calendar")
	require.Error(t, err)
}
