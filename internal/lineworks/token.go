package lineworks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shiftcal/internal/config"
	appLog "shiftcal/internal/log"
)

// AuthError reports a failed token exchange with the identity provider.
// Any AuthError aborts the reconciliation run.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lineworks auth: %v", e.Err)
	}
	return fmt.Sprintf("lineworks auth: status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TokenSource exchanges a service-account JWT assertion for a bearer
// access token at the LINE WORKS auth endpoint.
type TokenSource struct {
	cfg    config.LineWorksConfig
	client *http.Client

	// now is swappable for tests.
	now func() time.Time
}

// NewTokenSource builds a TokenSource from the service-account config.
func NewTokenSource(cfg config.LineWorksConfig) *TokenSource {
	return &TokenSource{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// Token acquires an access token for the given scope (e.g. "calendar").
func (s *TokenSource) Token(ctx context.Context, scope string) (string, error) {
	assertion, err := s.assertion()
	if err != nil {
		return "", &AuthError{Err: err}
	}

	form := url.Values{
		"assertion":     {assertion},
		"grant_type":    {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"scope":         {scope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	appLog.Debug("token exchange start", "scope", scope)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   any    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &AuthError{Err: err}
	}
	if payload.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: "token response missing access_token"}
	}

	appLog.Info("token exchange success", "scope", scope)
	return payload.AccessToken, nil
}

// assertion builds the RS256-signed JWT the auth endpoint accepts:
// iss = client ID, sub = service account, valid for one hour.
func (s *TokenSource) assertion() (string, error) {
	keyPEM, err := os.ReadFile(s.cfg.PrivateKeyPath)
	if err != nil {
		return "", fmt.Errorf("private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyPEM)
	if err != nil {
		return "", fmt.Errorf("private key: %w", err)
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss": s.cfg.ClientID,
		"sub": s.cfg.ServiceAccount,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}
