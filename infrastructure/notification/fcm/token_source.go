// Package fcm delivers push notifications through the Firebase Cloud
// Messaging v1 API, authenticating with a Google service account.
package fcm

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	fcmScope      = "https://www.googleapis.com/auth/firebase.messaging"

	// refreshMargin renews the token before Google's one-hour expiry.
	refreshMargin = 5 * time.Minute
)

// tokenSource mints and caches OAuth2 access tokens by signing a
// service-account JWT and exchanging it at Google's token endpoint.
// Safe for concurrent use.
type tokenSource struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
	httpClient  *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenSource(clientEmail, privateKeyPEM string, httpClient *http.Client) (*tokenSource, error) {
	// Keys pasted through environment variables arrive with literal
	// backslash-n sequences.
	pem := strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	return &tokenSource{
		clientEmail: clientEmail,
		privateKey:  key,
		httpClient:  httpClient,
	}, nil
}

// Token returns a valid access token, reusing the cached one until it
// nears expiry.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiresAt.Add(-refreshMargin)) {
		return ts.token, nil
	}

	assertion, err := ts.signAssertion()
	if err != nil {
		return "", err
	}
	token, expiresIn, err := ts.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	ts.token = token
	ts.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return token, nil
}

func (ts *tokenSource) signAssertion() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ts.clientEmail,
		"scope": fcmScope,
		"aud":   tokenEndpoint,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign service account assertion: %w", err)
	}
	return signed, nil
}

func (ts *tokenSource) exchange(ctx context.Context, assertion string) (string, int, error) {
	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token exchange returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", 0, fmt.Errorf("token exchange returned empty token")
	}
	return body.AccessToken, body.ExpiresIn, nil
}
