/*
Copyright 2026 The Lifecycle Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package forge

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// jwtExpiry is the GitHub App JWT lifetime; GitHub caps it at 10 minutes,
// this module uses 9 to leave clock-skew margin.
const jwtExpiry = 9 * time.Minute

// tokenSafetyMargin is subtracted from the forge-provided expiry so a
// token is never used right up against its hard cutoff.
const tokenSafetyMargin = 60 * time.Second

// installationTokenSource mints and caches per-installation access tokens
// via the GitHub App auth flow (§4.2).
type installationTokenSource struct {
	appID          string
	installationID string
	privateKey     *rsa.PrivateKey
	baseURL        string
	httpClient     *http.Client

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

// NewInstallationTokenSource builds a token source for the given GitHub
// App id, installation id and PEM-encoded private key.
func NewInstallationTokenSource(appID, installationID string, privateKeyPEM []byte, baseURL string) (*installationTokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing GitHub App private key: %w", err)
	}
	return &installationTokenSource{
		appID:          appID,
		installationID: installationID,
		privateKey:     key,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Token returns a cached installation token, refreshing it if absent or
// within tokenSafetyMargin of expiry.
func (s *installationTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" && time.Now().Before(s.expiresAt.Add(-tokenSafetyMargin)) {
		return s.cached, nil
	}

	appJWT, err := s.mintAppJWT()
	if err != nil {
		return "", lifecycleerrors.NewPermanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/app/installations/%s/access_tokens", s.baseURL, s.installationID), nil)
	if err != nil {
		return "", lifecycleerrors.NewTransient(err)
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", lifecycleerrors.NewTransient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", lifecycleerrors.NewTransient(fmt.Errorf("installation token exchange returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", lifecycleerrors.NewPermanent(fmt.Errorf("installation token exchange returned %d: %s", resp.StatusCode, body))
	}

	var payload struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", lifecycleerrors.NewTransient(err)
	}

	s.cached = payload.Token
	s.expiresAt = payload.ExpiresAt
	return s.cached, nil
}

func (s *installationTokenSource) mintAppJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpiry)),
		Issuer:    s.appID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}
