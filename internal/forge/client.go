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

// Package forge implements the ETag/Last-Modified-aware, concurrency- and
// rate-limited GitHub forge client (§4.2): a single process-wide client
// pool sharing a token bucket, installation-token auth, and a Redis-backed
// response cache.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// Limits configures the token bucket (§4.2): at most Cmax concurrent
// outstanding requests, at most Rmax per Twindow.
type Limits struct {
	Cmax    int
	Rmax    int
	Twindow time.Duration
}

// DefaultLimits mirrors the spec's stated defaults: 100 concurrent, 40 per
// 10s window... actually per §4.2 the defaults are "100/40/10s" read as
// Cmax=100, Rmax=40, Twindow=10s.
var DefaultLimits = Limits{Cmax: 100, Rmax: 40, Twindow: 10 * time.Second}

// Client is the process-wide forge API client. One Client is shared by
// every queue worker in a process.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *installationTokenSource
	cache      *Cache
	limiter    *rate.Limiter
	sem        chan struct{}
	log        *logrus.Entry
}

// New builds a Client against baseURL (e.g. "https://api.github.com"),
// authenticating via tokens and caching responses in cache.
func New(baseURL string, tokens *installationTokenSource, cache *Cache, limits Limits, log *logrus.Entry) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Every(limits.Twindow/time.Duration(limits.Rmax)), limits.Rmax),
		sem:        make(chan struct{}, limits.Cmax),
		log:        log,
	}
}

// Response is the result of a successful request (§4.2 contract).
type Response struct {
	Data       []byte
	Headers    http.Header
	StatusCode int
}

// Request performs method against path (relative to baseURL), with an
// optional JSON body and extra headers, honoring the ETag cache and the
// token bucket. A 304 returns the cached body; a 200 refreshes the cache;
// a 404 surfaces as lifecycleerrors.NotFoundError; any transport failure
// or 5xx surfaces as lifecycleerrors.Transient.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, headers map[string]string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, lifecycleerrors.NewTransient(ctx.Err())
	}

	cacheKey := "req_cache:" + path
	var cached *cacheEntry
	if c.cache != nil && method == http.MethodGet {
		cached, _ = c.cache.Get(ctx, cacheKey)
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, lifecycleerrors.NewTransient(err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	if cached != nil {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && cached != nil:
		if c.cache != nil {
			_ = c.cache.Refresh(ctx, cacheKey)
		}
		return &Response{Data: cached.Body, Headers: resp.Header, StatusCode: resp.StatusCode}, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, lifecycleerrors.NewNotFound("forge resource", path)
	case resp.StatusCode >= 500:
		return nil, lifecycleerrors.NewTransient(fmt.Errorf("forge returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, lifecycleerrors.NewPermanent(fmt.Errorf("forge returned %d: %s", resp.StatusCode, data))
	}

	if c.cache != nil && method == http.MethodGet && resp.StatusCode == http.StatusOK {
		entry := &cacheEntry{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         data,
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.log.WithError(err).Warn("forge cache write failed")
		}
	}

	return &Response{Data: data, Headers: resp.Header, StatusCode: resp.StatusCode}, nil
}
