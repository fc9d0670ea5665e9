// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package credentials caches the bearer token used against the spreadsheet API.
//
// The cache is the only state shared between pipeline cycles. A token is
// reused until it is within Threshold of expiry; the next caller then
// refreshes it. A failed refresh drops the cached token so the following
// attempt acquires a new one instead of reusing a stale value.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/logging"
)

// SpreadsheetsScope is the OAuth scope required for reading and writing sheets.
const SpreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// DefaultThreshold is how long before expiry a token is refreshed.
const DefaultThreshold = 5 * time.Minute

// Fetcher acquires a brand-new token.
type Fetcher func(ctx context.Context) (*oauth2.Token, error)

// Cache is an oauth2.TokenSource with an early-refresh threshold.
type Cache struct {
	fetch     Fetcher
	threshold time.Duration
	now       func() time.Time

	// ctx bounds refreshes triggered through the context-free Token method.
	ctx context.Context

	mu    sync.Mutex
	token *oauth2.Token
}

// NewCache wraps fetch. A zero threshold means DefaultThreshold.
func NewCache(ctx context.Context, fetch Fetcher, threshold time.Duration) *Cache {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Cache{fetch: fetch, threshold: threshold, now: time.Now, ctx: ctx}
}

// FromServiceAccountFile builds a Cache from a Google service-account key file.
func FromServiceAccountFile(ctx context.Context, path string, threshold time.Duration) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	return FromServiceAccountJSON(ctx, data, threshold)
}

// FromServiceAccountJSON builds a Cache from service-account key JSON.
func FromServiceAccountJSON(ctx context.Context, data []byte, threshold time.Duration) (*Cache, error) {
	jwtCfg, err := google.JWTConfigFromJSON(data, SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	fetch := func(ctx context.Context) (*oauth2.Token, error) {
		// A fresh source each time; jwt.Config.TokenSource would otherwise
		// keep handing back its own cached token.
		rt := &transportRecorder{base: http.DefaultTransport}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: rt, Timeout: tokenRequestTimeout})
		tok, err := jwtCfg.TokenSource(ctx).Token()
		if err != nil && rt.err != nil {
			// The jwt flow flattens transport errors into text; put the
			// original back in the chain so it classifies as transient.
			return nil, fmt.Errorf("token endpoint unreachable: %w", rt.err)
		}
		return tok, err
	}
	return NewCache(ctx, fetch, threshold), nil
}

const tokenRequestTimeout = 30 * time.Second

// transportRecorder remembers the last round-trip error of one token request.
type transportRecorder struct {
	base http.RoundTripper
	err  error
}

func (t *transportRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.err = err
	}
	return resp, err
}

// Token returns a token valid for at least the threshold, refreshing if needed.
func (c *Cache) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.usable(c.token) {
		return c.token, nil
	}

	tok, err := c.fetch(c.ctx)
	if err != nil {
		c.token = nil
		fe := refreshFault(err)
		logging.Warn().Err(err).Str("kind", fe.Kind.String()).Msg("Credential refresh failed, cache cleared")
		return nil, fe
	}
	if tok == nil || tok.AccessToken == "" {
		c.token = nil
		return nil, fault.Auth("credentials.refresh", 0, "token source returned an empty token", nil)
	}

	c.token = tok
	logging.Debug().Time("expiry", tok.Expiry).Msg("Credential refreshed")
	return tok, nil
}

// Invalidate drops the cached token, forcing the next Token call to refresh.
// Writers call it after the API rejects a token with 401.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// refreshFault classifies a failed token fetch. Only an answer from the
// token endpoint rejecting the credentials is an auth failure; an
// unreachable or overloaded endpoint is transient.
func refreshFault(err error) *fault.Error {
	const op = "credentials.refresh"

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		code := rerr.Response.StatusCode
		if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
			return fault.Transient(op, code, "token endpoint unavailable", err)
		}
		return fault.Auth(op, code, "credentials rejected by token endpoint", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fault.Transient(op, 0, "token endpoint unreachable", err)
	}
	return fault.Auth(op, 0, "token refresh failed", err)
}

// usable reports whether tok can still be handed out. Tokens without an
// expiry never go stale.
func (c *Cache) usable(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return tok.Expiry.Sub(c.now()) > c.threshold
}
