// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/tomtom215/tariffsync/internal/fault"
)

type fakeFetcher struct {
	calls  int
	expiry time.Duration
	now    func() time.Time
	err    error
}

func (f *fakeFetcher) fetch(context.Context) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{
		AccessToken: fmt.Sprintf("token-%d", f.calls),
		Expiry:      f.now().Add(f.expiry),
	}, nil
}

func newTestCache(f *fakeFetcher, clock *time.Time) *Cache {
	f.now = func() time.Time { return *clock }
	c := NewCache(context.Background(), f.fetch, 5*time.Minute)
	c.now = func() time.Time { return *clock }
	return c
}

func TestCache_ReusesUntilThreshold(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	f := &fakeFetcher{expiry: time.Hour}
	c := newTestCache(f, &clock)

	first, err := c.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	clock = clock.Add(54 * time.Minute) // 6m left
	again, _ := c.Token()
	if again.AccessToken != first.AccessToken || f.calls != 1 {
		t.Errorf("expected cached token, calls = %d", f.calls)
	}

	clock = clock.Add(2 * time.Minute) // 4m left, inside threshold
	refreshed, _ := c.Token()
	if refreshed.AccessToken == first.AccessToken || f.calls != 2 {
		t.Errorf("expected refresh inside threshold, calls = %d", f.calls)
	}
}

func TestCache_RefreshFailureClearsCache(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	f := &fakeFetcher{expiry: 10 * time.Minute}
	c := newTestCache(f, &clock)

	if _, err := c.Token(); err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(6 * time.Minute)
	f.err = errors.New("invalid_grant")
	_, err := c.Token()
	if !fault.IsAuth(err) {
		t.Fatalf("refresh failure should be an auth fault, got %v", err)
	}
	if c.token != nil {
		t.Error("cache must be cleared after a failed refresh")
	}

	f.err = nil
	tok, err := c.Token()
	if err != nil || tok == nil {
		t.Fatalf("recovery Token() = %v, %v", tok, err)
	}
	if f.calls != 3 {
		t.Errorf("calls = %d, want 3", f.calls)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func retrieveError(status int, code string) *oauth2.RetrieveError {
	return &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Body:      []byte(`{"error":"` + code + `"}`),
		ErrorCode: code,
	}
}

func TestRefreshFault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want fault.Kind
	}{
		{"network timeout", timeoutError{}, fault.KindTransient},
		{"wrapped network timeout", fmt.Errorf("token endpoint unreachable: %w", timeoutError{}), fault.KindTransient},
		{"deadline", context.DeadlineExceeded, fault.KindTransient},
		{"endpoint 503", retrieveError(http.StatusServiceUnavailable, "backend_error"), fault.KindTransient},
		{"endpoint 429", retrieveError(http.StatusTooManyRequests, "rate_limited"), fault.KindTransient},
		{"invalid grant", retrieveError(http.StatusBadRequest, "invalid_grant"), fault.KindAuth},
		{"unauthorized client", retrieveError(http.StatusUnauthorized, "unauthorized_client"), fault.KindAuth},
		{"unclassified", errors.New("private key malformed"), fault.KindAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fe := refreshFault(tt.err)
			if fe.Kind != tt.want {
				t.Errorf("kind = %v, want %v", fe.Kind, tt.want)
			}
			if !errors.Is(fe, tt.err) {
				t.Error("classified error does not wrap the cause")
			}
		})
	}
}

func TestCache_TransientRefreshRetriesAcquisition(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	f := &fakeFetcher{expiry: time.Hour, err: timeoutError{}}
	c := newTestCache(f, &clock)

	_, err := c.Token()
	if !fault.IsTransient(err) {
		t.Fatalf("timeout during refresh: err = %v, want transient", err)
	}
	if fault.IsAuth(err) {
		t.Error("a network failure must not be reported as rejected credentials")
	}

	f.err = nil
	tok, err := c.Token()
	if err != nil || tok == nil {
		t.Fatalf("Token() after recovery = %v, %v", tok, err)
	}
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	f := &fakeFetcher{expiry: time.Hour}
	c := newTestCache(f, &clock)

	_, _ = c.Token()
	c.Invalidate()
	_, _ = c.Token()

	if f.calls != 2 {
		t.Errorf("calls = %d, want 2 after Invalidate", f.calls)
	}
}

func TestCache_EmptyTokenIsAuthFailure(t *testing.T) {
	t.Parallel()

	c := NewCache(context.Background(), func(context.Context) (*oauth2.Token, error) {
		return &oauth2.Token{}, nil
	}, 0)
	if _, err := c.Token(); !fault.IsAuth(err) {
		t.Errorf("empty token: err = %v, want auth fault", err)
	}
	if c.threshold != DefaultThreshold {
		t.Errorf("threshold = %v, want default", c.threshold)
	}
}

func TestFromServiceAccountJSON_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := FromServiceAccountJSON(context.Background(), []byte(`{"type":"nope"`), 0); err == nil {
		t.Error("expected parse error for malformed key JSON")
	}
}

func TestCache_ImplementsTokenSource(t *testing.T) {
	t.Parallel()

	var _ oauth2.TokenSource = (*Cache)(nil)
}
