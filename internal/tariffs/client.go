// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package tariffs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/metrics"
	"github.com/tomtom215/tariffsync/internal/models"
	"github.com/tomtom215/tariffsync/internal/retry"
)

const opFetch = "tariffs.fetch"

// maxErrorBodySize bounds how much of a failed response is read for diagnostics.
const maxErrorBodySize = 64 * 1024

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Fetcher is the read side used by the reconciler.
type Fetcher interface {
	FetchTariffs(ctx context.Context, date string) (*models.NormalizedTariffBatch, error)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	Burst             int
	RequestsPerWindow int
	Window            time.Duration

	Retry retry.Policy

	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
}

// OptionsFromConfig maps the tariff_api config section.
func OptionsFromConfig(cfg config.TariffAPIConfig) Options {
	return Options{
		BaseURL:           cfg.BaseURL,
		Token:             cfg.Token,
		Timeout:           cfg.Timeout,
		Burst:             cfg.Burst,
		RequestsPerWindow: cfg.RequestsPerWindow,
		Window:            cfg.Window,
		Retry: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}
}

// Client fetches tariffs under a token-bucket budget, bounded concurrency,
// bounded retries and a circuit breaker.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	slots   chan struct{}
	retry   retry.Policy
	breaker *breaker
}

// New builds a Client, filling unset options with the documented defaults.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.RequestsPerWindow <= 0 {
		opts.RequestsPerWindow = 60
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	if opts.Retry.MaxAttempts == 0 {
		defaults := retry.Default()
		defaults.Sleep = opts.Retry.Sleep
		opts.Retry = defaults
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	policy := opts.Retry
	policy.Retryable = fault.IsTransient
	policy.OnRetry = func(_ int, err error, _ time.Duration) {
		metrics.TariffAPIRetries.WithLabelValues(fault.KindOf(err).String()).Inc()
	}

	every := rate.Limit(float64(opts.RequestsPerWindow) / opts.Window.Seconds())
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(every, opts.Burst),
		slots:   make(chan struct{}, opts.Burst),
		retry:   policy,
		breaker: newBreaker("tariff-api", opts.BreakerFailures, opts.BreakerTimeout),
	}
}

// ValidateDate checks the YYYY-MM-DD shape and that the day exists.
func ValidateDate(date string) error {
	if !datePattern.MatchString(date) {
		return fault.Validation(opFetch, fmt.Sprintf("date %q must be YYYY-MM-DD", date), nil)
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fault.Validation(opFetch, fmt.Sprintf("date %q is not a calendar date", date), err)
	}
	return nil
}

// FetchTariffs returns the normalized tariffs for date (YYYY-MM-DD).
// Invalid dates fail before any network activity or limiter use.
func (c *Client) FetchTariffs(ctx context.Context, date string) (*models.NormalizedTariffBatch, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	start := time.Now()
	batch, err := c.breaker.execute(func() (*models.NormalizedTariffBatch, error) {
		var out *models.NormalizedTariffBatch
		err := c.retry.Do(ctx, opFetch, func(ctx context.Context) error {
			b, err := c.attempt(ctx, date)
			if err != nil {
				return err
			}
			out = b
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("date", date).
		Int("warehouses", len(batch.Entries)).
		Dur("duration", time.Since(start)).
		Msg("Fetched tariffs")
	return batch, nil
}

// attempt performs exactly one HTTP request, consuming one limiter token.
func (c *Client) attempt(ctx context.Context, date string) (*models.NormalizedTariffBatch, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	reqURL := c.baseURL + "?" + url.Values{"date": {date}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fault.Permanent(opFetch, 0, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ferr := fault.Transient(opFetch, 0, "request failed", err)
		metrics.RecordTariffAPIAttempt(ferr.Kind.String(), time.Since(start))
		return nil, ferr
	}
	defer resp.Body.Close()

	batch, ferr := c.handleResponse(resp, date)
	result := "success"
	if ferr != nil {
		result = fault.KindOf(ferr).String()
	}
	metrics.RecordTariffAPIAttempt(result, time.Since(start))
	return batch, ferr
}

func (c *Client) acquire(ctx context.Context) error {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Wait fails early when the deadline is shorter than the token wait.
		return fault.Transient(opFetch, 0, "rate limit wait exceeds deadline", err)
	}
	metrics.TariffAPIRateLimitWait.Observe(time.Since(waitStart).Seconds())

	select {
	case c.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() { <-c.slots }

func (c *Client) handleResponse(resp *http.Response, date string) (*models.NormalizedTariffBatch, error) {
	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		ferr := fault.FromStatus(opFetch, resp.StatusCode, upstreamMessage(body))
		if resp.StatusCode == http.StatusTooManyRequests {
			ferr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return nil, ferr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Transient(opFetch, resp.StatusCode, "failed to read response body", err)
	}
	return decodeBatch(body, date)
}

// upstreamMessage extracts errorText from an error envelope, falling back to the raw body.
func upstreamMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.ErrorText != "" {
		return env.ErrorText
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return msg
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// parseRetryAfter understands the delta-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// IsBreakerOpen reports whether err came from an open circuit.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, errBreakerOpen)
}
