// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package retry runs an operation with bounded exponential backoff.
//
// Both external clients (the tariff API and the spreadsheet writer) share one
// Policy shape: a fixed attempt budget, a doubling delay with a cap, and a
// predicate deciding which failures are worth another attempt.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/logging"
)

// Policy configures Do.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first. Minimum 1.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps every wait, including server-requested ones.
	MaxDelay time.Duration

	// Retryable decides whether err warrants another attempt.
	// Defaults to fault.IsTransient.
	Retryable func(error) bool

	// Sleep waits for d or until ctx is done. Tests replace it to observe delays.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each wait, for metrics.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Default returns the policy used by both external clients:
// 3 attempts, waits of 1s then 2s, capped at 4s.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
}

// SleepContext waits for d, returning ctx.Err() if ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx is done. The returned error keeps fn's error in its
// chain so fault.KindOf still classifies it.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = fault.IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		if hint := fault.RetryAfterOf(err); hint > delay {
			delay = hint
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		logging.Ctx(ctx).Warn().Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("delay", delay).
			Msg("Retrying after transient failure")
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}

	if retryable(err) {
		return fmt.Errorf("%s: max retry attempts reached: %w", op, err)
	}
	return err
}
