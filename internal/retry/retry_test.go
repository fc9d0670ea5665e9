// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/tariffsync/internal/fault"
)

// recordingSleep captures requested waits without blocking.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestDo_BoundedAttemptsAndDelays(t *testing.T) {
	t.Parallel()

	rec := &recordingSleep{}
	p := Default()
	p.Sleep = rec.sleep

	calls := 0
	err := p.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return fault.Transient("test", 503, "unavailable", nil)
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
	}
	if !fault.IsTransient(err) {
		t.Errorf("exhausted error should stay transient, got %v", err)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	rec := &recordingSleep{}
	p := Default()
	p.Sleep = rec.sleep

	calls := 0
	authErr := fault.Auth("test", 401, "unauthorized", nil)
	err := p.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return authErr
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(rec.delays) != 0 {
		t.Errorf("unexpected waits %v", rec.delays)
	}
	if !errors.Is(err, authErr) {
		t.Errorf("err = %v, want the auth error", err)
	}
}

func TestDo_SucceedsAfterTransient(t *testing.T) {
	t.Parallel()

	rec := &recordingSleep{}
	p := Default()
	p.Sleep = rec.sleep

	var retried []int
	p.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	calls := 0
	err := p.Do(context.Background(), "test", func(context.Context) error {
		calls++
		if calls == 1 {
			return fault.Transient("test", 429, "slow down", nil)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 || len(retried) != 1 || retried[0] != 1 {
		t.Errorf("calls = %d, retried = %v", calls, retried)
	}
}

func TestDo_RetryAfterHintIsCapped(t *testing.T) {
	t.Parallel()

	rec := &recordingSleep{}
	p := Default()
	p.Sleep = rec.sleep
	p.MaxAttempts = 2

	_ = p.Do(context.Background(), "test", func(context.Context) error {
		e := fault.Transient("test", 429, "slow down", nil)
		e.RetryAfter = time.Minute
		return e
	})

	if len(rec.delays) != 1 || rec.delays[0] != 4*time.Second {
		t.Errorf("delays = %v, want [4s]", rec.delays)
	}
}

func TestDo_ContextCanceledDuringWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Default()
	p.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := p.Do(ctx, "test", func(context.Context) error {
		return fault.Transient("test", 500, "boom", nil)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := Default()
	tests := map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 4: 4 * time.Second}
	for attempt, want := range tests {
		if got := p.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("SleepContext on canceled ctx = %v", err)
	}
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("SleepContext = %v", err)
	}
}
