// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package scheduler fires pipeline cycles on a cron cadence and on demand.
//
// The scheduler is either stopped or running. While running, a timer waits
// for the next cron time, then a cycle runs in its own goroutine. Only one
// cycle runs at a time: a scheduled fire that finds a cycle in progress is
// skipped, and RunNow returns ErrBusy. A failing or panicking cycle is logged
// and recorded; it never stops the loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/metrics"
	"github.com/tomtom215/tariffsync/internal/models"
)

// ErrBusy is returned by RunNow while another cycle is in progress.
var ErrBusy = errors.New("a sync cycle is already running")

// Trigger labels.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerStartup   = "startup"
)

const authHint = "check TARIFF_API_TOKEN and the Google service-account key; rotate whichever was rejected"

// CycleRunner is implemented by pipeline.Runner.
type CycleRunner interface {
	RunCycle(ctx context.Context, date string) (*models.CycleSummary, error)
}

// RunSummary is the outcome of the most recent cycle.
type RunSummary struct {
	Trigger    string               `json:"trigger"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Success    bool                 `json:"success"`
	Error      string               `json:"error,omitempty"`
	ErrorKind  string               `json:"error_kind,omitempty"`
	Cycle      *models.CycleSummary `json:"cycle,omitempty"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running        bool        `json:"running"`
	CycleActive    bool        `json:"cycle_active"`
	CronExpression string      `json:"cron_expression"`
	Timezone       string      `json:"timezone"`
	NextRun        *time.Time  `json:"next_run,omitempty"`
	LastRun        *RunSummary `json:"last_run,omitempty"`
}

// Scheduler owns the cron loop and the single-flight guard.
type Scheduler struct {
	runner       CycleRunner
	expr         *cronexpr.Expression
	cronText     string
	tzName       string
	loc          *time.Location
	cycleTimeout time.Duration
	runOnStart   bool

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time

	busy   atomic.Bool
	cycles sync.WaitGroup

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	lastRun *RunSummary
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithAfter replaces time.After for the trigger timer.
func WithAfter(after func(d time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) { s.after = after }
}

// New parses cfg.Cron and resolves cfg.Timezone.
func New(runner CycleRunner, cfg config.ScheduleConfig, opts ...Option) (*Scheduler, error) {
	expr, err := cronexpr.Parse(cfg.Cron)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cfg.Cron, err)
	}
	timeout := cfg.CycleTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	s := &Scheduler{
		runner:       runner,
		expr:         expr,
		cronText:     cfg.Cron,
		tzName:       cfg.Timezone,
		loc:          cfg.Location(),
		cycleTimeout: timeout,
		runOnStart:   cfg.RunOnStart,
		now:          time.Now,
		after:        time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins the cron loop. Starting a running scheduler logs a warning
// and returns nil.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logging.Warn().Msg("Scheduler already running, ignoring Start")
		return nil
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx, s.stop, s.done)

	next := s.nextAfter(s.now())
	metrics.SetNextRun(next)
	logging.Info().
		Str("cron", s.cronText).
		Str("timezone", s.tzName).
		Time("next_run", next).
		Bool("run_on_start", s.runOnStart).
		Msg("Scheduler started")
	return nil
}

// Stop prevents future fires and waits for an in-flight cycle to finish.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		// The loop may have ended with its context; a cycle can still be in flight.
		s.cycles.Wait()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	s.cycles.Wait()
	logging.Info().Msg("Scheduler stopped")
}

// RunNow runs one cycle synchronously and returns its outcome. It fails with
// ErrBusy when a cycle is already in progress.
func (s *Scheduler) RunNow(ctx context.Context, date string) (*models.CycleSummary, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	s.cycles.Add(1)
	defer s.cycles.Done()
	defer s.busy.Store(false)

	return s.runGuarded(ctx, TriggerManual, date)
}

// Status reports state, schedule and the last run.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:        s.running,
		CycleActive:    s.busy.Load(),
		CronExpression: s.cronText,
		Timezone:       s.tzName,
	}
	if s.running {
		next := s.nextAfter(s.now())
		st.NextRun = &next
	}
	if s.lastRun != nil {
		last := *s.lastRun
		st.LastRun = &last
	}
	return st
}

func (s *Scheduler) nextAfter(t time.Time) time.Time {
	return s.expr.Next(t.In(s.loc))
}

func (s *Scheduler) loop(ctx context.Context, stop chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer s.loopExited(stop)

	if s.runOnStart {
		s.fire(ctx, TriggerStartup)
	}

	for {
		now := s.now()
		next := s.nextAfter(now)
		if next.IsZero() {
			logging.Error().Str("cron", s.cronText).Msg("Cron expression has no future fire time, scheduler idle")
			select {
			case <-stop:
			case <-ctx.Done():
			}
			return
		}
		metrics.SetNextRun(next)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(now)):
			s.fire(ctx, TriggerScheduled)
		}
	}
}

// loopExited marks the scheduler stopped when the loop ended because its
// context was canceled. After Stop, or once a newer Start owns the state,
// it does nothing.
func (s *Scheduler) loopExited(stop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.stop != stop {
		return
	}
	s.running = false
	metrics.SetNextRun(time.Time{})
	logging.Info().Msg("Scheduler context canceled, scheduler stopped")
}

// fire starts a cycle in the background unless one is already running.
func (s *Scheduler) fire(ctx context.Context, trigger string) {
	if !s.busy.CompareAndSwap(false, true) {
		logging.Warn().Str("trigger", trigger).Msg("Previous cycle still running, skipping this fire")
		metrics.RecordSchedulerRun(trigger, "skipped", s.now())
		return
	}
	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		defer s.busy.Store(false)
		_, _ = s.runGuarded(ctx, trigger, "") //nolint:errcheck // recorded in lastRun
	}()
}

// runGuarded runs one cycle, turning panics into errors, and records the outcome.
func (s *Scheduler) runGuarded(ctx context.Context, trigger, date string) (summary *models.CycleSummary, err error) {
	started := s.now()
	cctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
			logging.Error().Interface("panic", r).Str("trigger", trigger).Msg("Cycle panicked, scheduler continues")
		}
		s.record(cctx, trigger, started, summary, err)
	}()

	summary, err = s.runner.RunCycle(cctx, date)
	if summary != nil {
		summary.Trigger = trigger
	}
	return summary, err
}

func (s *Scheduler) record(ctx context.Context, trigger string, started time.Time, summary *models.CycleSummary, err error) {
	finished := s.now()
	run := &RunSummary{
		Trigger:    trigger,
		StartedAt:  started,
		FinishedAt: finished,
		Cycle:      summary,
	}

	result := "success"
	switch {
	case err != nil:
		run.Error = err.Error()
		run.ErrorKind = fault.KindOf(err).String()
		result = run.ErrorKind
		if fault.IsAuth(err) {
			logging.AuthFailure(ctx, err, authHint).Str("trigger", trigger).Msg("Cycle failed: credentials rejected")
		} else {
			logging.Ctx(ctx).Error().Err(err).Str("trigger", trigger).Str("kind", run.ErrorKind).Msg("Cycle failed")
		}
	case summary == nil || !summary.Success():
		result = "partial"
		run.Error = "cycle finished with errors"
	default:
		run.Success = true
	}

	metrics.RecordSchedulerRun(trigger, result, finished)

	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()
}
