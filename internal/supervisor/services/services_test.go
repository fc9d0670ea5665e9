// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tariffsync/internal/scheduler"
)

var (
	_ suture.Service   = (*HTTPServerService)(nil)
	_ suture.Service   = (*SchedulerService)(nil)
	_ SchedulerManager = (*scheduler.Scheduler)(nil)
	_ HTTPServer       = (*http.Server)(nil)
)

type mockHTTPServer struct {
	listenErr error
	block     bool
	stopCh    chan struct{}
	shutdowns atomic.Int32
}

func newMockHTTPServer(block bool) *mockHTTPServer {
	return &mockHTTPServer{block: block, stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	if m.block {
		<-m.stopCh
	}
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	if m.shutdowns.Add(1) == 1 {
		close(m.stopCh)
	}
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := newMockHTTPServer(true)
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if n := srv.shutdowns.Load(); n != 1 {
		t.Errorf("Shutdown called %d times, want 1", n)
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	t.Parallel()

	srv := newMockHTTPServer(false)
	srv.listenErr = errors.New("address already in use")
	svc := NewHTTPServerService(srv, 0)

	err := svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address already in use") {
		t.Errorf("Serve = %v, want listen error", err)
	}
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s default", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

type mockScheduler struct {
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32
}

func (m *mockScheduler) Start(context.Context) error {
	m.starts.Add(1)
	return m.startErr
}

func (m *mockScheduler) Stop() { m.stops.Add(1) }

func TestSchedulerService_StartThenStopOnCancel(t *testing.T) {
	t.Parallel()

	mgr := &mockScheduler{}
	svc := NewSchedulerService(mgr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for mgr.starts.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if mgr.stops.Load() != 0 {
		t.Fatal("Stop called before cancel")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if mgr.starts.Load() != 1 || mgr.stops.Load() != 1 {
		t.Errorf("starts=%d stops=%d, want 1/1", mgr.starts.Load(), mgr.stops.Load())
	}
}

func TestSchedulerService_StartFailure(t *testing.T) {
	t.Parallel()

	mgr := &mockScheduler{startErr: errors.New("bad cron")}
	svc := NewSchedulerService(mgr)

	err := svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad cron") {
		t.Errorf("Serve = %v, want start error", err)
	}
	if mgr.stops.Load() != 0 {
		t.Error("Stop called after failed Start")
	}
	if svc.String() != "cycle-scheduler" {
		t.Errorf("String() = %q", svc.String())
	}
}
