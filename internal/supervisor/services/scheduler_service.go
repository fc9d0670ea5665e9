// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package services adapts tariffsync components to suture.Service.
package services

import (
	"context"
	"fmt"
)

// SchedulerManager is the Start/Stop lifecycle of *scheduler.Scheduler.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop()
}

// SchedulerService runs the cycle scheduler as a supervised service:
// Start, wait for cancellation, then Stop. Stop waits for an in-flight
// cycle, so the tree's shutdown timeout bounds how long that may take.
type SchedulerService struct {
	manager SchedulerManager
	name    string
}

// NewSchedulerService wraps manager.
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{manager: manager, name: "cycle-scheduler"}
}

// Serve implements suture.Service. A failed Start is returned so suture
// restarts the service with backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()
	s.manager.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *SchedulerService) String() string {
	return s.name
}
