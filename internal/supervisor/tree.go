// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

/*
Package supervisor runs the long-lived tariffsync services under suture v4.

The tree has two layers so that a crash in one does not take down the other:

	tariffsync
	├── pipeline-layer
	│   └── SchedulerService
	└── api-layer
	    └── HTTPServerService

A scheduler that fails to start is restarted with backoff while the HTTP
surface keeps answering /status and /healthz. Supervisor events go to the
zerolog-backed slog logger through sutureslog.

Usage in the serve command:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPipelineService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig tunes restart behavior. Zero fields take DefaultTreeConfig values.
type TreeConfig struct {
	// Failures tolerated before a layer backs off.
	FailureThreshold float64
	// Seconds for the failure count to decay by one.
	FailureDecay float64
	FailureBackoff time.Duration
	// ShutdownTimeout bounds how long each service gets to stop. The serve
	// command sets it to cover an in-flight cycle plus HTTP draining.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns production defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  30 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// spec builds a suture.Spec. Only the root carries the event hook; child
// supervisor events propagate up to it.
func (c TreeConfig) spec(hook suture.EventHook) suture.Spec {
	return suture.Spec{
		EventHook:        hook,
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// SupervisorTree is the tariffsync supervisor hierarchy.
type SupervisorTree struct {
	root     *suture.Supervisor
	pipeline *suture.Supervisor
	api      *suture.Supervisor
	config   TreeConfig
}

// NewSupervisorTree builds the tree. A nil logger means slog.Default().
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	events := &sutureslog.Handler{Logger: logger}
	tree := &SupervisorTree{
		root:   suture.New("tariffsync", config.spec(events.MustHook())),
		config: config,
	}
	tree.pipeline = tree.layer("pipeline-layer")
	tree.api = tree.layer("api-layer")
	return tree, nil
}

func (t *SupervisorTree) layer(name string) *suture.Supervisor {
	sup := suture.New(name, t.config.spec(nil))
	t.root.Add(sup)
	return sup
}

// Root returns the top-level supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor { return t.root }

// AddPipelineService supervises svc in the pipeline layer.
func (t *SupervisorTree) AddPipelineService(svc suture.Service) suture.ServiceToken {
	return t.pipeline.Add(svc)
}

// AddAPIService supervises svc in the api layer.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve blocks until ctx is canceled and every service has stopped or timed out.
func (t *SupervisorTree) Serve(ctx context.Context) error { return t.root.Serve(ctx) }

// ServeBackground runs the tree in a goroutine; the channel receives its result.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that outlived ShutdownTimeout.
func (t *SupervisorTree) UnstoppedServiceReport() (suture.UnstoppedServiceReport, error) {
	return t.root.UnstoppedServiceReport()
}
