// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

//go:build integration

package testinfra

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// SkipContainersEnvVar disables container tests even when Docker is reachable.
const SkipContainersEnvVar = "TARIFFSYNC_SKIP_CONTAINERS"

var (
	dockerOnce sync.Once
	dockerErr  error
)

// SkipIfNoDocker skips t when containers are disabled or no Docker daemon answers.
// The daemon is checked once per test binary.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if os.Getenv(SkipContainersEnvVar) != "" {
		t.Skipf("container tests disabled by %s", SkipContainersEnvVar)
	}
	dockerOnce.Do(func() { dockerErr = dockerHealth() })
	if dockerErr != nil {
		t.Skipf("Docker unavailable: %v", dockerErr)
	}
}

func dockerHealth() error {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return provider.Health(ctx)
}

// StartPostgres starts a PostgreSQL container for the lifetime of t and
// returns its DSN. t is skipped when Docker is unavailable.
func StartPostgres(t *testing.T, opts ...PostgresOption) string {
	t.Helper()
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := NewPostgresContainer(ctx, opts...)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pg.Container); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})
	return pg.DSN
}
