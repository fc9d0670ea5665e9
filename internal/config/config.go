// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/tariffsync/internal/logging"
)

// Config is the complete tariffsync configuration.
type Config struct {
	TariffAPI TariffAPIConfig `koanf:"tariff_api"`
	Database  DatabaseConfig  `koanf:"database"`
	Publish   PublishConfig   `koanf:"publish"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// TariffAPIConfig configures the upstream marketplace tariff client.
type TariffAPIConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// Token bucket: Burst tokens, refilled at RequestsPerWindow per Window.
	Burst             int           `koanf:"burst" validate:"min=1"`
	RequestsPerWindow int           `koanf:"requests_per_window" validate:"min=1"`
	Window            time.Duration `koanf:"window" validate:"gt=0"`

	MaxAttempts    int           `koanf:"max_attempts" validate:"min=1,max=10"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay" validate:"gte=0"`
	RetryMaxDelay  time.Duration `koanf:"retry_max_delay" validate:"gte=0"`

	// Circuit breaker
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver       string `koanf:"driver" validate:"oneof=pgx duckdb"`
	URL          string `koanf:"url"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"min=1"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// PublishConfig configures the spreadsheet publish targets.
type PublishConfig struct {
	Backend         string        `koanf:"backend" validate:"oneof=sheets xlsx"`
	SpreadsheetIDs  []string      `koanf:"spreadsheet_ids" validate:"dive,required,spreadsheetid"`
	SheetName       string        `koanf:"sheet_name" validate:"required,max=100"`
	CredentialsFile string        `koanf:"credentials_file"`
	XLSXDir         string        `koanf:"xlsx_dir"`
	MaxAttempts     int           `koanf:"max_attempts" validate:"min=1,max=10"`
	RetryBaseDelay  time.Duration `koanf:"retry_base_delay" validate:"gte=0"`
	RetryMaxDelay   time.Duration `koanf:"retry_max_delay" validate:"gte=0"`
	TokenThreshold  time.Duration `koanf:"token_threshold" validate:"gte=0"`
}

// ScheduleConfig configures the periodic trigger.
type ScheduleConfig struct {
	Cron         string        `koanf:"cron" validate:"required"`
	Timezone     string        `koanf:"timezone" validate:"required"`
	RunOnStart   bool          `koanf:"run_on_start"`
	CycleTimeout time.Duration `koanf:"cycle_timeout" validate:"gt=0"`
}

// Location resolves Timezone. Validate has already checked it loads.
func (s ScheduleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return businessZone
	}
	return loc
}

// ServerConfig configures the HTTP status/trigger listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	RunRateLimit    int           `koanf:"run_rate_limit" validate:"min=1"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig mirrors logging.Config in file/env form.
type LoggingConfig struct {
	Level      string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format     string `koanf:"format" validate:"oneof=json console"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=1"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
}

// ToLogging converts to the logging package configuration.
func (l LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	cfg.File = l.File
	cfg.MaxSizeMB = l.MaxSizeMB
	cfg.MaxBackups = l.MaxBackups
	cfg.MaxAgeDays = l.MaxAgeDays
	return cfg
}

// businessZone is the fixed UTC+3 zone used when tzdata is unavailable.
var businessZone = time.FixedZone("MSK", 3*60*60)

// BusinessZone returns the fallback business timezone (UTC+3).
func BusinessZone() *time.Location { return businessZone }
