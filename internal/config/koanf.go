// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tariffsync/config.yaml",
	"/etc/tariffsync/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultTariffAPIURL is the marketplace box tariffs endpoint.
const DefaultTariffAPIURL = "https://common-api.wildberries.ru/api/v1/tariffs/box"

func defaultConfig() *Config {
	return &Config{
		TariffAPI: TariffAPIConfig{
			BaseURL:           DefaultTariffAPIURL,
			Timeout:           30 * time.Second,
			Burst:             5,
			RequestsPerWindow: 60,
			Window:            time.Minute,
			MaxAttempts:       3,
			RetryBaseDelay:    time.Second,
			RetryMaxDelay:     4 * time.Second,
			BreakerFailures:   5,
			BreakerTimeout:    2 * time.Minute,
		},
		Database: DatabaseConfig{
			Driver:       "pgx",
			MaxOpenConns: 10,
			AutoMigrate:  true,
		},
		Publish: PublishConfig{
			Backend:        "sheets",
			SheetName:      "stocks_coefs",
			XLSXDir:        "./sheets",
			MaxAttempts:    3,
			RetryBaseDelay: time.Second,
			RetryMaxDelay:  4 * time.Second,
			TokenThreshold: 5 * time.Minute,
		},
		Schedule: ScheduleConfig{
			Cron:         "0 * * * *",
			Timezone:     "Europe/Moscow",
			CycleTimeout: 10 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RunRateLimit:    5,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it. path overrides config file discovery.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma lists.
var sliceConfigPaths = []string{
	"publish.spreadsheet_ids",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue // unset, or already a YAML list
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"tariff_api_url":                 "tariff_api.base_url",
	"tariff_api_token":               "tariff_api.token",
	"tariff_api_timeout":             "tariff_api.timeout",
	"tariff_api_burst":               "tariff_api.burst",
	"tariff_api_requests_per_window": "tariff_api.requests_per_window",
	"tariff_api_window":              "tariff_api.window",
	"tariff_api_max_attempts":        "tariff_api.max_attempts",
	"tariff_api_breaker_failures":    "tariff_api.breaker_failures",
	"tariff_api_breaker_timeout":     "tariff_api.breaker_timeout",

	"database_driver":         "database.driver",
	"database_url":            "database.url",
	"database_max_open_conns": "database.max_open_conns",
	"database_auto_migrate":   "database.auto_migrate",

	"publish_backend":                "publish.backend",
	"google_sheet_ids":               "publish.spreadsheet_ids",
	"google_sheet_name":              "publish.sheet_name",
	"google_application_credentials": "publish.credentials_file",
	"publish_xlsx_dir":               "publish.xlsx_dir",
	"publish_max_attempts":           "publish.max_attempts",

	"schedule_cron":          "schedule.cron",
	"schedule_timezone":      "schedule.timezone",
	"schedule_run_on_start":  "schedule.run_on_start",
	"schedule_cycle_timeout": "schedule.cycle_timeout",

	"http_host":        "server.host",
	"http_port":        "server.port",
	"run_rate_limit":   "server.run_rate_limit",
	"shutdown_timeout": "server.shutdown_timeout",

	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
	"log_file":         "logging.file",
	"log_max_size_mb":  "logging.max_size_mb",
	"log_max_backups":  "logging.max_backups",
	"log_max_age_days": "logging.max_age_days",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
