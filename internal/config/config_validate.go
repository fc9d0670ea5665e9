// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorhill/cronexpr"

	"github.com/tomtom215/tariffsync/internal/validation"
)

// Validate checks field constraints and cross-field rules that apply to
// every command, including ones that never call the upstream API.
func (c *Config) Validate() error {
	if err := validation.GetValidator().Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if c.Database.Driver == "pgx" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=pgx")
	}

	if _, err := cronexpr.Parse(c.Schedule.Cron); err != nil {
		return fmt.Errorf("SCHEDULE_CRON %q is invalid: %w", c.Schedule.Cron, err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE %q is invalid: %w", c.Schedule.Timezone, err)
	}

	if c.TariffAPI.RetryMaxDelay > 0 && c.TariffAPI.RetryBaseDelay > c.TariffAPI.RetryMaxDelay {
		return fmt.Errorf("tariff_api.retry_base_delay (%s) exceeds retry_max_delay (%s)",
			c.TariffAPI.RetryBaseDelay, c.TariffAPI.RetryMaxDelay)
	}
	if c.Publish.RetryMaxDelay > 0 && c.Publish.RetryBaseDelay > c.Publish.RetryMaxDelay {
		return fmt.Errorf("publish.retry_base_delay (%s) exceeds retry_max_delay (%s)",
			c.Publish.RetryBaseDelay, c.Publish.RetryMaxDelay)
	}
	return nil
}

// ValidatePipeline adds the rules needed to actually run a cycle:
// upstream credentials and a usable publish backend.
func (c *Config) ValidatePipeline() error {
	if strings.TrimSpace(c.TariffAPI.Token) == "" {
		return errors.New("TARIFF_API_TOKEN is required")
	}
	switch c.Publish.Backend {
	case "sheets":
		if c.Publish.CredentialsFile == "" {
			return errors.New("GOOGLE_APPLICATION_CREDENTIALS is required when PUBLISH_BACKEND=sheets")
		}
	case "xlsx":
		if c.Publish.XLSXDir == "" {
			return errors.New("PUBLISH_XLSX_DIR is required when PUBLISH_BACKEND=xlsx")
		}
	}
	return nil
}

// formatValidationErrors flattens validator output into one readable error
// naming each failing field by its config path.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
