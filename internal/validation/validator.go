// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package validation provides struct validation using go-playground/validator v10.
//
// One validator instance is shared by configuration loading and HTTP request
// parsing so both see the same custom tags:
//
//	calendardate  a YYYY-MM-DD string naming a real day
//	spreadsheetid a Google spreadsheet id (letters, digits, '-' and '_')
//
// Example:
//
//	type RunRequest struct {
//	    Date string `validate:"omitempty,calendardate"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return verr.Fault("api.run")
//	}
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var spreadsheetIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FieldError is a single failed field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// RequestValidationError collects every failed field of one struct.
type RequestValidationError struct {
	Fields []FieldError
}

// Error joins the field messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Fault wraps ve as a fault.Validation error for op.
func (ve *RequestValidationError) Fault(op string) *fault.Error {
	return fault.Validation(op, ve.Error(), ve)
}

// GetValidator returns the shared validator with the custom tags registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		mustRegister("calendardate", isCalendarDate)
		mustRegister("spreadsheetid", isSpreadsheetID)
	})
	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

func isCalendarDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != len(models.DateLayout) {
		return false
	}
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}

func isSpreadsheetID(fl validator.FieldLevel) bool {
	return spreadsheetIDPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

// ValidateStruct validates s. It returns nil when every rule passes.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translateError(fe),
		}
	}
	return &RequestValidationError{Fields: fields}
}

var errorMessageTemplates = map[string]string{
	"required":      "%s is required",
	"url":           "%s must be a valid URL",
	"calendardate":  "%s must be a calendar date in YYYY-MM-DD format",
	"spreadsheetid": "%s must be a spreadsheet id",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

// translateError turns a FieldError into a sentence naming the field.
func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	isString := fe.Kind().String() == "string"
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
