// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package fault classifies failures from the external APIs.
//
// Clients tag every failure with a Kind at the point where it is observed
// (HTTP status, network error, API error code). Callers decide on retries,
// circuit-breaker accounting and operator alerts by Kind, never by message text.
package fault

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the failure class.
type Kind int

const (
	// KindPermanent failures will not succeed on retry (unexpected 4xx, malformed data).
	KindPermanent Kind = iota
	// KindTransient failures may succeed on retry (timeouts, 429, 5xx).
	KindTransient
	// KindAuth failures need operator action (401/403, credential refresh).
	KindAuth
	// KindValidation failures are caused by bad input.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	default:
		return "permanent"
	}
}

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Op     string // operation, e.g. "tariffs.fetch"
	Status int    // upstream HTTP status when known
	Msg    string
	Err    error

	// RetryAfter is the server-requested wait (Retry-After header), zero if none.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Transient builds a retryable failure.
func Transient(op string, status int, msg string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Status: status, Msg: msg, Err: err}
}

// Auth builds a credential failure.
func Auth(op string, status int, msg string, err error) *Error {
	return &Error{Kind: KindAuth, Op: op, Status: status, Msg: msg, Err: err}
}

// Validation builds a bad-input failure.
func Validation(op, msg string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg, Err: err}
}

// Permanent builds a non-retryable failure.
func Permanent(op string, status int, msg string, err error) *Error {
	return &Error{Kind: KindPermanent, Op: op, Status: status, Msg: msg, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
// Errors without classification are permanent.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindPermanent
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool { return err != nil && KindOf(err) == KindTransient }

// IsAuth reports whether err is a credential failure.
func IsAuth(err error) bool { return err != nil && KindOf(err) == KindAuth }

// IsValidation reports whether err is a bad-input failure.
func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }

// StatusKind maps an HTTP status code to a Kind. 2xx/3xx map to permanent
// because callers only classify failed responses.
func StatusKind(status int) Kind {
	switch {
	case status == 400:
		return KindValidation
	case status == 401, status == 403:
		return KindAuth
	case status == 408, status == 429, status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}

// FromStatus builds an Error classified by status.
func FromStatus(op string, status int, msg string) *Error {
	return &Error{Kind: StatusKind(status), Op: op, Status: status, Msg: msg}
}

// RetryAfterOf returns the server-requested wait carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.RetryAfter
	}
	return 0
}
