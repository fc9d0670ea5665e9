// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStatusKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   Kind
	}{
		{400, KindValidation},
		{401, KindAuth},
		{403, KindAuth},
		{404, KindPermanent},
		{408, KindTransient},
		{422, KindPermanent},
		{429, KindTransient},
		{500, KindTransient},
		{503, KindTransient},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			t.Parallel()
			if got := StatusKind(tt.status); got != tt.want {
				t.Errorf("StatusKind(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	t.Parallel()

	base := Auth("tariffs.fetch", 401, "unauthorized", nil)
	wrapped := fmt.Errorf("cycle: %w", base)

	if !IsAuth(wrapped) {
		t.Error("IsAuth should see through fmt.Errorf wrapping")
	}
	if IsTransient(wrapped) || IsValidation(wrapped) {
		t.Error("auth error misclassified")
	}
	if KindOf(errors.New("plain")) != KindPermanent {
		t.Error("unclassified errors should be permanent")
	}
	if IsTransient(nil) {
		t.Error("nil is not transient")
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	t.Parallel()

	err := Transient("tariffs.fetch", 503, "upstream unavailable", context.DeadlineExceeded)

	want := "tariffs.fetch: upstream unavailable (status 503): context deadline exceeded"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Unwrap should expose the cause")
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	for k, want := range map[Kind]string{
		KindTransient:  "transient",
		KindAuth:       "auth",
		KindValidation: "validation",
		KindPermanent:  "permanent",
	} {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
