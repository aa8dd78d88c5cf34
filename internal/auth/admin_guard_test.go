// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package auth

import (
	"errors"
	"testing"

	"github.com/tomtom215/credissuer/internal/config"
)

func TestValidateAdminGuard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		password string
		wantMode AdminGuardMode
		wantKey  string
	}{
		{name: "both absent", wantMode: AdminGuardOpen},
		{name: "both present", username: "admin", password: "pw", wantMode: AdminGuardBasic},
		{name: "only username", username: "admin", wantKey: "ADMIN_API_PASSWORD"},
		{name: "only password", password: "pw", wantKey: "ADMIN_API_USERNAME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			guard, err := ValidateAdminGuard(tt.username, tt.password)
			if tt.wantKey != "" {
				var cerr *config.ConfigurationError
				if !errors.As(err, &cerr) {
					t.Fatalf("expected *config.ConfigurationError, got %v", err)
				}
				if !cerr.HasKey(tt.wantKey) {
					t.Errorf("Keys() = %v, want %s", cerr.Keys(), tt.wantKey)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if guard.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", guard.Mode, tt.wantMode)
			}
			if guard.Protected() != (tt.wantMode == AdminGuardBasic) {
				t.Errorf("Protected() = %v", guard.Protected())
			}
		})
	}
}

func TestDeriveSessionSecret(t *testing.T) {
	t.Parallel()

	if got := DeriveSessionSecret("explicit", "http://agent", "issuer", "http://me"); got != "explicit" {
		t.Errorf("explicit secret should win, got %q", got)
	}

	a := DeriveSessionSecret("", "http://agent", "issuer", "http://me")
	b := DeriveSessionSecret("", "http://agent", "issuer", "http://me")
	if a != b {
		t.Error("derived secret should be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("derived secret length = %d, want 64 hex chars", len(a))
	}
	if a == DeriveSessionSecret("", "http://agent", "other", "http://me") {
		t.Error("different deployments should derive different secrets")
	}
	// sha256("") for the all-empty input.
	const emptySum = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := DeriveSessionSecret("", "", "", ""); got != emptySum {
		t.Errorf("DeriveSessionSecret(empty) = %s", got)
	}
}
