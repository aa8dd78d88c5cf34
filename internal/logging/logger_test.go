// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("stage", "database").Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
	if !strings.Contains(output, `"stage":"database"`) {
		t.Errorf("expected output to contain stage field, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{" info ", zerolog.InfoLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCtx_AddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	ctx := WithBootstrapID(context.Background(), "abcd1234")
	ctx = WithRequestID(ctx, "req-1")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"bootstrap_id":"abcd1234"`) {
		t.Errorf("missing bootstrap_id: %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id: %s", out)
	}
	if RequestIDFromContext(ctx) != "req-1" {
		t.Errorf("RequestIDFromContext = %q", RequestIDFromContext(ctx))
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("expected empty request ID for bare context")
	}
}

func TestNewBootstrapID(t *testing.T) {
	t.Parallel()

	a, b := NewBootstrapID(), NewBootstrapID()
	if len(a) != 8 {
		t.Errorf("expected 8 character ID, got %q", a)
	}
	if a == b {
		t.Error("expected distinct bootstrap IDs")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	l := Component("probe")
	l.Info().Msg("x")
	if !strings.Contains(buf.String(), `"component":"probe"`) {
		t.Errorf("missing component: %s", buf.String())
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	zl := NewTestLogger(&buf)

	logger := slog.New(NewSlogHandler(zl)).With("service", "http").WithGroup("event")
	logger.Warn("service restarted", "attempt", 3, "err", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"service":"http"`,
		`"event.attempt":3`,
		`"event.err":"boom"`,
		`"message":"service restarted"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	t.Parallel()

	zl := zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel)
	h := NewSlogHandler(zl)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
