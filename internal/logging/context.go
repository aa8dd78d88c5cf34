// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	bootstrapIDKey contextKey = "bootstrap_id"
	requestIDKey   contextKey = "request_id"
)

// NewBootstrapID returns a short identifier for one startup run.
// Restarts of the same container get distinct IDs so their log lines can be
// told apart.
func NewBootstrapID() string {
	return uuid.New().String()[:8]
}

// NewRequestID returns a full UUID for HTTP request correlation.
func NewRequestID() string {
	return uuid.New().String()
}

// WithBootstrapID returns a context carrying the bootstrap run identifier.
func WithBootstrapID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, bootstrapIDKey, id)
}

// WithRequestID returns a context carrying the HTTP request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with any identifiers stored in ctx.
//
//	logging.Ctx(ctx).Info().Str("stage", "identity").Msg("Agent is a trust anchor")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if ctx == nil {
		return &l
	}
	lc := l.With()
	if id, ok := ctx.Value(bootstrapIDKey).(string); ok && id != "" {
		lc = lc.Str("bootstrap_id", id)
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		lc = lc.Str("request_id", id)
	}
	out := lc.Logger()
	return &out
}
